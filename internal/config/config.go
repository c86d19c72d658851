package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/efreitasn/formrelay/internal/domain"
	"github.com/joho/godotenv"
)

// Sink names the backend submissions are written to.
type Sink string

const (
	SinkSupabase Sink = "supabase"
	SinkPostgres Sink = "postgres"
	SinkSQLite   Sink = "sqlite"
	SinkMemory   Sink = "memory"
)

// KeyKind records which Supabase credential was resolved.
type KeyKind string

const (
	KeyKindNone    KeyKind = ""
	KeyKindService KeyKind = "service_role"
	KeyKindAnon    KeyKind = "anon"
)

// Config holds all runtime configuration for formrelay.
type Config struct {
	Port            int
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	InsertTimeout   time.Duration
	MaxBodyBytes    int64

	Sink        Sink
	Table       string
	LabelMatch  domain.LabelMatch
	ReturnRow   bool
	AutoMigrate bool

	SupabaseURL string
	SupabaseKey string
	KeyKind     KeyKind
	DatabaseURL string
	SQLitePath  string
}

// LoadDotenv loads variables from the given .env files (default ".env")
// without overriding the ones already set. Missing files are skipped; a file
// that exists but cannot be parsed is an error.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", port)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	insertTimeout, err := getDuration("INSERT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid INSERT_TIMEOUT: %w", err)
	}
	if insertTimeout <= 0 {
		return nil, fmt.Errorf("invalid INSERT_TIMEOUT: must be positive")
	}

	maxBody, err := getInt("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_BODY_BYTES: %w", err)
	}
	if maxBody <= 0 {
		return nil, fmt.Errorf("invalid MAX_BODY_BYTES: must be positive")
	}

	sink := Sink(getStr("SINK", string(SinkSupabase)))
	if !isValidSink(sink) {
		return nil, fmt.Errorf("invalid SINK: %q, must be one of: supabase, postgres, sqlite, memory", sink)
	}

	labelMatch, err := domain.ParseLabelMatch(getStr("LABEL_MATCH", string(domain.LabelMatchExact)))
	if err != nil {
		return nil, fmt.Errorf("invalid LABEL_MATCH: %w", err)
	}

	returnRow, err := getBool("RETURN_ROW", true)
	if err != nil {
		return nil, fmt.Errorf("invalid RETURN_ROW: %w", err)
	}

	autoMigrate, err := getBool("AUTO_MIGRATE", false)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_MIGRATE: %w", err)
	}

	cfg := &Config{
		Port:            port,
		LogLevel:        logLevel,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
		InsertTimeout:   insertTimeout,
		MaxBodyBytes:    int64(maxBody),
		Sink:            sink,
		Table:           getStr("TABLE", "formulario"),
		LabelMatch:      labelMatch,
		ReturnRow:       returnRow,
		AutoMigrate:     autoMigrate,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      getStr("SQLITE_PATH", "formrelay.db"),
	}
	var pair supabasePair
	cfg.SupabaseURL, cfg.SupabaseKey, cfg.KeyKind, pair = resolveSupabase()

	switch sink {
	case SinkSupabase:
		if cfg.SupabaseURL == "" && cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY (or NEXT_PUBLIC_SUPABASE_URL and NEXT_PUBLIC_SUPABASE_ANON_KEY) are required for the supabase sink")
		}
		if cfg.SupabaseURL == "" {
			return nil, fmt.Errorf("%s is required alongside %s", pair.urlVar, pair.keyVar)
		}
		if cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("%s is required alongside %s", pair.keyVar, pair.urlVar)
		}
	case SinkPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres sink")
		}
	}

	return cfg, nil
}

// supabasePair is one set of variable names that configures Supabase.
type supabasePair struct {
	urlVar, keyVar string
	kind           KeyKind
}

var supabasePairs = []supabasePair{
	{"SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY", KeyKindService},
	{"NEXT_PUBLIC_SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_ANON_KEY", KeyKindAnon},
}

// resolveSupabase picks the first variable pair with any value set, so a URL
// is never combined with the key of the other pair. The server-side names
// win. A half-set pair is returned as is and fails validation.
func resolveSupabase() (string, string, KeyKind, supabasePair) {
	for _, p := range supabasePairs {
		u, key := os.Getenv(p.urlVar), os.Getenv(p.keyVar)
		if u == "" && key == "" {
			continue
		}
		kind := p.kind
		if key == "" {
			kind = KeyKindNone
		}
		return u, key, kind, p
	}
	return "", "", KeyKindNone, supabasePairs[0]
}

// LogValue keeps credentials out of the logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("port", c.Port),
		slog.String("log_level", c.LogLevel),
		slog.String("sink", string(c.Sink)),
		slog.String("table", c.Table),
		slog.String("label_match", string(c.LabelMatch)),
		slog.Bool("return_row", c.ReturnRow),
		slog.Duration("insert_timeout", c.InsertTimeout),
		slog.String("supabase_url", c.SupabaseURL),
		slog.String("supabase_key", redact(c.SupabaseKey)),
		slog.String("key_kind", string(c.KeyKind)),
		slog.Bool("database_url_set", c.DatabaseURL != ""),
	)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func isValidSink(s Sink) bool {
	switch s {
	case SinkSupabase, SinkPostgres, SinkSQLite, SinkMemory:
		return true
	}
	return false
}
