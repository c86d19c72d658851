// Package app wires configuration, the selected sink and the HTTP router
// into a ready-to-serve handler.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/efreitasn/formrelay/internal/config"
	"github.com/efreitasn/formrelay/internal/handler"
	"github.com/efreitasn/formrelay/internal/service"
	"github.com/efreitasn/formrelay/internal/store"
)

// App is a constructed formrelay instance. It is built once at process
// start and reused across requests.
type App struct {
	Handler http.Handler
	closer  io.Closer
}

// Close releases the sink's resources, if any.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// NewLogger builds the JSON slog logger for the configured level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// New builds the sink selected by cfg and the router on top of it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	inserter, closer, err := openSink(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	submissionSvc := service.NewSubmissionService(inserter, service.SubmissionOptions{
		Table:         cfg.Table,
		LabelMatch:    cfg.LabelMatch,
		ReturnRow:     cfg.ReturnRow,
		InsertTimeout: cfg.InsertTimeout,
	}, logger)

	return &App{
		Handler: handler.NewRouter(submissionSvc, cfg.MaxBodyBytes, logger),
		closer:  closer,
	}, nil
}

func openSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.RowInserter, io.Closer, error) {
	switch cfg.Sink {
	case config.SinkSupabase:
		if cfg.KeyKind == config.KeyKindAnon {
			logger.Warn("using the public anon key; inserts depend on row level security policies")
		}
		s, err := store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, &http.Client{})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	case config.SinkPostgres, config.SinkSQLite:
		var (
			s   *store.SQLStore
			err error
		)
		if cfg.Sink == config.SinkPostgres {
			s, err = store.OpenPostgres(cfg.DatabaseURL)
		} else {
			s, err = store.OpenSQLite(cfg.SQLitePath)
		}
		if err != nil {
			return nil, nil, err
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("ping %s: %w", cfg.Sink, err)
		}
		if cfg.AutoMigrate {
			if err := s.EnsureTable(ctx, cfg.Table); err != nil {
				_ = s.Close()
				return nil, nil, err
			}
		}
		return s, s, nil

	case config.SinkMemory:
		return store.NewMemoryStore(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown sink %q", cfg.Sink)
}
