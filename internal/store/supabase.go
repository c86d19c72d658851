package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/efreitasn/formrelay/internal/domain"
)

// maxErrorBody bounds how much of a failed response is read for diagnostics.
const maxErrorBody = 64 << 10

// PostgRESTError is the error body returned by a Supabase REST endpoint.
type PostgRESTError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *PostgRESTError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// SupabaseStore inserts rows through the Supabase REST (PostgREST) API.
type SupabaseStore struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
}

// NewSupabaseStore creates a SupabaseStore for the project at baseURL.
// A nil client falls back to http.DefaultClient; request deadlines come from
// the context passed to Insert.
func NewSupabaseStore(baseURL, apiKey string, client *http.Client) (*SupabaseStore, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("supabase url must be an absolute URL: %q", baseURL)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("supabase api key is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SupabaseStore{baseURL: u, apiKey: apiKey, client: client}, nil
}

// Insert posts a single-element array to /rest/v1/{table}.
func (s *SupabaseStore) Insert(ctx context.Context, table string, row domain.Row, returning bool) ([]map[string]any, error) {
	body, err := json.Marshal([]domain.Row{row})
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}

	endpoint := s.baseURL.JoinPath("rest", "v1", table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if returning {
		req.Header.Set("Prefer", "return=representation")
	} else {
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodePostgRESTError(resp)
	}

	if !returning {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode inserted rows: %w", err)
	}
	return rows, nil
}

func decodePostgRESTError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	pgErr := &PostgRESTError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, pgErr); err != nil || pgErr.Message == "" {
		pgErr.Message = strings.TrimSpace(string(raw))
	}
	return pgErr
}
