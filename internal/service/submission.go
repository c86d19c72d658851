package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/efreitasn/formrelay/internal/domain"
	"github.com/efreitasn/formrelay/internal/store"
	goerrors "github.com/goliatone/go-errors"
)

// maxLoggedPayload bounds how much of an invalid payload is logged.
const maxLoggedPayload = 4 << 10

// SubmissionOptions configures a SubmissionService.
type SubmissionOptions struct {
	Table         string
	LabelMatch    domain.LabelMatch
	ReturnRow     bool
	InsertTimeout time.Duration
}

// Submission is the outcome of a stored form submission.
type Submission struct {
	Row    domain.Row
	Stored []map[string]any
}

// SubmissionService turns webhook bodies into destination rows and writes
// them through a RowInserter. It holds no per-request state.
type SubmissionService struct {
	inserter store.RowInserter
	opts     SubmissionOptions
	logger   *slog.Logger
}

// NewSubmissionService creates a new SubmissionService with the given dependencies.
func NewSubmissionService(inserter store.RowInserter, opts SubmissionOptions, logger *slog.Logger) *SubmissionService {
	if opts.LabelMatch == "" {
		opts.LabelMatch = domain.LabelMatchExact
	}
	if opts.InsertTimeout <= 0 {
		opts.InsertTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionService{inserter: inserter, opts: opts, logger: logger}
}

// Submit normalizes the payload, extracts the canonical row and inserts it.
// The insert is bounded by the configured timeout and never retried.
func (s *SubmissionService) Submit(ctx context.Context, body []byte) (*Submission, error) {
	set, err := domain.NormalizePayload(body, s.opts.LabelMatch)
	if err != nil {
		s.logFailure("invalid payload", err,
			slog.String("payload", truncate(body, maxLoggedPayload)),
		)
		return nil, err
	}

	row := domain.Extract(set, s.opts.LabelMatch)

	insertCtx, cancel := context.WithTimeout(ctx, s.opts.InsertTimeout)
	defer cancel()

	stored, err := s.inserter.Insert(insertCtx, s.opts.Table, row, s.opts.ReturnRow)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(insertCtx.Err(), context.DeadlineExceeded) {
			timeoutErr := domain.InsertTimeout(err)
			s.logFailure("insert timed out", timeoutErr,
				slog.String("table", s.opts.Table),
				slog.Duration("timeout", s.opts.InsertTimeout),
			)
			return nil, timeoutErr
		}
		insertErr := domain.InsertFailed(err)
		s.logFailure("insert failed", insertErr, slog.String("table", s.opts.Table))
		return nil, insertErr
	}

	s.logger.Info("submission stored",
		slog.String("table", s.opts.Table),
		slog.Int("fields", set.Len()),
		slog.Int("returned_rows", len(stored)),
	)
	return &Submission{Row: row, Stored: stored}, nil
}

// logFailure logs err with the category and text code of its envelope.
func (s *SubmissionService) logFailure(msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.String("error", err.Error()))
	for _, a := range goerrors.ToSlogAttributes(domain.ServiceError(err)) {
		attrs = append(attrs, a)
	}
	s.logger.Error(msg, attrs...)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
