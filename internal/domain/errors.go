package domain

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Sentinel errors for submission handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrMethodNotAllowed = errors.New("method_not_allowed")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInsertFailed     = errors.New("insert_failed")
	ErrInsertTimeout    = errors.New("insert_timeout")
)

// Text codes carried by the rich error envelope.
const (
	TextCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	TextCodeInvalidPayload   = "INVALID_PAYLOAD"
	TextCodeInsertFailed     = "INSERT_FAILED"
	TextCodeInsertTimeout    = "INSERT_TIMEOUT"
	TextCodeInternal         = "INTERNAL"
)

// SubmissionError describes why a submission could not be stored.
// Kind is one of the sentinel errors above; Detail is safe to return to the
// webhook sender.
type SubmissionError struct {
	Kind   error
	Detail string
	Cause  error
}

func (e *SubmissionError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *SubmissionError) Unwrap() error {
	if e.Cause == nil {
		return e.Kind
	}
	return errors.Join(e.Kind, e.Cause)
}

// ToServiceError converts the error into a go-errors envelope carrying the
// HTTP status, text code and log severity it maps to. Detail travels as
// metadata so the response body can be built from the envelope alone.
func (e *SubmissionError) ToServiceError() *goerrors.Error {
	category, code, textCode := goerrors.CategoryInternal, http.StatusInternalServerError, TextCodeInternal
	severity := goerrors.SeverityError
	switch e.Kind {
	case ErrMethodNotAllowed:
		category, code, textCode = goerrors.CategoryMethodNotAllowed, http.StatusMethodNotAllowed, TextCodeMethodNotAllowed
		severity = goerrors.SeverityWarning
	case ErrInvalidPayload:
		category, code, textCode = goerrors.CategoryBadInput, http.StatusBadRequest, TextCodeInvalidPayload
		severity = goerrors.SeverityWarning
	case ErrInsertFailed:
		category, code, textCode = goerrors.CategoryExternal, http.StatusInternalServerError, TextCodeInsertFailed
	case ErrInsertTimeout:
		category, code, textCode = goerrors.CategoryExternal, http.StatusGatewayTimeout, TextCodeInsertTimeout
	}

	var rich *goerrors.Error
	if e.Cause != nil {
		rich = goerrors.Wrap(e.Cause, category, e.Error())
	} else {
		rich = goerrors.New(e.Error(), category)
	}
	rich = rich.WithCode(code).WithTextCode(textCode).WithSeverity(severity)
	if e.Detail != "" {
		rich.WithMetadata(map[string]any{MetadataDetail: e.Detail})
	}
	return rich
}

// MetadataDetail is the envelope metadata key holding the sender-safe detail.
const MetadataDetail = "detail"

// ServiceError returns the go-errors envelope for any error raised while
// handling a submission. Errors that are not submission errors become
// internal errors.
func ServiceError(err error) *goerrors.Error {
	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return subErr.ToServiceError()
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich
	}
	rich = goerrors.Wrap(err, goerrors.CategoryInternal, "unexpected error")
	if rich == nil {
		rich = goerrors.New("unexpected error", goerrors.CategoryInternal)
	}
	rich = rich.WithCode(http.StatusInternalServerError).WithTextCode(TextCodeInternal).WithSeverity(goerrors.SeverityError)
	if err != nil {
		rich.WithMetadata(map[string]any{MetadataDetail: err.Error()})
	}
	return rich
}

// Detail returns the sender-safe detail stored on an envelope.
func Detail(rich *goerrors.Error) string {
	d, _ := rich.Metadata[MetadataDetail].(string)
	return d
}

// InvalidPayload builds an ErrInvalidPayload error.
func InvalidPayload(detail string) error {
	return &SubmissionError{Kind: ErrInvalidPayload, Detail: detail}
}

// InsertFailed builds an ErrInsertFailed error wrapping the sink failure.
func InsertFailed(cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &SubmissionError{Kind: ErrInsertFailed, Detail: detail, Cause: cause}
}

// InsertTimeout builds an ErrInsertTimeout error wrapping the deadline error.
func InsertTimeout(cause error) error {
	detail := "insert did not complete in time"
	if cause != nil {
		detail = cause.Error()
	}
	return &SubmissionError{Kind: ErrInsertTimeout, Detail: detail, Cause: cause}
}
