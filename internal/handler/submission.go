package handler

import (
	"log/slog"
	"net/http"

	"github.com/efreitasn/formrelay/internal/domain"
	"github.com/efreitasn/formrelay/internal/service"
	goerrors "github.com/goliatone/go-errors"
)

// Response titles, kept compatible with what form services already parse.
const (
	titleMethodNotAllowed = "Method Not Allowed"
	titleInvalidPayload   = "Invalid Payload"
	titleInsertFailed     = "Insert Failed"
	titleInsertTimeout    = "Insert Timed Out"
	titleInternal         = "Internal Server Error"

	messageAccepted         = "Form data received and inserted successfully!"
	messageOnlyPost         = "Only POST requests are accepted."
	messageUnexpectedFormat = "The received data structure is not as expected"
)

// SubmissionHandler handles form-submission webhooks.
type SubmissionHandler struct {
	submissionSvc *service.SubmissionService
	maxBodyBytes  int64
	logger        *slog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissionSvc *service.SubmissionService, maxBodyBytes int64, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissionSvc: submissionSvc,
		maxBodyBytes:  maxBodyBytes,
		logger:        logger,
	}
}

// submissionResponse is the JSON response for an accepted submission.
type submissionResponse struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Receive handles POST on the webhook routes.
func (h *SubmissionHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := ReadBody(w, r, h.maxBodyBytes)
	if err != nil {
		h.writeError(w, r, domain.InvalidPayload(err.Error()))
		return
	}

	sub, err := h.submissionSvc.Submit(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := submissionResponse{Message: messageAccepted}
	if len(sub.Stored) > 0 {
		resp.Data = sub.Stored[0]
	}
	WriteJSON(w, http.StatusOK, resp)
}

// MethodNotAllowed answers non-POST requests on the webhook routes.
func (h *SubmissionHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	h.writeError(w, r, &domain.SubmissionError{Kind: domain.ErrMethodNotAllowed})
}

// writeError logs the error envelope with the request ID and writes the
// response its text code maps to.
func (h *SubmissionHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	rich := domain.ServiceError(err).WithRequestID(RequestIDFrom(r.Context()))
	goerrors.LogBySeverity(h.logger, rich)
	mapSubmissionError(w, rich)
}

// mapSubmissionError maps an error envelope to an HTTP response.
func mapSubmissionError(w http.ResponseWriter, rich *goerrors.Error) {
	detail := domain.Detail(rich)
	switch rich.TextCode {
	case domain.TextCodeInvalidPayload:
		WriteError(w, rich.Code, titleInvalidPayload, messageUnexpectedFormat+": "+detail)
	case domain.TextCodeInsertTimeout:
		WriteErrorDetails(w, rich.Code, titleInsertTimeout, detail)
	case domain.TextCodeInsertFailed:
		WriteErrorDetails(w, rich.Code, titleInsertFailed, detail)
	case domain.TextCodeMethodNotAllowed:
		WriteError(w, rich.Code, titleMethodNotAllowed, messageOnlyPost)
	default:
		WriteError(w, http.StatusInternalServerError, titleInternal, detail)
	}
}
