package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"matchmaking_server/apperrors"
)

// Envelope wraps every response body.
type Envelope struct {
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// WriteJSONResponse writes data in the envelope with a "success" message.
func WriteJSONResponse(w http.ResponseWriter, status int, data any) {
	WriteJSONMessage(w, status, data, "success")
}

func WriteJSONMessage(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Data: data, Status: status, Message: message})
}

// WriteError maps err to its HTTP status. Domain errors keep their message;
// anything else is reported as a generic internal error.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := "internal server error"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	WriteJSONMessage(w, status, map[string]string{"code": string(apperrors.CodeOf(err))}, message)
}

// StatusFor is the single place domain error codes become HTTP statuses.
func StatusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidArgument, apperrors.CodeEmptyMessage, apperrors.CodeSelfMatch:
		return http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		return http.StatusForbidden
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidTransition, apperrors.CodeChatClosed, apperrors.CodeDuplicateActiveProposal:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// maxBodyBytes bounds request bodies; chat messages are the largest payload.
const maxBodyBytes = 64 << 10

// DecodeJSON reads the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid request body", err)
	}
	return nil
}
