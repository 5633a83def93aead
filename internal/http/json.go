package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/target/mmk-jobitems/internal/errors"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	body := map[string]string{"error": p.ErrCode, "message": p.Err.Error()}
	if field := apperrors.GetField(p.Err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, p.Code, body)
}

// WriteAppError maps an error to a status code by its apperrors code.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch {
	case code == apperrors.ErrCodeValidation:
		status = http.StatusBadRequest
	case code == apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case code == apperrors.ErrCodeTimeout, errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		code = apperrors.ErrCodeTimeout
	case code == apperrors.ErrCodeRemote, code == apperrors.ErrCodeMalformed:
		status = http.StatusBadGateway
	case code == "":
		code = apperrors.ErrCodeInternal
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: string(code), Err: err})
}
