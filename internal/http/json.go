package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	domainauth "github.com/target/medsurge/internal/domain/auth"
)

// maxBodyBytes bounds request bodies on the session endpoints.
const maxBodyBytes = 64 << 10

// DecodeJSON decodes the request body into dst. On failure the error response
// has already been written and false is returned.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}
	return true
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error body {"error": code, "message": text}.
// Identity errors contribute their user-facing message, never the cause.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	msg := http.StatusText(p.Code)
	if p.Err != nil {
		msg = p.Err.Error()
		var ae *domainauth.Error
		if errors.As(p.Err, &ae) {
			msg = ae.UserMessage()
		}
	}
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": msg})
}

// WriteAuthError maps an identity error kind onto an HTTP status.
func WriteAuthError(w http.ResponseWriter, ae *domainauth.Error) {
	WriteError(w, ErrorParams{Code: statusForKind(ae.Kind), ErrCode: string(ae.Kind), Err: ae})
}

func statusForKind(kind domainauth.ErrorKind) int {
	switch kind {
	case domainauth.KindInvalidCredentials, domainauth.KindUnauthorized:
		return http.StatusUnauthorized
	case domainauth.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case domainauth.KindUnsupported:
		return http.StatusNotImplemented
	case domainauth.KindSuperseded:
		return http.StatusConflict
	case domainauth.KindServerUnreachable, domainauth.KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
