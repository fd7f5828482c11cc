package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/splax/modulehub/internal/domain"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message under both keys the web client reads.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg, "error": msg})
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindConflict:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs server-side failures and writes the public message.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	r.writeServiceErrorStatus(w, req, err, statusFor(err))
}

func (r *Router) writeServiceErrorStatus(w http.ResponseWriter, req *http.Request, err error, status int) {
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed", "path", req.URL.Path, "kind", domain.KindOf(err), "error", err)
	}
	writeError(w, status, domain.PublicMessage(err))
}
