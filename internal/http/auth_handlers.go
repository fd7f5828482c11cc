package httpx

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/service/auth"
)

const maxBodyBytes = 1 << 20

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read body")
		return
	}
	registration, err := auth.DecodeRegistration(body)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	res, err := r.auth.Register(req.Context(), registration)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":       res.Token,
		"user":        res.User,
		"accountType": res.User.AccountType,
		"companyCode": res.CompanyCode,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		status := statusFor(err)
		if domain.KindOf(err) == domain.KindAuth {
			status = http.StatusBadRequest
		}
		r.writeServiceErrorStatus(w, req, err, status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":       res.Token,
		"user":        res.User,
		"accountType": res.User.AccountType,
	})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for profile", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	profile, err := r.auth.Me(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
