package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/splax/modulehub/internal/domain"
)

const tokenHeader = "x-auth-token"

type authContextKey string

type authInfo struct {
	UserID    string
	CompanyID string
}

const contextKeyAuth authContextKey = "modulehub-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request carries a valid token before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the token header and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token := requestToken(req)
	user, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		if domain.KindOf(err) == domain.KindAuth {
			r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		}
		r.writeServiceError(w, req, err)
		return req.Context(), authInfo{}, false
	}
	info := authInfo{UserID: user.ID, CompanyID: user.CompanyID}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	return ctx, info, true
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

// requestToken reads x-auth-token, falling back to a bearer Authorization header.
func requestToken(req *http.Request) string {
	if token := strings.TrimSpace(req.Header.Get(tokenHeader)); token != "" {
		return token
	}
	parts := strings.Fields(req.Header.Get("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
