package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/modulehub/internal/ratelimit"
	"github.com/splax/modulehub/internal/service/auth"
	"github.com/splax/modulehub/internal/service/catalog"
	"github.com/splax/modulehub/internal/service/notification"
	"github.com/splax/modulehub/internal/service/subscription"
	"github.com/splax/modulehub/internal/ws"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Auth          auth.Service
	Catalog       catalog.Service
	Subscriptions subscription.Service
	Notifications *notification.Service
}

// Options carries the router's infrastructure dependencies.
type Options struct {
	Limiter        ratelimit.Limiter
	Hub            *ws.Hub
	WSWriteTimeout time.Duration
	DBHealth       func(context.Context) error
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	auth           auth.Service
	catalog        catalog.Service
	subscriptions  subscription.Service
	notifications  *notification.Service
	hub            *ws.Hub
	ownsHub        bool
	upgrader       websocket.Upgrader
	wsWriteTimeout time.Duration
	limiter        ratelimit.Limiter
	dbHealth       func(context.Context) error
	metrics        *routerMetrics
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitSocket    = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, svc Services, opts Options) *Router {
	r := &Router{
		mux:           http.NewServeMux(),
		logger:        logger,
		auth:          svc.Auth,
		catalog:       svc.Catalog,
		subscriptions: svc.Subscriptions,
		notifications: svc.Notifications,
		hub:           opts.Hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		wsWriteTimeout: opts.WSWriteTimeout,
		limiter:        opts.Limiter,
		dbHealth:       opts.DBHealth,
		metrics:        newRouterMetrics(),
	}
	if r.limiter == nil {
		r.limiter = ratelimit.NewMemory()
	}
	if r.hub == nil {
		r.hub = ws.NewHub()
		r.ownsHub = true
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
	if r.ownsHub {
		r.hub.Close()
	}
}

func (r *Router) register() {
	r.handle("/healthz", "/healthz", r.handleHealthz)
	r.mux.Handle("/metrics", promhttp.Handler())
	r.handle("/socket", "/socket", r.withRateLimit("/socket", rateLimitSocket, rateWindowRealtime, rateLimitKeyIP, r.handleSocket))

	r.handle("/api/auth/register", "/api/auth/register", r.withRateLimit("/api/auth/register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister))
	r.handle("/api/auth/login", "/api/auth/login", r.withRateLimit("/api/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin))
	r.handle("/api/auth/me", "/api/auth/me", r.handlerAuthRate("/api/auth/me", rateLimitUserRead, rateWindowDefault, r.handleMe))

	r.handle("/api/packages", "/api/packages", r.handlerAuthRate("/api/packages", rateLimitUserRead, rateWindowDefault, r.handlePackages))
	r.handle("/api/packages/", "/api/packages/*", r.handlerAuthRateByMethod("/api/packages/*", rateWindowDefault, r.handlePackageSubroutes))

	r.handle("/api/notifications", "/api/notifications", r.handlerAuthRate("/api/notifications", rateLimitUserRead, rateWindowDefault, r.handleNotifications))
	r.handle("/api/notifications/read", "/api/notifications/read", r.handlerAuthRate("/api/notifications/read", rateLimitUserWrite, rateWindowDefault, r.handleMarkRead))
}

func (r *Router) handle(pattern, route string, next http.HandlerFunc) {
	r.mux.HandleFunc(pattern, cors(r.audit(route, next)))
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// cors mirrors the permissive policy the web client was built against.
func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		headers := w.Header()
		headers.Set("Access-Control-Allow-Origin", "*")
		headers.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		headers.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-auth-token")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, req)
	}
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
			if info.CompanyID != "" {
				fields = append(fields, "company_id", info.CompanyID)
			}
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

// Hijack lets the websocket upgrader take over the connection.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		sr.status = http.StatusSwitchingProtocols
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
