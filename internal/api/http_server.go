package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"stirka/internal/config"
	"stirka/internal/metrics"
	"stirka/internal/models"
	"stirka/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPServer exposes the booking API over HTTP.
type HTTPServer struct {
	cfg      config.APIConfig
	auth     *service.AuthService
	bookings *service.BookingService
	machines *service.MachineService
	logger   *zerolog.Logger
	server   *http.Server
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPServer(cfg config.APIConfig, auth *service.AuthService, bookings *service.BookingService, machines *service.MachineService, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		auth:     auth,
		bookings: bookings,
		machines: machines,
		logger:   logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", srv.handleRegister)
	mux.HandleFunc("POST /api/login", srv.handleLogin)
	mux.HandleFunc("POST /api/admin/login", srv.handleAdminLogin)
	mux.HandleFunc("POST /api/google-login", srv.handleGoogleLogin)
	mux.HandleFunc("POST /api/google-register", srv.handleGoogleRegister)
	mux.HandleFunc("POST /api/logout", srv.handleLogout)

	mux.HandleFunc("GET /api/machines", srv.handleListMachines)
	mux.HandleFunc("GET /api/machines/{id}/bookings", srv.handleMachineBookings)

	mux.HandleFunc("POST /api/bookings", srv.requireSession(srv.handleCreateBooking))
	mux.HandleFunc("GET /api/bookings/user/{id}", srv.requireSession(srv.handleUserBookings))
	mux.HandleFunc("DELETE /api/bookings/{id}", srv.requireSession(srv.handleCancelBooking))

	mux.HandleFunc("GET /api/admin/bookings", srv.requireAdmin(srv.handleAllBookings))
	mux.HandleFunc("GET /api/admin/bookings/export", srv.requireAdmin(srv.handleExportBookings))
	mux.HandleFunc("PUT /api/admin/machines/{id}/status", srv.requireAdmin(srv.handleSetMachineStatus))
	mux.HandleFunc("POST /api/admin/machines", srv.requireAdmin(srv.handleCreateMachine))

	mux.HandleFunc("GET /healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.rateLimitMiddleware(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler возвращает собранный обработчик. Для httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionContextKey ключ сессии в контексте запроса.
type sessionContextKey struct{}

func sessionFrom(r *http.Request) *models.Session {
	session, _ := r.Context().Value(sessionContextKey{}).(*models.Session)
	return session
}

// requireSession проверяет Bearer-токен и кладет сессию в контекст.
func (s *HTTPServer) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin пускает только admin-сессии.
func (s *HTTPServer) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireSession(func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r).Role != models.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit.RPS <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !s.getLimiter(s.clientKey(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey различает клиентов по токену сессии, иначе по адресу.
func (s *HTTPServer) clientKey(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (s *HTTPServer) getLimiter(key string) *rate.Limiter {
	if v, ok := s.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := s.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(s.cfg.RateLimit.RPS), burst)
	actual, loaded := s.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
