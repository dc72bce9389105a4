package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"settlements/internal/cache"
	"settlements/internal/core"
	"settlements/internal/format"
	"settlements/internal/log"
	"settlements/internal/month"
	appweb "settlements/web"
)

const (
	requestTimeout       = 10 * time.Second
	rateLimitCleanup     = 5 * time.Minute
	notificationsPerPage = 50
)

// SettlementService is what the handlers need from the service layer.
type SettlementService interface {
	MonthLister
	Create(ctx context.Context, in core.Settlement) (core.Settlement, error)
	MarkSettled(ctx context.Context, id string) (core.Settlement, error)
	Get(ctx context.Context, id string) (core.Settlement, error)
	ListByMonth(ctx context.Context, k month.Key) ([]core.Settlement, error)
	Summary(ctx context.Context, k month.Key) (core.MonthSummary, error)
	Notifications(ctx context.Context, limit int) ([]core.Notification, error)
}

type Options struct {
	Clock  month.Clock
	Logger *log.Logger
	// Ready backs /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
	// RateLimit caps writes per client IP per minute. Zero means 60.
	RateLimit int
}

type Server struct {
	http.Server
	svc         SettlementService
	clock       month.Clock
	logger      *log.Logger
	templates   *template.Template
	selector    *monthSelector
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	ready       func(ctx context.Context) error

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and registers every route.
func NewServer(addr string, svc SettlementService, opts Options) (*Server, error) {
	if opts.Clock == nil {
		opts.Clock = month.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	s := &Server{
		svc:         svc,
		clock:       opts.Clock,
		logger:      opts.Logger.WithComponent(log.ComponentHTTP),
		templates:   t,
		selector:    newMonthSelector(svc),
		rateLimiter: newRateLimiter(opts.RateLimit, time.Minute),
		metrics:     &securityMetrics{},
		ready:       opts.Ready,
	}

	mux := http.NewServeMux()
	staticHandler := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
		staticHandler.ServeHTTP(w, r)
	}))
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /notifications", s.handleNotifications)
	mux.HandleFunc("GET /ui/month-selector", s.handleMonthSelector)
	mux.HandleFunc("GET /api/months/{key}", s.handleMonthState)
	mux.HandleFunc("GET /api/settlements", s.handleListSettlements)
	mux.HandleFunc("POST /api/settlements", s.handleCreateSettlement)
	mux.HandleFunc("POST /api/settlements/{id}/settle", s.handleSettle)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.rateLimiter.startCleanup(rateLimitCleanup)
	return s, nil
}

// Caches returns the server's caches for periodic expiry sweeps.
func (s *Server) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.selector.cache}
}

// SecurityMetrics reports the middleware counters.
func (s *Server) SecurityMetrics() SecuritySnapshot {
	return s.metrics.snapshot()
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware stamps a request ID, applies security headers and the
// write rate limit, and logs every request on completion.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		reqID := requestID(r)

		logger := s.logger.With(log.FieldRequestID, reqID)
		ctx := log.NewContext(r.Context(), logger)
		r = r.WithContext(ctx)

		w.Header().Set(requestIDHeader, reqID)
		setSecurityHeaders(w.Header())

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded", log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
			rw.Header().Set("Retry-After", "60")
			writeError(rw, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		} else {
			next.ServeHTTP(rw, r)
		}

		log.NewStructuredLogger(logger).LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter captures the status code for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

var templateFuncs = template.FuncMap{
	"pence":      format.Pence,
	"monthYear":  month.FormatMonthYear,
	"shortMonth": month.FormatShort,
}

// render executes a named template into a buffer first so a failing
// template never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	html, err := s.renderString(name, data)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(html).Write(w)
}

func (s *Server) renderString(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
