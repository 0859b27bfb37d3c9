// Package http serves the RaceVault pages and HTMX partials.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"racevault/internal/auth"
	"racevault/internal/core"
	"racevault/internal/log"
	"racevault/internal/metrics"
	"racevault/internal/middleware/ratelimit"
	"racevault/internal/middleware/security"
	"racevault/internal/middleware/trace"
	"racevault/internal/services"
	appweb "racevault/web"
)

const (
	defaultReadTimeout    = 15 * time.Second
	defaultMaxUploadBytes = 10 << 20
	// multipart parts beyond this are spooled to disk
	formMemory = 4 << 20
)

// Pinger reports whether the data gateway is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Addr               string
	ReadTimeout        time.Duration
	RateLimitPerMinute int
	MaxUploadBytes     int64

	// ReceiptOrigin is the origin receipts are served from when it differs
	// from this server, e.g. the Supabase project URL.
	ReceiptOrigin string

	// Files serves locally stored receipts under /files/. Nil when the
	// object store hosts them itself.
	Files http.Handler
}

type Server struct {
	http.Server
	templates *template.Template
	tracker   *services.Tracker
	ready     Pinger
	metrics   *metrics.Metrics
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	maxUpload int64
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware,
// returning a ready-to-run server.
func NewServer(cfg Config, tracker *services.Tracker, resolver auth.Resolver, ready Pinger, m *metrics.Metrics, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	icons := core.DefaultIcons()
	if tracker != nil {
		icons = tracker.Icons()
	}
	t, err := parseTemplates(icons)
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates: t,
		tracker:   tracker,
		ready:     ready,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}, m),
		maxUpload: cfg.MaxUploadBytes,
		started:   time.Now(),
	}

	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", s.handleIndex)
	app.HandleFunc("GET /ui/races", s.handleRaceList)
	app.HandleFunc("POST /races", s.handleCreateRace)
	app.HandleFunc("GET /race/{id}", s.handleRaceDetail)
	app.HandleFunc("GET /ui/race/{id}/expenses", s.handleExpenseHistory)
	app.HandleFunc("POST /race/{id}/expenses", s.handleCreateExpense)

	mux := http.NewServeMux()
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static))),
	))
	if cfg.Files != nil {
		mux.Handle("GET /files/", http.StripPrefix("/files", cfg.Files))
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", m.Handler())
	mux.Handle("/", s.limitWrites(auth.Middleware(resolver)(app)))

	routeOf := func(r *http.Request) string {
		if _, p := mux.Handler(r); p != "/" {
			return p
		}
		_, p := app.Handler(r)
		return p
	}

	tracer := trace.NewMiddleware(logger, m, clientIP, routeOf)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig(cfg.ReceiptOrigin))

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       2 * cfg.ReadTimeout,
		WriteTimeout:      2 * cfg.ReadTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// limitWrites applies the rate limiter to POST requests only.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address without its port. Header values that are not IP
// addresses are ignored.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
