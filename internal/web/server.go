// Package web provides the HTTP server and handlers for the NVL and Thẻ Kho
// admin screens.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/nvl/internal/config"
	"github.com/JonMunkholm/nvl/internal/core"
	"github.com/JonMunkholm/nvl/internal/logging"
	"github.com/JonMunkholm/nvl/internal/tagprint"
	mw "github.com/JonMunkholm/nvl/internal/web/middleware"
)

// Server is the HTTP server for the admin screens.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	tags     *tagprint.Renderer
	gatherer prometheus.Gatherer
	sessions *sessionStore
	limiter  *rateLimiter
	router   *chi.Mux
	server   *http.Server

	stopOnce sync.Once
	stop     chan struct{}
}

// NewServer creates a Server. gatherer may be nil, in which case /metrics is
// not mounted.
func NewServer(cfg *config.Config, service *core.Service, tags *tagprint.Renderer, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:      cfg,
		service:  service,
		tags:     tags,
		gatherer: gatherer,
		router:   chi.NewRouter(),
		stop:     make(chan struct{}),
	}
	s.sessions = newSessionStore(cfg.Screen.SessionTTL, cfg.Security.SecureCookies, func() *workspace {
		return &workspace{
			materials: service.NewMaterialScreen(),
			packages:  service.NewPackageScreen(),
		}
	})
	go s.sessions.run(s.stop)

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		go s.limiter.cleanup(s.stop)
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes. Every route runs under the
// request timeout except the import, which is bounded by the import timeout
// inside its handler.
func (s *Server) setupRoutes() {
	requestTimeout := timeout(s.cfg.Server.RequestTimeout)

	s.router.Group(func(r chi.Router) {
		r.Use(requestTimeout)
		r.Get("/health", s.handleHealth)
		if s.gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		}
		r.Get("/images/{key}", s.handleImage)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.sessions.middleware)

		r.With(requestTimeout).Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, materialsPath, http.StatusFound)
		})

		r.Route(materialsPath, func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(requestTimeout)
				r.Get("/", s.handleMaterials)
				r.Post("/refresh", s.handleMaterialsRefresh)
				r.Post("/select/{id}", s.handleMaterialSelect)
				r.Post("/select-all", s.handleMaterialsSelectAll)
				r.Post("/select-clear", s.handleMaterialsSelectClear)
				r.Post("/{id}/delete", s.handleMaterialDelete)
				r.Post("/bulk-delete", s.handleMaterialsBulkDelete)
				r.Get("/export", s.handleMaterialsExport)

				r.Post("/form/open", s.handleFormOpen)
				r.Post("/form/image", s.handleFormImage)
				r.Post("/form/submit", s.handleFormSubmit)
				r.Post("/form/cancel", s.handleFormCancel)

				r.Get("/import/template", s.handleImportTemplate)
				r.Post("/import/preview", s.handleImportPreview)
			})

			r.With(extendDeadlines(s.cfg.Import.Timeout)).Post("/import", s.handleImport)
		})

		r.Route(packagesPath, func(r chi.Router) {
			r.Use(requestTimeout)
			r.Get("/", s.handlePackages)
			r.Post("/refresh", s.handlePackagesRefresh)
			r.Post("/select/{id}", s.handlePackageSelect)
			r.Post("/select-all", s.handlePackagesSelectAll)
			r.Post("/select-clear", s.handlePackagesSelectClear)
			r.Get("/print", s.handlePackagesPrint)
		})
	})
}

// timeout is middleware.Timeout, or a no-op when d is not positive.
func timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.Timeout(d)
}

// deadlineGrace covers the upload itself and the store refresh that ends
// an import.
const deadlineGrace = time.Minute

// extendDeadlines pushes the connection's read and write deadlines past d
// so the server's ReadTimeout and WriteTimeout do not cut a long request.
func extendDeadlines(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d > 0 {
				rc := http.NewResponseController(w)
				deadline := time.Now().Add(d + deadlineGrace)
				if err := rc.SetReadDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
					logging.FromContext(r.Context()).Warn("extend read deadline", "error", err)
				}
				if err := rc.SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
					logging.FromContext(r.Context()).Warn("extend write deadline", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Close stops the session and rate limiter sweepers.
func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Remote image references and data: previews and barcodes
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self'")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a fixed-window request limit per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
}

// cleanup removes stale visitor entries until stop is closed.
func (rl *rateLimiter) cleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// allow consumes a token for ip if one is left in the current window.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}

	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, core.MapError(errRateLimited), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr, as rewritten by TrustedRealIP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
