package http

import (
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quicklink/app/internal/domain/speeddial"
	"quicklink/app/internal/launcher"
	"quicklink/app/internal/presentation/http/templates"
)

// Options configures the HTTP server wiring.
type Options struct {
	Launcher      *launcher.Launcher
	Database      *gorm.DB
	Logger        *logrus.Logger
	SentryHub     *sentry.Hub
	RateLimiter   RateLimiterSettings
	MaxImageBytes int64
	// AllowedHosts lists host names served besides loopback ones.
	AllowedHosts []string
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server is the browser-facing presentation adapter of the launcher. Huma
// handles routing and request decoding; pages are rendered with templ.
type Server struct {
	api           huma.API
	mux           *stdhttp.ServeMux
	launcher      *launcher.Launcher
	db            *gorm.DB
	logger        *logrus.Logger
	sentry        *sentry.Hub
	rateLimiter   *RateLimiter
	maxImageBytes int64
	allowedHosts  map[string]struct{}
}

// NewServer validates the options and registers every launcher route on a
// fresh ServeMux.
func NewServer(opts Options) (*Server, error) {
	if opts.Launcher == nil {
		return nil, eris.New("launcher is required")
	}
	if err := opts.RateLimiter.validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	maxImageBytes := opts.MaxImageBytes
	if maxImageBytes <= 0 {
		maxImageBytes = speeddial.DefaultMaxImageBytes
	}

	allowedHosts := make(map[string]struct{}, len(opts.AllowedHosts))
	for _, host := range opts.AllowedHosts {
		if name := hostName(host); name != "" {
			allowedHosts[name] = struct{}{}
		}
	}

	mux := stdhttp.NewServeMux()
	srv := &Server{
		api:           humago.New(mux, huma.DefaultConfig(templates.SiteName, "1.0.0")),
		mux:           mux,
		launcher:      opts.Launcher,
		db:            opts.Database,
		logger:        logger,
		sentry:        opts.SentryHub,
		maxImageBytes: maxImageBytes,
		allowedHosts:  allowedHosts,
		rateLimiter:   NewRateLimiter(opts.RateLimiter.Burst, opts.RateLimiter.RequestsPerSecond, opts.RateLimiter.ClientTTL),
	}

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

func (r RateLimiterSettings) validate() error {
	switch {
	case r.Burst <= 0:
		return eris.New("rate limiter burst must be greater than zero")
	case r.RequestsPerSecond <= 0:
		return eris.New("rate limiter requests per second must be greater than zero")
	case r.ClientTTL <= 0:
		return eris.New("rate limiter client TTL must be greater than zero")
	}
	return nil
}

// Handler returns the mux serving pages, assets and the health check.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.originGuardMiddleware(),
		s.rateLimitMiddleware(),
		s.loggingMiddleware(),
		s.bodyLimitMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /favicon.ico", faviconHandler)
	s.mux.HandleFunc("HEAD /favicon.ico", faviconHandler)

	s.registerStaticRoute()

	s.registerPageRoutes()
	s.registerLinkRoutes()
	s.registerHealthRoute()
}

// ServeHTTP lets the server be mounted directly as an http.Handler.
func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
