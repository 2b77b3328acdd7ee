// Package server exposes conversion over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-michi/michi"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"github.com/mscno/yaml2props/server/middleware"
)

const (
	maxHeaderBytes    = 1 << 20
	readTimeout       = 30 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 30 * time.Second
	shutdownTimeout   = 10 * time.Second
	defaultRateLimit  = time.Second / 5
	defaultRateBurst  = 20
)

// Config configures a Server. Zero values pick the defaults.
type Config struct {
	Addr           string
	RateLimit      rate.Limit
	RateBurst      int
	AllowedOrigins []string
}

type Server struct {
	Router *michi.Router
	Server *http.Server

	limiter *middleware.RateLimiter
	logger  *slog.Logger
}

// New registers the routes of h and wraps them in the middleware chain:
// panic recovery, request logging, CORS and per-client rate limiting. The
// chain is served over HTTP/1.1 and cleartext HTTP/2.
func New(h *Handler, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = rate.Every(defaultRateLimit)
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}

	router := michi.NewRouter()
	router.Handle("POST /v1/convert", http.HandlerFunc(h.Convert))
	router.Handle("GET /v1/schemas", http.HandlerFunc(h.Schemas))
	router.Handle("GET /healthz", http.HandlerFunc(h.Healthz))

	limiter := middleware.NewRateLimiter(logger, middleware.IPAddressKeyFunc, cfg.RateLimit, cfg.RateBurst,
		middleware.WithSkipper(func(r *http.Request) bool { return r.URL.Path == "/healthz" }))

	handler := applyMiddleware(router,
		middleware.WithRecovery(logger),
		middleware.WithLogger(logger),
		middleware.WithCORS(logger, cfg.AllowedOrigins...),
		limiter.Limit,
	)

	return &Server{
		Router: router,
		Server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h2c.NewHandler(handler, &http2.Server{}),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Server.Handler.ServeHTTP(w, r)
}

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Server.Addr)
	if err != nil {
		s.limiter.Stop()
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("server listening", "addr", ln.Addr().String())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.limiter.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.Shutdown(shutdownCtx)
	<-errCh
	return err
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("shutting down server")
	defer s.limiter.Stop()
	if err := s.Server.Shutdown(ctx); err != nil {
		s.logger.Error("error shutting down server", "error", err)
		return err
	}
	return nil
}

func applyMiddleware(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	// Apply middleware in reverse order so the first middleware in the slice
	// is the outermost one (first to process the request)
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
