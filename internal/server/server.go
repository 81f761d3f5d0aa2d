package server

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config carries everything the server needs. Checker and Store are built
// once by the caller and shared by all requests.
type Config struct {
	Addr     string // e.g. ":8080"
	Hostname string // shown on the page
	Build    BuildInfo

	DefaultBucket      string
	DefaultDriver      string
	UploadTimeout      time.Duration
	MaxUploadBytes     int64 // 0 means no limit
	RateLimitPerMinute int   // 0 disables limiting
	ExposeErrors       bool

	// TrustedProxies are peers whose forwarding headers name the client
	// for rate limiting. Everyone else is keyed by socket address.
	TrustedProxies []netip.Prefix

	Logger  zerolog.Logger
	Checker ConnectionChecker
	Store   ObjectStore
}

type Server struct {
	cfg        Config
	checker    ConnectionChecker
	store      ObjectStore
	metrics    *Metrics
	limiter    *rateLimiter
	handler    http.Handler
	httpServer *http.Server
}

func New(cfg Config) *Server {
	if cfg.DefaultDriver == "" {
		cfg.DefaultDriver = DriverMySQL
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 5 * time.Minute
	}

	s := &Server{
		cfg:     cfg,
		checker: cfg.Checker,
		store:   cfg.Store,
		metrics: NewMetrics(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)

	var submit http.Handler = http.HandlerFunc(s.handleIndex)
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = newRateLimiter(cfg.RateLimitPerMinute, time.Minute, limiterKey(cfg.TrustedProxies))
		submit = s.limiter.middleware(submit)
	}
	r.Handle("/", submit).Methods(http.MethodPost)

	r.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.HandleReady).Methods(http.MethodGet)
	r.HandleFunc("/live", s.HandleLive).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler(s.metrics, cfg.Build)).Methods(http.MethodGet)

	// requestID -> logging -> security headers -> compression -> router
	var handler http.Handler = r
	handler = compressionMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = loggingMiddleware(s.metrics)(handler)
	handler = requestIDMiddleware(cfg.Logger)(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
