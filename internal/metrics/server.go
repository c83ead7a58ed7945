package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "resident/pkg/logx"
)

type ServerConfig struct {
	Enabled      bool
	Addr         string
	Path         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c ServerConfig) withDefaults() ServerConfig {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = "127.0.0.1:9464"
	}
	if strings.TrimSpace(c.Path) == "" {
		c.Path = "/metrics"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 5 * time.Second
	}
	return c
}

// HealthFunc reports liveness for /healthz. nil means always healthy.
type HealthFunc func(ctx context.Context) error

// Server manages lifecycle for the metrics HTTP listener.
type Server struct {
	obs    *Observer
	health HealthFunc
	log    logx.Logger

	mu   sync.Mutex
	srv  *http.Server
	ln   net.Listener
	addr string
	cfg  ServerConfig
}

func NewServer(obs *Observer, health HealthFunc, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{obs: obs, health: health, log: log.With(logx.String("comp", "metrics"))}
}

// Router builds the HTTP routes: the Prometheus endpoint and /healthz.
func (s *Server) Router(cfg ServerConfig) http.Handler {
	cfg = cfg.withDefaults()
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, cfg.Path, promhttp.HandlerFor(s.obs.Registry(), promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if s.health != nil {
			if err := s.health(req.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}

// Apply starts or stops the listener according to cfg. A running server is
// restarted only when its address, path or timeouts change.
func (s *Server) Apply(ctx context.Context, cfg ServerConfig) {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !cfg.Enabled {
		s.stopLocked(ctx)
		return
	}
	if s.srv != nil && s.cfg == cfg {
		return
	}
	s.stopLocked(ctx)
	s.startLocked(cfg)
}

func (s *Server) startLocked(cfg ServerConfig) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(cfg),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		s.log.Warn("metrics listen failed", logx.String("addr", cfg.Addr), logx.Err(err))
		return
	}

	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()
	s.cfg = cfg

	go func(addr string) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("metrics server error", logx.String("addr", addr), logx.Err(err))
		}
	}(s.addr)
	s.log.Info("metrics enabled", logx.String("addr", s.addr), logx.String("path", cfg.Path))
}

// Stop gracefully shuts down the listener.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx)
}

func (s *Server) stopLocked(ctx context.Context) {
	if s.srv == nil {
		return
	}
	srv, ln, addr := s.srv, s.ln, s.addr
	s.srv, s.ln, s.addr, s.cfg = nil, nil, "", ServerConfig{}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("metrics shutdown error", logx.String("addr", addr), logx.Err(err))
	}
	if ln != nil {
		_ = ln.Close()
	}
	s.log.Info("metrics disabled", logx.String("addr", addr))
}

// Addr reports the actual listen address if running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
