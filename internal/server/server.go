package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers pprof handlers on http.DefaultServeMux
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/smpte/internal/batch"
	"github.com/zsiec/smpte/internal/config"
	apperrors "github.com/zsiec/smpte/internal/errors"
	"github.com/zsiec/smpte/internal/health"
	"github.com/zsiec/smpte/internal/logger"
	"github.com/zsiec/smpte/internal/presets"
	"github.com/zsiec/smpte/internal/ratelimit"
	"github.com/zsiec/smpte/pkg/timecode"
)

// Server serves the timecode API over HTTP/1.1 and, when TLS material is
// configured, HTTP/3.
type Server struct {
	config       *config.Config
	router       *mux.Router
	httpServer   *http.Server
	http3Server  *http3.Server
	logger       *logrus.Logger
	redis        *redis.Client
	store        presets.Store
	healthMgr    *health.Manager
	errorHandler *apperrors.ErrorHandler
	limiter      *ratelimit.Limiter
	runner       *batch.Runner

	shutdownOnce sync.Once
	closing      atomic.Bool
}

// New creates a server. The default rate from cfg must resolve against
// store. redisClient may be nil when presets live in memory.
func New(cfg *config.Config, log *logrus.Logger, store presets.Store, redisClient *redis.Client) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	defaultRate, err := presets.Resolve(ctx, store, cfg.Timecode.DefaultRate)
	if err != nil {
		return nil, fmt.Errorf("invalid default rate %q: %w", cfg.Timecode.DefaultRate, err)
	}

	s := &Server{
		config:       cfg,
		router:       mux.NewRouter(),
		logger:       log,
		redis:        redisClient,
		store:        store,
		healthMgr:    health.NewManager(log),
		errorHandler: apperrors.NewErrorHandler(log),
		runner: &batch.Runner{
			Resolver: func(ctx context.Context, text string) (timecode.Rate, error) {
				return presets.Resolve(ctx, store, text)
			},
			DefaultRate:   cfg.Timecode.DefaultRate,
			Concurrency:   cfg.Timecode.BatchConcurrency,
			MaxOperations: cfg.Timecode.MaxBatchSize,
			Logger:        logger.NewLogrusAdapter(logger.WithComponent(log, "batch")),
		},
	}

	if cfg.RateLimit.Enabled {
		s.limiter = ratelimit.New(&cfg.RateLimit, log)
	}

	s.registerHealthCheckers(defaultRate)
	s.setupRoutes()

	return s, nil
}

// Start runs the listeners until ctx is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	go s.healthMgr.StartPeriodicChecks(ctx, 30*time.Second)
	if s.limiter != nil {
		go s.limiter.Run(ctx, time.Minute)
	}

	errCh := make(chan error, 2)

	// http3Server must be set before the Alt-Svc middleware can run.
	if s.config.Server.HTTP3Enabled() {
		if err := s.startHTTP3(errCh); err != nil {
			_ = s.Shutdown()
			return err
		}
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}
	go func() {
		s.logger.WithField("port", s.config.Server.HTTPPort).Info("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && !s.closing.Load() && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		_ = s.Shutdown()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// startHTTP3 opens the QUIC listener and serves the router on it.
func (s *Server) startHTTP3(errCh chan<- error) error {
	cert, err := tls.LoadX509KeyPair(s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificates: %w", err)
	}

	tlsConfig := http3.ConfigureTLSConfig(&tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
	})

	addr := fmt.Sprintf(":%d", s.config.Server.HTTP3Port)
	listener, err := quic.ListenAddrEarly(addr, tlsConfig, &quic.Config{
		MaxIdleTimeout: s.config.Server.MaxIdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.http3Server = &http3.Server{
		Addr:      addr,
		Handler:   s.router,
		TLSConfig: tlsConfig,
	}

	go func() {
		s.logger.WithField("port", s.config.Server.HTTP3Port).Info("Starting HTTP/3 server")
		if err := s.http3Server.ServeListener(listener); err != nil && !s.closing.Load() {
			errCh <- fmt.Errorf("http3 server: %w", err)
		}
	}()
	return nil
}

// Shutdown stops both listeners. It is safe to call more than once.
func (s *Server) Shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.closing.Store(true)
		s.logger.Info("Shutting down server")

		timeout := s.config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(ctx); err != nil {
				shutdownErr = fmt.Errorf("failed to shutdown http server: %w", err)
			}
		}

		// http3.Server.Close does not drain; in-flight QUIC requests are cut.
		if s.http3Server != nil {
			if err := s.http3Server.Close(); err != nil && shutdownErr == nil {
				shutdownErr = fmt.Errorf("failed to shutdown http3 server: %w", err)
			}
		}

		s.logger.Info("Server shutdown complete")
	})
	return shutdownErr
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(logger.RequestLoggerMiddleware(s.logger))
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.errorHandler.Middleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.altSvcMiddleware)

	healthHandler := health.NewHandler(s.healthMgr)
	s.router.HandleFunc("/health", healthHandler.HandleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", healthHandler.HandleReady).Methods(http.MethodGet)
	s.router.HandleFunc("/live", healthHandler.HandleLive).Methods(http.MethodGet)

	s.router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	// Preflight for any path; corsMiddleware answers it.
	s.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api := s.router.PathPrefix("/api/v1").Subrouter()
	if s.limiter != nil {
		api.Use(s.limiter.Middleware)
	}

	api.HandleFunc("/timecode/parse", s.handleParse).Methods(http.MethodGet)
	api.HandleFunc("/timecode/format", s.handleFormat).Methods(http.MethodGet)
	api.HandleFunc("/timecode/add", s.handleAdd).Methods(http.MethodGet)
	api.HandleFunc("/timecode/difference", s.handleDifference).Methods(http.MethodGet)
	api.HandleFunc("/timecode/validate", s.handleValidate).Methods(http.MethodGet)

	api.HandleFunc("/batch", s.handleBatch).Methods(http.MethodPost)

	api.HandleFunc("/rates", s.handleListRates).Methods(http.MethodGet)
	api.HandleFunc("/rates/{name}", s.handleGetRate).Methods(http.MethodGet)
	api.HandleFunc("/rates/{name}", s.handlePutRate).Methods(http.MethodPut)
	api.HandleFunc("/rates/{name}", s.handleDeleteRate).Methods(http.MethodDelete)

	if s.config.Server.DebugEndpoints {
		s.setupDebugEndpoints()
	}

	s.router.NotFoundHandler = http.HandlerFunc(s.errorHandler.HandleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.errorHandler.HandleMethodNotAllowed)
}

func (s *Server) registerHealthCheckers(defaultRate timecode.Rate) {
	if s.redis != nil {
		s.healthMgr.Register(health.NewRedisChecker(s.redis))
	}
	s.healthMgr.Register(health.NewPresetStoreChecker(s.store))
	s.healthMgr.Register(health.NewTimecodeChecker(defaultRate))
	s.healthMgr.Register(health.NewMemoryChecker(0))
}

// setupDebugEndpoints mounts pprof and a listener summary.
func (s *Server) setupDebugEndpoints() {
	s.logger.Info("Enabling debug endpoints")

	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	s.router.HandleFunc("/debug/info", func(w http.ResponseWriter, r *http.Request) {
		info := map[string]interface{}{
			"protocols": map[string]bool{
				"http11": true,
				"http3":  s.config.Server.HTTP3Enabled(),
			},
			"ports": map[string]int{
				"http":  s.config.Server.HTTPPort,
				"http3": s.config.Server.HTTP3Port,
			},
			"default_rate": s.config.Timecode.DefaultRate,
			"rate_limit":   s.config.RateLimit.Enabled,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(info)
	}).Methods(http.MethodGet)
}

// RegisterRoutes adds route handlers. Call it before Start.
func (s *Server) RegisterRoutes(registerFunc func(*mux.Router)) {
	registerFunc(s.router)
}

// GetRouter returns the router for testing.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// HealthManager exposes the health manager so callers can add checkers.
func (s *Server) HealthManager() *health.Manager {
	return s.healthMgr
}
