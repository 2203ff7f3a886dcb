package bakery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/archive"
	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/confirmlog"
	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/observability"
	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/registry"
	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/state"
	"github.com/AdamHev/Object-Detection-Bakery/internal/app/relay"
	"github.com/AdamHev/Object-Detection-Bakery/internal/logging"
	"github.com/AdamHev/Object-Detection-Bakery/internal/server"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	store         StateStore
	registry      SubscriberRegistry
	confirms      ConfirmationLog
	archiver      Archiver
	observability Observability
	logger        *slog.Logger
	promRegistry  *prometheus.Registry
}

// WithStateStore replaces the in-memory latest-detection slot.
func WithStateStore(s StateStore) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.store = s
	}
}

// WithRegistry replaces the subscriber registry.
func WithRegistry(r SubscriberRegistry) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.registry = r
	}
}

// WithConfirmationLog replaces the in-memory confirmation log.
func WithConfirmationLog(l ConfirmationLog) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.confirms = l
	}
}

// WithArchiver mirrors confirmations to a; it takes precedence over archive.conn_string.
func WithArchiver(a Archiver) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.archiver = a
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithLogger overrides the logger built from the log section of the config.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = l
	}
}

// WithPrometheusRegistry registers the relay collectors on reg and serves it
// on /metrics instead of a private registry.
func WithPrometheusRegistry(reg *prometheus.Registry) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.promRegistry = reg
	}
}

// Runtime owns the relay state, its HTTP surface and the metrics listener.
type Runtime struct {
	cfg        *Config
	logger     *slog.Logger
	obs        Observability
	svc        *relay.Service
	db         *sql.DB
	handler    http.Handler
	httpSrv    *http.Server
	metricsSrv *http.Server

	mu       sync.Mutex
	httpAddr net.Addr
}

// NewRuntime fills unset fields of cfg with defaults and bootstraps the default
// adapters (in-memory state, registry and confirmation log, Prometheus
// observability, optional Postgres archive).
// RuntimeOption values override any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	logger := overrides.logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Log, os.Stderr)
		if err != nil {
			return nil, err
		}
	}

	promReg := overrides.promRegistry
	if promReg == nil {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(promReg, logger)
	}

	store := overrides.store
	if store == nil {
		store = state.NewMemStore()
	}
	reg := overrides.registry
	if reg == nil {
		reg = registry.New(cfg.Relay.MaxSubscribers)
	}
	confirms := overrides.confirms
	if confirms == nil {
		confirms = confirmlog.NewMemLog(0)
	}

	var (
		db  *sql.DB
		arc = overrides.archiver
	)
	if arc == nil && cfg.Archive.ConnString != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Archive.ConnString)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		arc = archive.NewPostgresArchive(db, cfg.Archive.Table)
	}

	var svcOpts []relay.Option
	if arc != nil {
		svcOpts = append(svcOpts, relay.WithArchiver(arc))
		logger.Info("confirmation archive enabled", slog.String("archiver", arc.Name()))
	}
	svc := relay.New(store, reg, confirms, cfg.Relay, obs, svcOpts...)

	gin.SetMode(cfg.HTTP.GinMode)
	handler := server.NewRouter(svc, server.Options{
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Gatherer:     promReg,
		Logger:       logger,
	})

	rt := &Runtime{
		cfg:     cfg,
		logger:  logger,
		obs:     obs,
		svc:     svc,
		db:      db,
		handler: handler,
		httpSrv: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		},
	}
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		rt.metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		}
	}
	return rt, nil
}

// Handler exposes the relay routes for embedding in another server.
func (r *Runtime) Handler() http.Handler { return r.handler }

// Addr is the bound relay address once Start or Run has been called.
func (r *Runtime) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.httpAddr
}

func (r *Runtime) listen() ([]func() error, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ln, err := net.Listen("tcp", r.httpSrv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", r.httpSrv.Addr, err)
	}
	r.httpAddr = ln.Addr()
	serves := []func() error{serveFunc(r.httpSrv, ln)}

	if r.metricsSrv != nil {
		mln, err := net.Listen("tcp", r.metricsSrv.Addr)
		if err != nil {
			_ = ln.Close()
			return nil, fmt.Errorf("listen metrics %s: %w", r.metricsSrv.Addr, err)
		}
		serves = append(serves, serveFunc(r.metricsSrv, mln))
	}

	r.logger.Info("relay listening", slog.String("addr", ln.Addr().String()), slog.String("metrics_addr", r.cfg.Metrics.Addr))
	return serves, nil
}

func serveFunc(srv *http.Server, ln net.Listener) func() error {
	return func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Start binds the listeners and serves in the background. It returns once the
// sockets are open; call Run to block on a context instead.
func (r *Runtime) Start() error {
	serves, err := r.listen()
	if err != nil {
		return err
	}
	for _, serve := range serves {
		go func(serve func() error) {
			if err := serve(); err != nil {
				r.obs.LogError("server_exited", err)
			}
		}(serve)
	}
	return nil
}

// Run serves until ctx is cancelled or a listener fails, then shuts down
// within http.shutdown_timeout.
func (r *Runtime) Run(ctx context.Context) error {
	serves, err := r.listen()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, serve := range serves {
		g.Go(serve)
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return r.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown ends every subscription, stops both servers and closes the archive
// connection.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	r.svc.Close()

	if err := r.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close archive: %w", err))
		}
	}

	r.logger.Info("relay stopped")
	return errors.Join(errs...)
}
