// ABOUTME: Application wiring for the addoc client
// ABOUTME: Builds store, state, router, pipeline client and session manager from config

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/2389/addoc-client/internal/api"
	"github.com/2389/addoc-client/internal/config"
	"github.com/2389/addoc-client/internal/credstore"
	"github.com/2389/addoc-client/internal/metrics"
	"github.com/2389/addoc-client/internal/router"
	"github.com/2389/addoc-client/internal/session"
)

// App is the assembled client.
type App struct {
	Config  *config.Config
	Store   credstore.Store
	State   *session.State
	Router  *router.Router
	Client  *api.Client
	Session *session.Manager

	logger   *slog.Logger
	registry *prometheus.Registry
}

// Option configures New.
type Option func(*options)

type options struct {
	store     credstore.Store
	transport http.RoundTripper
	routes    []router.Route
}

// WithStore uses store instead of opening the configured backend.
// The App still closes it.
func WithStore(store credstore.Store) Option {
	return func(o *options) { o.store = store }
}

// WithTransport sets the transport beneath the pipeline.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithRoutes replaces the default route table.
func WithRoutes(routes []router.Route) Option {
	return func(o *options) { o.routes = routes }
}

// New builds the App. The session is hydrated from the store but the
// router has not navigated anywhere yet.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{routes: router.DefaultRoutes()}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = credstore.Open(cfg.Session, logger)
		if err != nil {
			return nil, fmt.Errorf("opening credential store: %w", err)
		}
	}

	a := &App{Config: cfg, Store: store, logger: logger}
	if err := a.wire(ctx, o); err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, o options) error {
	var rec metrics.Recorder = metrics.Nop{}
	if a.Config.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		rec = metrics.NewCollector(a.registry)
	}

	a.State = session.NewState()

	r, err := router.New(o.routes, a.State,
		router.WithAppName(a.Config.App.Name),
		router.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}
	a.Router = r

	clientOpts := []api.Option{api.WithLogger(a.logger), api.WithMetrics(rec)}
	if o.transport != nil {
		clientOpts = append(clientOpts, api.WithTransport(o.transport))
	}
	client, err := api.NewClient(api.Config{
		BaseURL: a.Config.Server.BaseURL,
		Timeout: a.Config.Server.Timeout,
	}, a.State, r, clientOpts...)
	if err != nil {
		return fmt.Errorf("creating api client: %w", err)
	}
	a.Client = client

	mgr, err := session.NewManager(ctx, a.State, client, a.Store, r,
		session.WithLogger(a.logger),
		session.WithMetrics(rec),
	)
	if err != nil {
		return err
	}
	a.Session = mgr
	client.OnUnauthorized(mgr.HandleUnauthorized)

	a.logger.Debug("client ready",
		"base_url", client.BaseURL(),
		"store", a.Config.Session.Store,
		"authenticated", mgr.IsAuthenticated(),
	)
	return nil
}

// Registry returns the metrics registry, or nil when metrics are disabled.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// WriteMetrics dumps the collected metrics in the text exposition format.
// It is a no-op when metrics are disabled.
func (a *App) WriteMetrics(w io.Writer) error {
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metrics: %w", err)
		}
	}
	return nil
}

// Close releases the credential store.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}
	return errors.Join(errs...)
}
