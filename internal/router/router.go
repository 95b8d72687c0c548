// ABOUTME: Router tracking the current location and window title
// ABOUTME: Runs every navigation through the guard and supports hard redirects

package router

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Router errors
var (
	ErrRouteNotFound = errors.New("route not found")
	ErrRedirectLoop  = errors.New("too many guard redirects")
)

// DefaultAppName is used for titles when no name is configured.
const DefaultAppName = "ADDoc"

const maxRedirects = 5

// Router resolves paths and commits guarded transitions.
type Router struct {
	routes  []compiledRoute
	view    SessionView
	guard   Guard
	appName string
	logger  *slog.Logger

	mu       sync.RWMutex
	location string
	title    string
	current  *Match
	onReload []func()
}

// Option configures a Router.
type Option func(*Router)

// WithAppName sets the title suffix.
func WithAppName(name string) Option {
	return func(r *Router) {
		if name != "" {
			r.appName = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// New compiles routes. view is read by the guard on every transition.
// The router starts with no location; call Navigate to enter the first view.
func New(routes []Route, view SessionView, opts ...Option) (*Router, error) {
	r := &Router{
		view:    view,
		appName: DefaultAppName,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "router")
	r.title = r.appName

	seen := make(map[string]bool, len(routes))
	for _, route := range routes {
		c, err := compile(route)
		if err != nil {
			return nil, err
		}
		if seen[route.Path] {
			return nil, fmt.Errorf("route %q: declared twice", route.Path)
		}
		seen[route.Path] = true
		r.routes = append(r.routes, c)
	}
	return r, nil
}

// Routes returns the route table in declaration order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	for i, c := range r.routes {
		out[i] = c.route
	}
	return out
}

// Resolve matches path against the table without navigating.
func (r *Router) Resolve(path string) (*Match, error) {
	clean := cleanPath(path)
	parts := splitPath(clean)
	for _, c := range r.routes {
		if params, ok := c.match(parts); ok {
			return &Match{Route: c.route, Path: clean, Params: params}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, clean)
}

// Navigate runs path through the guard, following redirects, and commits
// the final location. On error the location is unchanged.
func (r *Router) Navigate(path string) (*Match, error) {
	requested := cleanPath(path)
	target := requested

	for hops := 0; ; hops++ {
		if hops > maxRedirects {
			return nil, fmt.Errorf("%w: %s", ErrRedirectLoop, requested)
		}
		m, err := r.Resolve(target)
		if err != nil {
			return nil, err
		}

		decision := r.guard.Decide(m, r.view)
		if decision.Allowed() {
			if target != requested {
				m.RedirectedFrom = requested
			}
			r.commit(m)
			return m, nil
		}

		r.logger.Debug("navigation redirected",
			"from", target,
			"to", decision.Redirect,
			"reason", decision.Reason,
		)
		target = decision.Redirect
	}
}

func (r *Router) commit(m *Match) {
	r.mu.Lock()
	r.location = m.Path
	r.current = m
	r.title = r.titleFor(m.Route)
	title := r.title
	r.mu.Unlock()

	r.logger.Debug("navigated", "location", m.Path, "route", m.Route.Name, "title", title)
}

func (r *Router) titleFor(route Route) string {
	if route.Meta.Title == "" {
		return r.appName
	}
	return route.Meta.Title + " | " + r.appName
}

// Location returns the committed path, "" before the first navigation.
func (r *Router) Location() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.location
}

// Title returns the current window title.
func (r *Router) Title() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.title
}

// Current returns the committed match, or nil.
func (r *Router) Current() *Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// OnReload registers fn to run on every hard redirect, before the new view
// is entered. Use it to drop state tied to the previous session.
func (r *Router) OnReload(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReload = append(r.onReload, fn)
}

// HardRedirect discards view state and navigates to path.
func (r *Router) HardRedirect(path string) {
	r.mu.Lock()
	hooks := append([]func(){}, r.onReload...)
	r.current = nil
	r.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}

	if _, err := r.Navigate(path); err != nil {
		r.logger.Error("hard redirect failed", "path", path, "error", err)
		return
	}
	r.logger.Info("hard redirect", "path", path)
}
