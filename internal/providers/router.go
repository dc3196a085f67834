package providers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Matcher decides whether a route serves a model.
type Matcher func(ctx context.Context, model string) bool

// Declared matches models the client lists. A listing failure is a miss.
func Declared(c Client) Matcher {
	return func(ctx context.Context, model string) bool {
		models, err := c.ListModels(ctx)
		if err != nil {
			return false
		}
		return slices.Contains(models, model)
	}
}

// Prefix matches models starting with any of the prefixes.
func Prefix(prefixes ...string) Matcher {
	return func(_ context.Context, model string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(model, p) {
				return true
			}
		}
		return false
	}
}

// Exact matches the listed model names.
func Exact(models ...string) Matcher {
	return func(_ context.Context, model string) bool {
		return slices.Contains(models, model)
	}
}

// Any matches every model. Use it for a catch-all last route.
func Any() Matcher {
	return func(context.Context, string) bool { return true }
}

// AnyOf matches when any of the matchers does.
func AnyOf(matchers ...Matcher) Matcher {
	return func(ctx context.Context, model string) bool {
		for _, m := range matchers {
			if m(ctx, model) {
				return true
			}
		}
		return false
	}
}

// Route pairs a matcher with the client it selects.
type Route struct {
	Name   string
	Match  Matcher
	Client Client
}

// Router resolves model names to clients. The first matching route wins.
type Router struct {
	routes []Route
	logger *slog.Logger
}

// NewRouter builds a router over routes in priority order.
func NewRouter(logger *slog.Logger, routes ...Route) *Router {
	return &Router{
		routes: slices.Clone(routes),
		logger: logger.With("system", "providers"),
	}
}

// Resolve returns the client of the first route matching model.
func (r *Router) Resolve(ctx context.Context, model string) (Client, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: empty model", ErrNoProvider)
	}

	for _, route := range r.routes {
		if route.Match(ctx, model) {
			r.logger.DebugContext(ctx, "model routed", "model", model, "route", route.Name)
			return route.Client, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoProvider, model)
}

// Routes returns the routing table in priority order.
func (r *Router) Routes() []Route {
	return slices.Clone(r.routes)
}

// Models lists the models of every routed client keyed by route name.
// Clients that fail to list are logged and reported with no models.
func (r *Router) Models(ctx context.Context) map[string][]string {
	out := make(map[string][]string, len(r.routes))
	for _, route := range r.routes {
		models, err := route.Client.ListModels(ctx)
		if err != nil {
			r.logger.WarnContext(ctx, "list models failed", "route", route.Name, "error", err)
			models = []string{}
		}
		out[route.Name] = models
	}
	return out
}
