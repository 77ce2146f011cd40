// Package miniapp describes the content of an embedded mini-app: the view
// rendered for each route and the fallback view for unknown routes.
package miniapp

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/aretw0/framesync/pkg/domain"
)

//go:embed demo.yaml
var demoManifest []byte

// RoutePlaceholder is replaced by the requested route in fallback titles and bodies.
const RoutePlaceholder = "{route}"

// App maps routes to views. It is immutable once built and safe for concurrent use.
type App struct {
	Name     string
	views    map[domain.Route]domain.View
	order    []domain.Route
	fallback domain.View
}

// DefaultFallback is used when a manifest does not declare one.
var DefaultFallback = domain.View{
	Title: "Not found",
	Body:  "Nothing lives at " + RoutePlaceholder,
}

// New builds an app from views. Route paths are normalized and must be unique.
func New(name string, views []domain.View, fallback *domain.View) (*App, error) {
	app := &App{
		Name:     name,
		views:    make(map[domain.Route]domain.View, len(views)),
		fallback: DefaultFallback,
	}
	if fallback != nil {
		app.fallback = *fallback
	}

	for i, v := range views {
		route := domain.ParseRoute(string(v.Route))
		if _, dup := app.views[route]; dup {
			return nil, fmt.Errorf("route %d: duplicate path %q", i, route)
		}
		links, err := normalizeLinks(v.Links)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", route, err)
		}
		v.Route = route
		v.Links = links
		v.NotFound = false
		app.views[route] = v
		app.order = append(app.order, route)
	}

	links, err := normalizeLinks(app.fallback.Links)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	app.fallback.Links = links

	return app, nil
}

func normalizeLinks(in []domain.Link) ([]domain.Link, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]domain.Link, 0, len(in))
	for j, l := range in {
		if strings.TrimSpace(l.Label) == "" {
			return nil, fmt.Errorf("link %d: empty label", j)
		}
		out = append(out, domain.Link{
			Label: strings.TrimSpace(l.Label),
			To:    domain.ParseRoute(string(l.To)),
		})
	}
	return out, nil
}

// Demo returns the built-in demonstration app.
// It panics if the embedded manifest is invalid (build error).
func Demo() *App {
	app, err := Parse(demoManifest, FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("miniapp: invalid embedded demo manifest: %v", err))
	}
	return app
}

// Resolve returns the view for route, or the fallback view marked NotFound.
func (a *App) Resolve(route domain.Route) domain.View {
	route = domain.ParseRoute(string(route))
	if v, ok := a.views[route]; ok {
		v.Links = append([]domain.Link(nil), v.Links...)
		return v
	}
	v := a.fallback
	v.Route = route
	v.NotFound = true
	v.Title = strings.ReplaceAll(v.Title, RoutePlaceholder, string(route))
	v.Body = strings.ReplaceAll(v.Body, RoutePlaceholder, string(route))
	v.Links = append([]domain.Link(nil), v.Links...)
	return v
}

// Has reports whether route has its own view.
func (a *App) Has(route domain.Route) bool {
	_, ok := a.views[domain.ParseRoute(string(route))]
	return ok
}

// Routes returns the declared routes in manifest order.
func (a *App) Routes() []domain.Route {
	return append([]domain.Route(nil), a.order...)
}

// Views returns the declared views in manifest order.
func (a *App) Views() []domain.View {
	views := make([]domain.View, 0, len(a.order))
	for _, r := range a.order {
		views = append(views, a.Resolve(r))
	}
	return views
}
