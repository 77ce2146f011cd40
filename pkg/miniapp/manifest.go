package miniapp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/framesync/pkg/domain"
)

// Format is the encoding of a manifest file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Manifest is the on-disk description of an app (app.yaml / app.json).
// It uses "mapstructure" tags so YAML and JSON decode through the same path.
type Manifest struct {
	Name     string      `mapstructure:"name"`
	Routes   []RouteSpec `mapstructure:"routes"`
	Fallback *PageSpec   `mapstructure:"fallback"`
}

// RouteSpec declares the view of one route.
type RouteSpec struct {
	Path     string `mapstructure:"path"`
	PageSpec `mapstructure:",squash"`
}

// PageSpec is the content of a view.
type PageSpec struct {
	Title string     `mapstructure:"title"`
	Body  string     `mapstructure:"body"`
	Links []LinkSpec `mapstructure:"links"`
}

// LinkSpec declares an in-app link.
type LinkSpec struct {
	Label string `mapstructure:"label"`
	To    string `mapstructure:"to"`
}

// Load reads a manifest file (YAML or JSON, by extension) and builds the app.
func Load(path string) (*App, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	format := FormatYAML
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		format = FormatJSON
	}

	app, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if app.Name == "" {
		app.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return app, nil
}

// Parse decodes a manifest and builds the app.
func Parse(data []byte, format Format) (*App, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse manifest json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse manifest yaml: %w", err)
		}
	}

	var m Manifest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &m,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return m.Build()
}

// Build converts the manifest into an App.
func (m Manifest) Build() (*App, error) {
	if len(m.Routes) == 0 {
		return nil, fmt.Errorf("invalid manifest: no routes")
	}

	views := make([]domain.View, 0, len(m.Routes))
	for i, r := range m.Routes {
		if strings.TrimSpace(r.Path) == "" {
			return nil, fmt.Errorf("invalid manifest: route %d has no path", i)
		}
		v := r.PageSpec.view()
		v.Route = domain.Route(r.Path)
		views = append(views, v)
	}

	var fallback *domain.View
	if m.Fallback != nil {
		v := m.Fallback.view()
		fallback = &v
	}

	return New(m.Name, views, fallback)
}

func (p PageSpec) view() domain.View {
	v := domain.View{Title: p.Title, Body: p.Body}
	for _, l := range p.Links {
		v.Links = append(v.Links, domain.Link{Label: l.Label, To: domain.Route(l.To)})
	}
	return v
}
