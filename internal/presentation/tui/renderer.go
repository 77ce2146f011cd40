package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/framesync/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// Markdown formats a view as a markdown document.
func Markdown(view domain.View) string {
	var sb strings.Builder
	title := view.Title
	if title == "" {
		title = string(view.Route)
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if view.Body != "" {
		fmt.Fprintf(&sb, "%s\n\n", view.Body)
	}
	for _, l := range view.Links {
		fmt.Fprintf(&sb, "- **%s** → `%s`\n", l.Label, l.To)
	}
	return sb.String()
}

// ViewRenderer writes every view it receives to a terminal.
// It implements ports.Renderer.
type ViewRenderer struct {
	mu     sync.Mutex
	w      io.Writer
	render func(string) (string, error)
}

// NewViewRenderer returns a renderer writing to w. style selects a glamour
// style ("auto", "dark", "light", "ascii", "notty"); "" writes raw markdown.
func NewViewRenderer(w io.Writer, style string) (*ViewRenderer, error) {
	r := &ViewRenderer{w: w}
	switch style {
	case "":
		r.render = func(md string) (string, error) { return md, nil }
	default:
		opt := glamour.WithStandardStyle(style)
		if style == "auto" {
			opt = glamour.WithAutoStyle()
		}
		g, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(80))
		if err != nil {
			return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		r.render = g.Render
	}
	return r, nil
}

// Render writes view.
func (r *ViewRenderer) Render(_ context.Context, view domain.View) error {
	out, err := r.render(Markdown(view))
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = io.WriteString(r.w, out)
	return err
}
