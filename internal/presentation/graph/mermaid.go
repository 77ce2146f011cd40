package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/framesync/pkg/domain"
)

// GraphOverlay contains session state to visualize on the graph.
type GraphOverlay struct {
	VisitedRoutes []domain.Route
	CurrentRoute  domain.Route
}

// OverlayFromSnapshot marks every route in the history as visited and the
// displayed route as current.
func OverlayFromSnapshot(snap domain.Snapshot) *GraphOverlay {
	overlay := &GraphOverlay{CurrentRoute: snap.Route}
	for _, hash := range snap.Entries {
		route, _ := domain.ParseHash(hash)
		overlay.VisitedRoutes = append(overlay.VisitedRoutes, route)
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart of the app's routes and links.
// It applies semantic styling:
// - Root: ((Circle))
// - Route: [Rectangle]
// - Link target without a view: {{Hexagon}}, reached through a dotted edge
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(views []domain.View, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	known := make(map[domain.Route]bool, len(views))
	for _, v := range views {
		known[v.Route] = true
	}

	missing := make(map[domain.Route]bool)
	var missingOrder []domain.Route
	addMissing := func(r domain.Route) {
		if !known[r] && !missing[r] {
			missing[r] = true
			missingOrder = append(missingOrder, r)
		}
	}

	for _, v := range views {
		safeID := sanitizeMermaidID(v.Route)

		opener, closer := "[", "]"
		if v.Route.IsRoot() {
			opener, closer = "((", "))"
		}
		label := string(v.Route)
		if v.Title != "" {
			label = fmt.Sprintf("%s <br/> %s", v.Route, escape(v.Title))
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, l := range v.Links {
			arrow := fmt.Sprintf("-- \"%s\" -->", escape(l.Label))
			if !known[l.To] {
				arrow = fmt.Sprintf("-. \"%s\" .->", escape(l.Label))
				addMissing(l.To)
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(l.To)))
		}
	}

	if overlay != nil {
		for _, r := range overlay.VisitedRoutes {
			addMissing(r)
		}
		if overlay.CurrentRoute != "" {
			addMissing(overlay.CurrentRoute)
		}
	}
	for _, r := range missingOrder {
		sb.WriteString(fmt.Sprintf("    %s{{\"%s <br/> not found\"}}\n", sanitizeMermaidID(r), r))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, r := range overlay.VisitedRoutes {
			safeID := sanitizeMermaidID(r)
			if !visitedSet[safeID] {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentRoute != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentRoute)))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// sanitizeMermaidID maps a route to a node ID. The prefix keeps IDs clear of
// Mermaid keywords such as "end".
func sanitizeMermaidID(r domain.Route) string {
	s := strings.TrimPrefix(string(r), "/")
	if s == "" {
		return "route_root"
	}
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return "route_" + s
}
