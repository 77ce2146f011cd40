package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/framesync/internal/presentation/graph"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/miniapp"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		views    []domain.View
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name:  "Root Shape",
			views: []domain.View{{Route: "/", Title: "Home"}},
			contains: []string{
				"route_root((\"/ <br/> Home\"))",
			},
		},
		{
			name: "ID Sanitization",
			views: []domain.View{
				{Route: "/docs/getting-started"},
				{Route: "/v1.2"},
			},
			contains: []string{
				"route_docs_getting_started[\"/docs/getting-started\"]",
				"route_v1_2[\"/v1.2\"]",
			},
		},
		{
			name: "Link Edges",
			views: []domain.View{
				{Route: "/", Links: []domain.Link{{Label: "Say \"hi\"", To: "/foo"}}},
				{Route: "/foo"},
			},
			contains: []string{
				"route_root -- \"Say 'hi'\" --> route_foo",
			},
		},
		{
			name: "Dangling Link",
			views: []domain.View{
				{Route: "/", Links: []domain.Link{{Label: "Broken", To: "/gone"}}},
			},
			contains: []string{
				"route_root -. \"Broken\" .-> route_gone",
				"route_gone{{\"/gone <br/> not found\"}}",
			},
		},
		{
			name:     "No Overlay",
			views:    []domain.View{{Route: "/"}},
			excludes: []string{"classDef"},
		},
		{
			name:  "Overlay",
			views: []domain.View{{Route: "/"}, {Route: "/foo"}},
			overlay: &graph.GraphOverlay{
				VisitedRoutes: []domain.Route{"/", "/foo", "/"},
				CurrentRoute:  "/foo",
			},
			contains: []string{
				"class route_root visited;",
				"class route_foo visited;",
				"class route_foo current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.views, tt.overlay)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestGenerateMermaid_VisitedDeduplicated(t *testing.T) {
	got := graph.GenerateMermaid([]domain.View{{Route: "/"}}, &graph.GraphOverlay{
		VisitedRoutes: []domain.Route{"/", "/"},
	})
	assert.Equal(t, 1, strings.Count(got, "class route_root visited;"))
}

func TestOverlayFromSnapshot(t *testing.T) {
	snap := domain.Snapshot{
		Entries: []string{"", "#!/foo", "#!/nope"},
		Index:   1,
		Route:   "/foo",
	}
	overlay := graph.OverlayFromSnapshot(snap)
	assert.Equal(t, []domain.Route{"/", "/foo", "/nope"}, overlay.VisitedRoutes)
	assert.Equal(t, domain.Route("/foo"), overlay.CurrentRoute)

	got := graph.GenerateMermaid(miniapp.Demo().Views(), overlay)
	assert.Contains(t, got, "route_nope{{")
	assert.Contains(t, got, "class route_foo current;")
}
