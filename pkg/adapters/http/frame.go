package http

import (
	"html/template"
	"net/http"

	"github.com/aretw0/framesync/pkg/domain"
	"github.com/go-chi/chi/v5"
)

var frameTemplate = template.Must(template.New("frame").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>{{.App}}{{if .Snapshot.View}} - {{.Snapshot.View.Title}}{{end}}</title>
</head>
<body>
<header>
  <form method="post" data-op="back"><button {{if eq .Snapshot.Index 0}}disabled{{end}}>&larr;</button></form>
  <form method="post" data-op="forward"><button {{if .AtEnd}}disabled{{end}}>&rarr;</button></form>
  <code id="address">{{.Snapshot.Hash}}</code>
</header>
<main id="frame" data-route="{{.Snapshot.Route}}">
{{- with .Snapshot.View}}
  <h1>{{.Title}}</h1>
  <p>{{.Body}}</p>
  <nav>
  {{- range .Links}}
    <button class="link" data-label="{{.Label}}">{{.Label}}</button>
  {{- end}}
  </nav>
{{- else}}
  <p><em>Mini-app not rendered yet.</em></p>
{{- end}}
</main>
<script>
const base = "/sessions/{{.Snapshot.SessionID}}";
const post = (op, body) => fetch(base + "/" + op, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body || {})}).then(() => location.reload());
document.querySelectorAll("form[data-op]").forEach(f => f.addEventListener("submit", e => { e.preventDefault(); post(f.dataset.op); }));
document.querySelectorAll("button.link").forEach(b => b.addEventListener("click", () => post("click", {label: b.dataset.label})));
new EventSource("/events?session_id={{.Snapshot.SessionID}}").onmessage = () => location.reload();
</script>
</body>
</html>
`))

type frameData struct {
	App      string
	Snapshot domain.Snapshot
	AtEnd    bool
}

// GetFrame handles the GET /sessions/{id}/frame request: an HTML rendering of
// the host page with the embedded view.
func (s *Server) GetFrame(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "GetFrame", err)
		return
	}
	data := frameData{
		App:      s.Sessions.App().Name,
		Snapshot: snap,
		AtEnd:    snap.Index >= len(snap.Entries)-1,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := frameTemplate.Execute(w, data); err != nil {
		s.logger.Error("GetFrame: template failed", "err", err)
	}
}
