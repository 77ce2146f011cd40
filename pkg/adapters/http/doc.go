/*
Package http exposes page sessions over a REST API.

	POST   /sessions                 {"url": "http://host/#!/foo"}
	GET    /sessions/{id}            snapshot
	POST   /sessions/{id}/click      {"label": "Go home"}
	POST   /sessions/{id}/back
	GET    /sessions/{id}/frame      HTML rendering
	GET    /events?session_id={id}   SSE stream of snapshot diffs
	GET    /ws/host?url=...          host controller for a remote guest

Diffs reach /events only when the session manager publishes to the server's
StreamManager (session.WithChangeListener(streams.Publish)).
*/
package http
