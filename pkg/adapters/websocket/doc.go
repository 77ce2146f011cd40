// Package websocket carries the frame protocol over a websocket, so the host
// controller and the guest router can live in different processes.
package websocket
