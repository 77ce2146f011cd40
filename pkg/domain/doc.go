/*
Package domain contains the core models of the frame synchronization protocol.

It defines routes and their hash encoding, the cross-frame message contract,
views, persisted session state and observability events. This package is kept
pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Route: the opaque in-app path ("/foo"), normalized by ParseRoute.
  - Hash: the URL fragment carrying a route ("#!/foo"), see ParseHash and FormatHash.
  - Message: the navigate / routeChanged / ready contract between host and guest.
  - View: what the guest renders for a route, including its links.
  - SessionState: the persisted history of a page session.
*/
package domain
