/*
Package ports defines the driven ports (interfaces) of framesync.

These interfaces decouple the protocol components from transports, storage
backends and presentation.

# Key Interfaces

  - Port: one end of the cross-frame message channel (in-memory pipe or websocket).
  - Renderer: receives each view the guest renders.
  - StateStore: persists and loads page session history.
  - DistributedLocker: provides distributed locking for concurrent session access.
*/
package ports
