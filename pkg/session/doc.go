/*
Package session implements session management and persistence orchestration.

A Manager keeps one live framesync.Page per session and mirrors each page's
history into a ports.StateStore after every operation. Concurrent access to a
session is serialized by a reference-counted local lock and, across replicas,
by an optional ports.DistributedLocker. Pages that are not live in this
process are rehydrated from the store on first access.
*/
package session
