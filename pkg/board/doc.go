// Package board implements the client-side board engine: a per-board
// [Session] that owns the viewport, keeps the canonical item cache
// synchronized with a Board API, and creates and restores revisions.
//
// # Optimistic mutation
//
// Every mutation applies locally before the network call so the UI stays
// responsive, then reconciles with the server's response. All mutations use
// the same rollback discipline: capture a snapshot of the affected scope,
// apply the optimistic change, and on network failure restore the snapshot
// before surfacing the error. The cache is therefore always either fully
// pre-mutation or fully server-confirmed; there is no half-applied state to
// reason about.
//
// Two racing updates to the same item are resolved last-writer-wins: the last
// network response to arrive is what stays in the cache. The engine carries
// no version or etag check.
//
// # Stale completions
//
// In-flight requests are not cancellable; a request runs to completion or
// failure regardless of later state changes. Each mutation records the
// session epoch when it starts, and a completion whose epoch no longer
// matches (because a reload or restore replaced the cache in the meantime) is
// dropped instead of being applied to state it no longer describes.
//
// # Construction
//
// Sessions are explicitly constructed per board, never shared through package
// state, so two boards can never leak items into each other and tests get a
// fresh engine each time.
package board
