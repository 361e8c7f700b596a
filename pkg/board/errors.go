package board

import "errors"

var (
	// ErrItemNotFound is returned when a mutation targets an ID that is not
	// in the session's cache.
	ErrItemNotFound = errors.New("board: item not found")

	// ErrRestoreNotConfirmed is returned by Session.RestoreRevision when the
	// caller has not confirmed the restore. Restoring is destructive; the
	// request must never reach the server without an explicit confirmation
	// step at the call site.
	ErrRestoreNotConfirmed = errors.New("board: restore requires explicit confirmation")
)
