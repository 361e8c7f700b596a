package board

import (
	"context"
	"fmt"

	"github.com/inkboard/inkboard/pkg/models"
)

// Revision management. Revisions are immutable point-in-time captures of the
// board; the server owns version numbering and the client never predicts the
// next version.

// SavingRevision reports whether a revision create is in flight.
func (s *Session) SavingRevision() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving > 0
}

// Restoring reports whether a restore is in flight.
func (s *Session) Restoring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoring > 0
}

// CreateRevision snapshots the current viewport and cached items and sends
// them to the server, which assigns the next version number for the board.
// Only server-confirmed state goes into a snapshot: temporary entries whose
// create is still in flight are skipped, since a revision is immutable and
// the create may yet fail or come back under a different ID. Items
// soft-deleted on the server are never in the cache and so never in a
// snapshot.
func (s *Session) CreateRevision(ctx context.Context, note string) (*models.Revision, error) {
	s.mu.Lock()
	snapshot := models.Snapshot{
		Viewport: s.viewport,
		Items:    make([]models.BoardItem, 0, len(s.items)),
	}
	for _, it := range s.items {
		if it.IsDeleted {
			continue
		}
		if _, pending := s.pendingCreates[it.ID]; pending {
			continue
		}
		snapshot.Items = append(snapshot.Items, *it.Clone())
	}
	s.saving++
	s.mu.Unlock()

	rev, err := s.api.CreateBoardRevision(ctx, s.boardID, snapshot, note)

	s.mu.Lock()
	s.saving--
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to create revision: %w", err)
	}
	return rev, nil
}

// ListRevisions returns up to limit revisions for the board, newest first.
// Read-only; the cache is untouched.
func (s *Session) ListRevisions(ctx context.Context, limit int) ([]*models.Revision, error) {
	revs, err := s.api.ListBoardRevisions(ctx, s.boardID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	return revs, nil
}

// RestoreRevision destructively resets the board to the given revision.
// The confirmed flag must be true; it exists so no call site can reach the
// server without an explicit confirmation step in front of it, and a false
// value returns ErrRestoreNotConfirmed before any network activity. The
// confirmation is a UX guard, not concurrency control.
//
// On success the session reloads items and viewport from the server rather
// than reconstructing them from the snapshot payload: server-side restore
// assigns fresh item IDs, so only the server knows the resulting state.
func (s *Session) RestoreRevision(ctx context.Context, version int64, confirmed bool) error {
	if !confirmed {
		return ErrRestoreNotConfirmed
	}

	s.mu.Lock()
	s.restoring++
	s.mu.Unlock()

	err := s.api.RestoreBoardRevision(ctx, s.boardID, version)

	s.mu.Lock()
	s.restoring--
	s.mu.Unlock()
	if err != nil {
		// No local mutation has happened; the cache still reflects the
		// pre-restore board.
		return fmt.Errorf("failed to restore revision %d: %w", version, err)
	}

	if err := s.Reload(ctx); err != nil {
		return fmt.Errorf("revision %d restored but reload failed: %w", version, err)
	}
	return nil
}
