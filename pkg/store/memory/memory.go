// Package memory provides an in-memory implementation of the
// [github.com/inkboard/inkboard/pkg/store.Store] interface.
//
// It backs the test suites and `inkboard serve --store memory` for
// throwaway development servers. Nothing is persisted; every value crossing
// the boundary is cloned so callers can never mutate store internals, which
// keeps its behavior honest relative to the real database backends.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inkboard/inkboard/pkg/models"
	"github.com/inkboard/inkboard/pkg/store"
)

// MemoryStore implements store.Store with maps under a single mutex.
type MemoryStore struct {
	mu        sync.Mutex
	boards    map[models.BoardID]*models.Board
	items     map[models.ItemID]*models.BoardItem
	itemOrder map[models.BoardID][]models.ItemID
	revisions map[models.BoardID][]*models.Revision
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		boards:    make(map[models.BoardID]*models.Board),
		items:     make(map[models.ItemID]*models.BoardItem),
		itemOrder: make(map[models.BoardID][]models.ItemID),
		revisions: make(map[models.BoardID][]*models.Revision),
	}
}

// Migrate is a no-op for the in-memory store.
func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Board operations

func (s *MemoryStore) CreateBoard(ctx context.Context, board *models.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if board.ID.IsZero() {
		board.ID = models.NewBoardID()
	}
	if board.Viewport.Zoom == 0 {
		board.Viewport = models.DefaultViewport()
	}
	now := time.Now().UTC()
	board.CreatedAt = now
	board.UpdatedAt = now
	b := *board
	s.boards[b.ID] = &b
	return nil
}

func (s *MemoryStore) GetBoard(ctx context.Context, id models.BoardID) (*models.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok {
		return nil, fmt.Errorf("board %s: %w", id, store.ErrNotFound)
	}
	out := *b
	return &out, nil
}

// Item operations

func (s *MemoryStore) ListItems(ctx context.Context, boardID models.BoardID) ([]*models.BoardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[boardID]; !ok {
		return nil, fmt.Errorf("board %s: %w", boardID, store.ErrNotFound)
	}
	out := make([]*models.BoardItem, 0)
	for _, id := range s.itemOrder[boardID] {
		it := s.items[id]
		if it == nil || it.IsDeleted {
			continue
		}
		out = append(out, it.Clone())
	}
	return out, nil
}

func (s *MemoryStore) GetItem(ctx context.Context, id models.ItemID) (*models.BoardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.IsDeleted {
		return nil, fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}
	return it.Clone(), nil
}

func (s *MemoryStore) CreateItem(ctx context.Context, item *models.BoardItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[item.BoardID]; !ok {
		return fmt.Errorf("board %s: %w", item.BoardID, store.ErrNotFound)
	}
	if err := store.ValidateItem(item); err != nil {
		return err
	}
	if err := store.CheckParent(ctx, s.getLocked, item.BoardID, models.ItemID{}, item.ParentItemID); err != nil {
		return err
	}
	if item.ID.IsZero() {
		item.ID = models.NewItemID()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.IsDeleted = false
	s.items[item.ID] = item.Clone()
	s.itemOrder[item.BoardID] = append(s.itemOrder[item.BoardID], item.ID)
	return nil
}

func (s *MemoryStore) UpdateItem(ctx context.Context, id models.ItemID, patch models.ItemPatch) (*models.BoardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(ctx, id, patch)
}

func (s *MemoryStore) DeleteItem(ctx context.Context, id models.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.IsDeleted {
		return fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}
	it.IsDeleted = true
	it.UpdatedAt = time.Now().UTC()
	s.detachChildrenLocked(id)
	return nil
}

func (s *MemoryStore) BatchUpdateItems(ctx context.Context, boardID models.BoardID, updates []models.ItemUpdate) (*models.BatchUpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[boardID]; !ok {
		return nil, fmt.Errorf("board %s: %w", boardID, store.ErrNotFound)
	}

	result := &models.BatchUpdateResult{}
	for _, u := range updates {
		it, ok := s.items[u.ID]
		if !ok || it.IsDeleted || it.BoardID != boardID {
			result.Failed = append(result.Failed, u.ID)
			continue
		}
		updated, err := s.updateLocked(ctx, u.ID, u.Patch)
		if err != nil {
			result.Failed = append(result.Failed, u.ID)
			continue
		}
		result.Updated = append(result.Updated, updated)
	}
	return result, nil
}

// Revision operations

func (s *MemoryStore) ListRevisions(ctx context.Context, boardID models.BoardID, limit int) ([]*models.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[boardID]; !ok {
		return nil, fmt.Errorf("board %s: %w", boardID, store.ErrNotFound)
	}
	revs := s.revisions[boardID]
	out := make([]*models.Revision, 0, len(revs))
	for i := len(revs) - 1; i >= 0; i-- { // newest first
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, cloneRevision(revs[i]))
	}
	return out, nil
}

func (s *MemoryStore) CreateRevision(ctx context.Context, boardID models.BoardID, snapshot models.Snapshot, note string) (*models.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[boardID]; !ok {
		return nil, fmt.Errorf("board %s: %w", boardID, store.ErrNotFound)
	}
	revs := s.revisions[boardID]
	var version int64 = 1
	if len(revs) > 0 {
		version = revs[len(revs)-1].Version + 1
	}
	rev := &models.Revision{
		ID:        models.NewRevisionID(),
		BoardID:   boardID,
		Version:   version,
		Snapshot:  cloneSnapshot(snapshot),
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
	s.revisions[boardID] = append(revs, rev)
	return cloneRevision(rev), nil
}

func (s *MemoryStore) RestoreRevision(ctx context.Context, boardID models.BoardID, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[boardID]
	if !ok {
		return fmt.Errorf("board %s: %w", boardID, store.ErrNotFound)
	}
	var rev *models.Revision
	for _, r := range s.revisions[boardID] {
		if r.Version == version {
			rev = r
			break
		}
	}
	if rev == nil {
		return fmt.Errorf("revision %d of board %s: %w", version, boardID, store.ErrNotFound)
	}

	now := time.Now().UTC()
	for _, id := range s.itemOrder[boardID] {
		if it := s.items[id]; it != nil && !it.IsDeleted {
			it.IsDeleted = true
			it.UpdatedAt = now
		}
	}

	// Snapshot items come back under fresh IDs; parent references are
	// remapped from snapshot IDs to the new ones.
	idMap := make(map[models.ItemID]models.ItemID, len(rev.Snapshot.Items))
	for i := range rev.Snapshot.Items {
		idMap[rev.Snapshot.Items[i].ID] = models.NewItemID()
	}
	for i := range rev.Snapshot.Items {
		snapItem := rev.Snapshot.Items[i]
		restored := snapItem.Clone()
		restored.ID = idMap[snapItem.ID]
		restored.BoardID = boardID
		restored.IsDeleted = false
		restored.CreatedAt = now
		restored.UpdatedAt = now
		if snapItem.ParentItemID != nil {
			if mapped, ok := idMap[*snapItem.ParentItemID]; ok {
				restored.ParentItemID = &mapped
			} else {
				// Parent was not part of the snapshot; drop the link rather
				// than point at a soft-deleted item.
				restored.ParentItemID = nil
			}
		}
		s.items[restored.ID] = restored
		s.itemOrder[boardID] = append(s.itemOrder[boardID], restored.ID)
	}

	b.Viewport = rev.Snapshot.Viewport
	b.UpdatedAt = now
	return nil
}

// Internal helpers. All run with the lock held.

func (s *MemoryStore) getLocked(ctx context.Context, id models.ItemID) (*models.BoardItem, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return it, nil
}

func (s *MemoryStore) updateLocked(ctx context.Context, id models.ItemID, patch models.ItemPatch) (*models.BoardItem, error) {
	it, ok := s.items[id]
	if !ok || it.IsDeleted {
		return nil, fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}
	candidate := it.Clone()
	patch.Apply(candidate)
	if err := store.ValidateItem(candidate); err != nil {
		return nil, err
	}
	if err := store.CheckParent(ctx, s.getLocked, candidate.BoardID, id, candidate.ParentItemID); err != nil {
		return nil, err
	}
	candidate.UpdatedAt = time.Now().UTC()
	s.items[id] = candidate
	return candidate.Clone(), nil
}

// detachChildrenLocked clears the parent reference of live children of a
// deleted item, so no live item ever points at a soft-deleted parent.
func (s *MemoryStore) detachChildrenLocked(parent models.ItemID) {
	for _, it := range s.items {
		if !it.IsDeleted && it.ParentItemID != nil && *it.ParentItemID == parent {
			it.ParentItemID = nil
		}
	}
}

func cloneSnapshot(snap models.Snapshot) models.Snapshot {
	out := models.Snapshot{Viewport: snap.Viewport, Items: make([]models.BoardItem, len(snap.Items))}
	for i := range snap.Items {
		out.Items[i] = *snap.Items[i].Clone()
	}
	return out
}

func cloneRevision(rev *models.Revision) *models.Revision {
	out := *rev
	out.Snapshot = cloneSnapshot(rev.Snapshot)
	return &out
}
