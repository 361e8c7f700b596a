package board

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/inkboard/inkboard/pkg/canvas"
	"github.com/inkboard/inkboard/pkg/models"
)

// Session is the client-side engine for one board: the canonical item cache,
// the viewport, and the revision manager. Construct one per open board with
// NewSession and drive it from the UI; all methods are safe for concurrent
// use, though the intended access pattern is a single event loop with
// asynchronous network completions.
type Session struct {
	api     API
	boardID models.BoardID
	log     zerolog.Logger

	mu          sync.Mutex
	viewport    models.Viewport
	items       []*models.BoardItem
	needsResync map[models.ItemID]struct{}

	// pendingCreates holds the temporary IDs of optimistic entries whose
	// create has not come back yet. Revision snapshots skip these so an
	// immutable revision only ever contains server-confirmed items.
	pendingCreates map[models.ItemID]struct{}

	// epoch counts cache replacements (loads, restores). Completions that
	// started under an older epoch are dropped instead of reconciled.
	epoch uint64

	loading   int
	creating  int
	updating  int
	deleting  int
	saving    int
	restoring int
}

// NewSession creates a session for one board. The cache starts empty; call
// LoadItems (or Reload) before rendering.
func NewSession(api API, boardID models.BoardID, log zerolog.Logger) *Session {
	return &Session{
		api:            api,
		boardID:        boardID,
		log:            log.With().Stringer("board_id", boardID).Logger(),
		viewport:       models.DefaultViewport(),
		needsResync:    make(map[models.ItemID]struct{}),
		pendingCreates: make(map[models.ItemID]struct{}),
	}
}

// BoardID returns the board this session is bound to.
func (s *Session) BoardID() models.BoardID {
	return s.boardID
}

// Items returns the current cache in paint order (insertion order; z-index
// sorting is the rendering layer's concern). The returned slice is a copy but
// the items are shared; treat them as read-only.
func (s *Session) Items() []*models.BoardItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.BoardItem, len(s.items))
	copy(out, s.items)
	return out
}

// Item returns the cached item with the given ID, or nil.
func (s *Session) Item(id models.ItemID) *models.BoardItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i]
	}
	return nil
}

// In-flight accessors, for disabling the triggering control while a request
// is outstanding.

func (s *Session) Loading() bool  { s.mu.Lock(); defer s.mu.Unlock(); return s.loading > 0 }
func (s *Session) Creating() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.creating > 0 }
func (s *Session) Updating() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.updating > 0 }
func (s *Session) Deleting() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.deleting > 0 }

// Viewport state. Mutations are local only; the viewport reaches the server
// solely inside revision snapshots.

// Viewport returns the current pan/zoom state.
func (s *Session) Viewport() models.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetViewport replaces the viewport, normalized into its invariants.
func (s *Session) SetViewport(v models.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = canvas.Normalize(v)
}

// Pan shifts the viewport by a screen-space delta.
func (s *Session) Pan(dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = canvas.Pan(s.viewport, dx, dy)
}

// ZoomAt applies a pointer-anchored zoom step.
func (s *Session) ZoomAt(pointer canvas.Point, delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = canvas.ZoomAt(s.viewport, pointer, delta)
}

// ScreenToWorld converts through the current viewport.
func (s *Session) ScreenToWorld(p canvas.Point) canvas.Point {
	return canvas.ScreenToWorld(s.Viewport(), p)
}

// WorldToScreen converts through the current viewport.
func (s *Session) WorldToScreen(p canvas.Point) canvas.Point {
	return canvas.WorldToScreen(s.Viewport(), p)
}

// LoadItems replaces the cache with the server's authoritative item list. On
// failure the cache keeps its last-known-good contents (stale but available)
// and the error is returned. A successful load clears needs-resync
// bookkeeping and invalidates in-flight reconciliations.
func (s *Session) LoadItems(ctx context.Context) error {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()

	items, err := s.api.GetBoardItems(ctx, s.boardID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}
	s.replaceItems(items)
	return nil
}

// Reload refreshes both the item cache and the viewport from the server.
// Required after a restore, where the server may have rewritten both.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()

	b, err := s.api.GetBoard(ctx, s.boardID)
	var items []*models.BoardItem
	if err == nil {
		items, err = s.api.GetBoardItems(ctx, s.boardID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		return fmt.Errorf("failed to reload board: %w", err)
	}
	s.viewport = canvas.Normalize(b.Viewport)
	s.replaceItems(items)
	return nil
}

// CreateItem inserts the draft optimistically under a temporary local ID and
// issues the create. On success the temporary entry is replaced in place by
// the server's item; on failure it is removed again, leaving the cache
// exactly as it was before the call.
func (s *Session) CreateItem(ctx context.Context, draft *models.BoardItem) (*models.BoardItem, error) {
	req := draft.Clone()
	req.ID = models.ItemID{}
	req.BoardID = s.boardID
	req.IsDeleted = false

	temp := req.Clone()
	temp.ID = models.NewItemID()

	s.mu.Lock()
	epoch := s.epoch
	s.items = append(s.items, temp)
	s.pendingCreates[temp.ID] = struct{}{}
	s.creating++
	s.mu.Unlock()

	created, err := s.api.CreateBoardItem(ctx, s.boardID, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating--
	delete(s.pendingCreates, temp.ID)
	if epoch != s.epoch {
		// The cache was replaced while the request was in flight; the temp
		// entry is already gone and there is nothing to reconcile into.
		s.log.Debug().Msg("dropping stale create completion")
		if err != nil {
			return nil, fmt.Errorf("failed to create item: %w", err)
		}
		return created, nil
	}
	idx := s.indexOf(temp.ID)
	if err != nil {
		if idx >= 0 {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
		}
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	if idx >= 0 {
		s.items[idx] = created
	} else {
		s.items = append(s.items, created)
	}
	return created, nil
}

// CreateFreehand turns a finished freehand stroke into an item create. This
// is the capture pipeline's only network effect, and it goes through
// CreateItem like every other creation.
func (s *Session) CreateFreehand(ctx context.Context, stroke canvas.Stroke, strokeColor string, strokeWidth float64) (*models.BoardItem, error) {
	return s.CreateItem(ctx, stroke.Item(strokeColor, strokeWidth))
}

// UpdateItem applies the patch optimistically and issues the update. On
// success the cached item is replaced by the server's representation. On
// failure only the targeted item is restored to its pre-mutation state before
// the error is surfaced; other items, including ones a concurrent call
// reconciled while this one was in flight, are left alone.
//
// Two overlapping updates to the same ID race; the last response to arrive
// wins in the cache.
func (s *Session) UpdateItem(ctx context.Context, id models.ItemID, patch models.ItemPatch) (*models.BoardItem, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, ErrItemNotFound
	}
	snaps := s.captureItems(id)
	epoch := s.epoch
	patch.Apply(s.items[idx])
	s.updating++
	s.mu.Unlock()

	updated, err := s.api.UpdateBoardItem(ctx, id, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updating--
	if epoch != s.epoch {
		s.log.Debug().Stringer("item_id", id).Msg("dropping stale update completion")
		if err != nil {
			return nil, fmt.Errorf("failed to update item: %w", err)
		}
		return updated, nil
	}
	if err != nil {
		s.restoreItems(snaps)
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	if i := s.indexOf(id); i >= 0 {
		s.items[i] = updated
	}
	return updated, nil
}

// DeleteItem removes the item optimistically and issues the soft delete. On
// failure the item alone is put back at its old paint-order position; the
// rest of the cache is untouched.
func (s *Session) DeleteItem(ctx context.Context, id models.ItemID) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	snap := itemSnapshot{item: s.items[idx].Clone(), idx: idx}
	epoch := s.epoch
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.deleting++
	s.mu.Unlock()

	err := s.api.DeleteBoardItem(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleting--
	if epoch != s.epoch {
		s.log.Debug().Stringer("item_id", id).Msg("dropping stale delete completion")
		if err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		return nil
	}
	if err != nil {
		s.reinsertItem(snap)
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// BatchUpdateItems applies many patches in one network call, for drag-moves
// and multi-select edits. All patches apply optimistically up front. The
// server may report partial success: only items it returns as updated are
// reconciled, and the rest keep their optimistic patch but are flagged as
// needing re-sync (see NeedsResync). A transport-level failure rolls back the
// batched items and nothing else.
func (s *Session) BatchUpdateItems(ctx context.Context, updates []models.ItemUpdate) (*models.BatchUpdateResult, error) {
	if len(updates) == 0 {
		return &models.BatchUpdateResult{}, nil
	}

	ids := make([]models.ItemID, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}

	s.mu.Lock()
	snaps := s.captureItems(ids...)
	epoch := s.epoch
	for _, u := range updates {
		if i := s.indexOf(u.ID); i >= 0 {
			u.Patch.Apply(s.items[i])
		}
	}
	s.updating++
	s.mu.Unlock()

	result, err := s.api.BatchUpdateBoardItems(ctx, s.boardID, updates)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updating--
	if epoch != s.epoch {
		s.log.Debug().Msg("dropping stale batch update completion")
		if err != nil {
			return nil, fmt.Errorf("failed to batch update items: %w", err)
		}
		return result, nil
	}
	if err != nil {
		s.restoreItems(snaps)
		return nil, fmt.Errorf("failed to batch update items: %w", err)
	}

	confirmed := make(map[models.ItemID]struct{}, len(result.Updated))
	for _, it := range result.Updated {
		confirmed[it.ID] = struct{}{}
		if i := s.indexOf(it.ID); i >= 0 {
			s.items[i] = it
		}
	}
	for _, u := range updates {
		if _, ok := confirmed[u.ID]; !ok {
			s.needsResync[u.ID] = struct{}{}
			s.log.Warn().Stringer("item_id", u.ID).Msg("batch update not confirmed by server, item needs re-sync")
		}
	}
	return result, nil
}

// NeedsResync lists items whose last batch update was not confirmed by the
// server. Their cached state is optimistic and possibly wrong; a LoadItems
// clears the flag along with everything else.
func (s *Session) NeedsResync() []models.ItemID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ItemID, 0, len(s.needsResync))
	for id := range s.needsResync {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// replaceItems installs a fresh authoritative item list. Callers hold the
// lock.
func (s *Session) replaceItems(items []*models.BoardItem) {
	s.items = items
	s.needsResync = make(map[models.ItemID]struct{})
	s.pendingCreates = make(map[models.ItemID]struct{})
	s.epoch++
}

// itemSnapshot is one cache entry's pre-mutation state plus its paint-order
// position at capture time.
type itemSnapshot struct {
	item *models.BoardItem
	idx  int
}

// captureItems clones the named cache entries for rollback. IDs not in the
// cache are skipped. Callers hold the lock.
func (s *Session) captureItems(ids ...models.ItemID) []itemSnapshot {
	snaps := make([]itemSnapshot, 0, len(ids))
	for _, id := range ids {
		if i := s.indexOf(id); i >= 0 {
			snaps = append(snaps, itemSnapshot{item: s.items[i].Clone(), idx: i})
		}
	}
	return snaps
}

// restoreItems reverts only the captured entries, so completions that
// reconciled other items while the failing call was in flight survive the
// rollback. An entry no longer in the cache (removed by a confirmed delete)
// stays gone. Callers hold the lock.
func (s *Session) restoreItems(snaps []itemSnapshot) {
	for _, sn := range snaps {
		if i := s.indexOf(sn.item.ID); i >= 0 {
			s.items[i] = sn.item
		}
	}
}

// reinsertItem puts a captured entry back into the cache at its old position,
// for rolling back the optimistic removal of a failed delete. Callers hold
// the lock.
func (s *Session) reinsertItem(sn itemSnapshot) {
	if i := s.indexOf(sn.item.ID); i >= 0 {
		s.items[i] = sn.item
		return
	}
	idx := sn.idx
	if idx > len(s.items) {
		idx = len(s.items)
	}
	s.items = append(s.items, nil)
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = sn.item
}

// indexOf locates an item in the cache. Callers hold the lock.
func (s *Session) indexOf(id models.ItemID) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
