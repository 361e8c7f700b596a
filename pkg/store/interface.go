// Package store defines the persistence interface of the inkboard server and
// the validation rules every implementation enforces.
//
// Three implementations exist:
//   - [github.com/inkboard/inkboard/pkg/store/memory]: map-based, for tests
//     and throwaway dev servers.
//   - [github.com/inkboard/inkboard/pkg/store/postgres]: GORM on PostgreSQL,
//     the production backend.
//   - [github.com/inkboard/inkboard/pkg/store/sqlite]: embedded single-file
//     backend on modernc.org/sqlite.
//
// All implementations share the same semantics:
//   - Items are soft-deleted, never physically removed, so revision
//     snapshots stay referentially intact.
//   - Revision versions are strictly increasing per board, assigned inside
//     the store's critical section (transaction, or the memory store's
//     lock), never by the caller.
//   - Restore soft-deletes the live items and re-creates the snapshot's
//     items under fresh IDs, remapping parent references, then writes the
//     snapshot viewport onto the board row.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkboard/inkboard/pkg/models"
)

var (
	// ErrNotFound is returned when a board, item, or revision does not exist
	// (or, for items, has been soft-deleted).
	ErrNotFound = errors.New("store: not found")

	// ErrValidation wraps all domain-rule violations: non-positive
	// dimensions, dangling or cyclic parent references, unknown item types.
	// Handlers map it to a 400 with the wrapped message verbatim.
	ErrValidation = errors.New("store: validation failed")
)

// Store is the persistence interface the inkboard server runs on.
type Store interface {
	// Migrate brings the backing schema up to date. Safe to run repeatedly.
	Migrate(ctx context.Context) error

	// Close releases the store's resources.
	Close() error

	// Board operations

	CreateBoard(ctx context.Context, board *models.Board) error
	GetBoard(ctx context.Context, id models.BoardID) (*models.Board, error)

	// Item operations. ListItems returns only live items; GetItem returns
	// ErrNotFound for soft-deleted ones.

	ListItems(ctx context.Context, boardID models.BoardID) ([]*models.BoardItem, error)
	GetItem(ctx context.Context, id models.ItemID) (*models.BoardItem, error)
	CreateItem(ctx context.Context, item *models.BoardItem) error
	UpdateItem(ctx context.Context, id models.ItemID, patch models.ItemPatch) (*models.BoardItem, error)
	DeleteItem(ctx context.Context, id models.ItemID) error
	BatchUpdateItems(ctx context.Context, boardID models.BoardID, updates []models.ItemUpdate) (*models.BatchUpdateResult, error)

	// Revision operations

	ListRevisions(ctx context.Context, boardID models.BoardID, limit int) ([]*models.Revision, error)
	CreateRevision(ctx context.Context, boardID models.BoardID, snapshot models.Snapshot, note string) (*models.Revision, error)
	RestoreRevision(ctx context.Context, boardID models.BoardID, version int64) error
}

// GetItemFunc looks an item up by ID, returning nil without error when it
// does not exist. Used by the shared validation walk so each implementation
// can plug in its own lookup.
type GetItemFunc func(ctx context.Context, id models.ItemID) (*models.BoardItem, error)

// ValidateItem checks the invariants common to item create and update:
// a known type and strictly positive dimensions. Degenerate freehand boxes
// are floored to 1 on the client; anything non-positive that still reaches
// the server is rejected.
func ValidateItem(item *models.BoardItem) error {
	switch item.Type {
	case models.ItemTypeRectangle, models.ItemTypeEllipse, models.ItemTypeText,
		models.ItemTypeSticky, models.ItemTypeFreehand:
	case "":
		return fmt.Errorf("%w: item type is required", ErrValidation)
	default:
		return fmt.Errorf("%w: unknown item type %q", ErrValidation, item.Type)
	}
	if item.Width <= 0 {
		return fmt.Errorf("%w: width must be positive", ErrValidation)
	}
	if item.Height <= 0 {
		return fmt.Errorf("%w: height must be positive", ErrValidation)
	}
	return nil
}

// CheckParent validates a parent reference: the parent must be a live item
// on the same board, and attaching childID under it must not create a cycle.
// Items form a forest. childID may be zero for a not-yet-created item.
func CheckParent(ctx context.Context, get GetItemFunc, boardID models.BoardID, childID models.ItemID, parentID *models.ItemID) error {
	if parentID == nil {
		return nil
	}
	if !childID.IsZero() && *parentID == childID {
		return fmt.Errorf("%w: item cannot be its own parent", ErrValidation)
	}

	seen := make(map[models.ItemID]struct{})
	cur := *parentID
	for {
		if _, ok := seen[cur]; ok {
			return fmt.Errorf("%w: parent chain contains a cycle", ErrValidation)
		}
		seen[cur] = struct{}{}

		p, err := get(ctx, cur)
		if err != nil {
			return err
		}
		if p == nil || p.IsDeleted {
			return fmt.Errorf("%w: parent item %s is not a live item", ErrValidation, cur)
		}
		if p.BoardID != boardID {
			return fmt.Errorf("%w: parent item %s belongs to another board", ErrValidation, cur)
		}
		if !childID.IsZero() && p.ID == childID {
			return fmt.Errorf("%w: parent chain would form a cycle", ErrValidation)
		}
		if p.ParentItemID == nil {
			return nil
		}
		cur = *p.ParentItemID
	}
}
