package board

import (
	"context"

	"github.com/inkboard/inkboard/pkg/models"
)

// API is the Board API surface the session consumes. It is implemented by
// [github.com/inkboard/inkboard/pkg/client.Client] against the HTTP server
// and by in-memory fakes in tests.
type API interface {
	// GetBoard retrieves a board, including the server-persisted viewport
	// written by the last restore.
	GetBoard(ctx context.Context, boardID models.BoardID) (*models.Board, error)

	// GetBoardItems returns the authoritative list of live (non-deleted)
	// items on a board.
	GetBoardItems(ctx context.Context, boardID models.BoardID) ([]*models.BoardItem, error)

	// CreateBoardItem creates an item. The server assigns the ID; any ID on
	// the draft is ignored.
	CreateBoardItem(ctx context.Context, boardID models.BoardID, item *models.BoardItem) (*models.BoardItem, error)

	// UpdateBoardItem applies a partial update and returns the server's
	// representation of the item.
	UpdateBoardItem(ctx context.Context, itemID models.ItemID, patch models.ItemPatch) (*models.BoardItem, error)

	// DeleteBoardItem soft-deletes an item.
	DeleteBoardItem(ctx context.Context, itemID models.ItemID) error

	// BatchUpdateBoardItems applies many patches in one round trip. The
	// server may report partial success; see models.BatchUpdateResult.
	BatchUpdateBoardItems(ctx context.Context, boardID models.BoardID, updates []models.ItemUpdate) (*models.BatchUpdateResult, error)

	// ListBoardRevisions returns up to limit revisions, newest first.
	ListBoardRevisions(ctx context.Context, boardID models.BoardID, limit int) ([]*models.Revision, error)

	// CreateBoardRevision stores a snapshot; the server assigns the next
	// version number.
	CreateBoardRevision(ctx context.Context, boardID models.BoardID, snapshot models.Snapshot, note string) (*models.Revision, error)

	// RestoreBoardRevision destructively resets the board to a revision.
	RestoreBoardRevision(ctx context.Context, boardID models.BoardID, version int64) error
}
