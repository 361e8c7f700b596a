// Package export moves whole boards between servers as single archive
// files. The archive is CBOR: one self-describing binary blob holding the
// board row, its live items, and its full revision history. Writes go
// through an atomic rename so a crashed export never leaves a truncated
// archive behind.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/natefinch/atomic"

	"github.com/inkboard/inkboard/pkg/models"
	"github.com/inkboard/inkboard/pkg/store"
)

// FormatVersion is bumped on incompatible archive layout changes.
const FormatVersion = 1

// Archive is the on-disk layout of an exported board.
type Archive struct {
	FormatVersion int                 `cbor:"format_version"`
	ExportedAt    time.Time           `cbor:"exported_at"`
	Board         *models.Board       `cbor:"board"`
	Items         []*models.BoardItem `cbor:"items"`
	Revisions     []*models.Revision  `cbor:"revisions"`
}

// ExportBoard writes the board, its live items, and all of its revisions
// to an archive file at path.
func ExportBoard(ctx context.Context, s store.Store, boardID models.BoardID, path string) error {
	board, err := s.GetBoard(ctx, boardID)
	if err != nil {
		return fmt.Errorf("failed to load board: %w", err)
	}
	items, err := s.ListItems(ctx, boardID)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}
	revs, err := s.ListRevisions(ctx, boardID, 0)
	if err != nil {
		return fmt.Errorf("failed to load revisions: %w", err)
	}

	archive := Archive{
		FormatVersion: FormatVersion,
		ExportedAt:    time.Now().UTC(),
		Board:         board,
		Items:         items,
		Revisions:     revs,
	}
	data, err := cbor.Marshal(archive)
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// ImportBoard reads an archive and re-creates its board in the store.
// Everything gets fresh IDs, so importing into the source server duplicates
// the board instead of colliding with it. Revision history is replayed in
// order and renumbered contiguously from 1; the original version numbers
// are not preserved because the target store owns version assignment.
func ImportBoard(ctx context.Context, s store.Store, path string) (*models.Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	var archive Archive
	if err := cbor.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("failed to decode archive: %w", err)
	}
	if archive.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported archive format version %d", archive.FormatVersion)
	}
	if archive.Board == nil {
		return nil, fmt.Errorf("archive has no board")
	}

	board := &models.Board{
		Name:     archive.Board.Name,
		Viewport: archive.Board.Viewport,
	}
	if err := s.CreateBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}

	// Items get fresh IDs; parent references are remapped. Parents must
	// exist before their children, so roots go first and the rest follow
	// once their parent has landed.
	idMap := make(map[models.ItemID]models.ItemID, len(archive.Items))
	pending := append([]*models.BoardItem(nil), archive.Items...)
	for len(pending) > 0 {
		progressed := false
		remaining := pending[:0]
		for _, src := range pending {
			var parent *models.ItemID
			if src.ParentItemID != nil {
				mapped, ok := idMap[*src.ParentItemID]
				if !ok {
					remaining = append(remaining, src)
					continue
				}
				parent = &mapped
			}
			item := src.Clone()
			item.ID = models.ItemID{}
			item.BoardID = board.ID
			item.ParentItemID = parent
			if err := s.CreateItem(ctx, item); err != nil {
				return nil, fmt.Errorf("failed to create item: %w", err)
			}
			idMap[src.ID] = item.ID
			progressed = true
		}
		if !progressed {
			// Remaining items reference parents outside the archive;
			// import them detached rather than dropping them.
			for _, src := range remaining {
				item := src.Clone()
				item.ID = models.ItemID{}
				item.BoardID = board.ID
				item.ParentItemID = nil
				if err := s.CreateItem(ctx, item); err != nil {
					return nil, fmt.Errorf("failed to create item: %w", err)
				}
				idMap[src.ID] = item.ID
			}
			break
		}
		pending = remaining
	}

	revs := append([]*models.Revision(nil), archive.Revisions...)
	sort.Slice(revs, func(i, j int) bool { return revs[i].Version < revs[j].Version })
	for _, rev := range revs {
		if _, err := s.CreateRevision(ctx, board.ID, rev.Snapshot, rev.Note); err != nil {
			return nil, fmt.Errorf("failed to create revision: %w", err)
		}
	}

	return board, nil
}
