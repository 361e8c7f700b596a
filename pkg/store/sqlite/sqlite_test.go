package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/inkboard/pkg/models"
	"github.com/inkboard/inkboard/pkg/store"
	"github.com/inkboard/inkboard/pkg/store/sqlite"
)

func openStore(t *testing.T) (*sqlite.SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := sqlite.NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestItemRoundTrip(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	board := &models.Board{Name: "sketches"}
	require.NoError(t, s.CreateBoard(ctx, board))

	item := &models.BoardItem{
		BoardID:  board.ID,
		Type:     models.ItemTypeFreehand,
		X:        -12.5, Y: 40, Width: 80, Height: 1,
		Rotation: 15,
		ZIndex:   3,
		Style: models.JSONMap{
			models.StyleKeySVGPath:     "M 0 0 L 80 0",
			models.StyleKeyStrokeColor: "#000",
			models.StyleKeyStrokeWidth: 2.0,
		},
		Content: models.JSONMap{"label": "signature"},
	}
	require.NoError(t, s.CreateItem(ctx, item))

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, -12.5, got.X)
	assert.Equal(t, 15.0, got.Rotation)
	assert.Equal(t, 3, got.ZIndex)
	assert.Equal(t, "M 0 0 L 80 0", got.Style[models.StyleKeySVGPath])
	assert.Equal(t, "signature", got.Content["label"])
}

func TestSoftDeleteAndListing(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	board := &models.Board{Name: "b"}
	require.NoError(t, s.CreateBoard(ctx, board))

	a := &models.BoardItem{BoardID: board.ID, Type: models.ItemTypeText, Width: 10, Height: 10}
	b := &models.BoardItem{BoardID: board.ID, Type: models.ItemTypeText, Width: 10, Height: 10}
	require.NoError(t, s.CreateItem(ctx, a))
	require.NoError(t, s.CreateItem(ctx, b))

	require.NoError(t, s.DeleteItem(ctx, a.ID))

	items, err := s.ListItems(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	_, err = s.GetItem(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	err = s.DeleteItem(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "deleting twice fails cleanly")
}

func TestUpdateValidatesParentChain(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	board := &models.Board{Name: "b"}
	require.NoError(t, s.CreateBoard(ctx, board))

	parent := &models.BoardItem{BoardID: board.ID, Type: models.ItemTypeSticky, Width: 10, Height: 10}
	child := &models.BoardItem{BoardID: board.ID, Type: models.ItemTypeSticky, Width: 10, Height: 10}
	require.NoError(t, s.CreateItem(ctx, parent))
	require.NoError(t, s.CreateItem(ctx, child))

	_, err := s.UpdateItem(ctx, child.ID, models.ItemPatch{ParentItemID: &parent.ID})
	require.NoError(t, err)

	_, err = s.UpdateItem(ctx, parent.ID, models.ItemPatch{ParentItemID: &child.ID})
	assert.ErrorIs(t, err, store.ErrValidation)

	// Clearing the parent through the patch flag.
	updated, err := s.UpdateItem(ctx, child.ID, models.ItemPatch{ClearParent: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ParentItemID)
}

func TestRevisionRestorePersistsAcrossReopen(t *testing.T) {
	s, path := openStore(t)
	ctx := context.Background()

	board := &models.Board{Name: "b"}
	require.NoError(t, s.CreateBoard(ctx, board))
	item := &models.BoardItem{BoardID: board.ID, Type: models.ItemTypeEllipse, X: 1, Y: 2, Width: 30, Height: 30}
	require.NoError(t, s.CreateItem(ctx, item))

	snapshot := models.Snapshot{
		Viewport: models.Viewport{X: 100, Y: -50, Zoom: 0.5},
		Items:    []models.BoardItem{*item},
	}
	rev, err := s.CreateRevision(ctx, board.ID, snapshot, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev.Version)

	require.NoError(t, s.DeleteItem(ctx, item.ID))
	require.NoError(t, s.RestoreRevision(ctx, board.ID, rev.Version))
	require.NoError(t, s.Close())

	// Everything the restore wrote must survive a process restart.
	s2, err := sqlite.NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	gotBoard, err := s2.GetBoard(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Viewport{X: 100, Y: -50, Zoom: 0.5}, gotBoard.Viewport)

	items, err := s2.ListItems(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEqual(t, item.ID, items[0].ID, "restored item has a fresh ID")
	assert.Equal(t, 30.0, items[0].Width)

	revs, err := s2.ListRevisions(ctx, board.ID, 0)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, "v1", revs[0].Note)
	assert.Len(t, revs[0].Snapshot.Items, 1)
}

func TestBatchUpdate(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	board := &models.Board{Name: "b"}
	require.NoError(t, s.CreateBoard(ctx, board))
	a := &models.BoardItem{BoardID: board.ID, Type: models.ItemTypeRectangle, Width: 10, Height: 10}
	require.NoError(t, s.CreateItem(ctx, a))

	x := 5.0
	missing := models.NewItemID()
	result, err := s.BatchUpdateItems(ctx, board.ID, []models.ItemUpdate{
		{ID: a.ID, Patch: models.ItemPatch{X: &x}},
		{ID: missing, Patch: models.ItemPatch{X: &x}},
	})
	require.NoError(t, err)
	require.Len(t, result.Updated, 1)
	assert.Equal(t, 5.0, result.Updated[0].X)
	assert.Equal(t, []models.ItemID{missing}, result.Failed)
}
