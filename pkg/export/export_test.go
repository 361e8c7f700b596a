package export_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/inkboard/pkg/export"
	"github.com/inkboard/inkboard/pkg/models"
	"github.com/inkboard/inkboard/pkg/store/memory"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := memory.NewMemoryStore()

	board := &models.Board{
		Name:     "retro",
		Viewport: models.Viewport{X: 11, Y: 22, Zoom: 1.5},
	}
	require.NoError(t, src.CreateBoard(ctx, board))

	parent := &models.BoardItem{
		BoardID: board.ID, Type: models.ItemTypeRectangle,
		X: 0, Y: 0, Width: 400, Height: 300,
	}
	require.NoError(t, src.CreateItem(ctx, parent))
	child := &models.BoardItem{
		BoardID: board.ID, Type: models.ItemTypeSticky,
		X: 10, Y: 10, Width: 100, Height: 100,
		ParentItemID: &parent.ID,
		Content:      models.JSONMap{"text": "went well"},
	}
	require.NoError(t, src.CreateItem(ctx, child))

	// Two revisions, so the import has history to renumber.
	for _, note := range []string{"first", "second"} {
		_, err := src.CreateRevision(ctx, board.ID, models.Snapshot{
			Viewport: board.Viewport,
			Items:    []models.BoardItem{*parent, *child},
		}, note)
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "retro.inkboard")
	require.NoError(t, export.ExportBoard(ctx, src, board.ID, path))

	dst := memory.NewMemoryStore()
	imported, err := export.ImportBoard(ctx, dst, path)
	require.NoError(t, err)

	assert.NotEqual(t, board.ID, imported.ID, "imported board gets a fresh ID")
	assert.Equal(t, "retro", imported.Name)
	assert.Equal(t, models.Viewport{X: 11, Y: 22, Zoom: 1.5}, imported.Viewport)

	items, err := dst.ListItems(ctx, imported.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byType := map[models.ItemType]*models.BoardItem{}
	for _, it := range items {
		assert.NotEqual(t, parent.ID, it.ID)
		assert.NotEqual(t, child.ID, it.ID)
		byType[it.Type] = it
	}
	importedChild := byType[models.ItemTypeSticky]
	require.NotNil(t, importedChild)
	require.NotNil(t, importedChild.ParentItemID)
	assert.Equal(t, byType[models.ItemTypeRectangle].ID, *importedChild.ParentItemID,
		"parent reference remapped to the imported parent")
	assert.Equal(t, "went well", importedChild.Content["text"])

	revs, err := dst.ListRevisions(ctx, imported.ID, 0)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, int64(2), revs[0].Version)
	assert.Equal(t, "second", revs[0].Note)
	assert.Equal(t, int64(1), revs[1].Version)
}

func TestImportIntoSourceDuplicates(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMemoryStore()

	board := &models.Board{Name: "b"}
	require.NoError(t, s.CreateBoard(ctx, board))
	item := &models.BoardItem{BoardID: board.ID, Type: models.ItemTypeText, Width: 10, Height: 10}
	require.NoError(t, s.CreateItem(ctx, item))

	path := filepath.Join(t.TempDir(), "b.inkboard")
	require.NoError(t, export.ExportBoard(ctx, s, board.ID, path))

	copy1, err := export.ImportBoard(ctx, s, path)
	require.NoError(t, err)
	assert.NotEqual(t, board.ID, copy1.ID)

	// The original board is untouched.
	items, err := s.ListItems(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestImportRejectsMissingFile(t *testing.T) {
	_, err := export.ImportBoard(context.Background(), memory.NewMemoryStore(),
		filepath.Join(t.TempDir(), "nope.inkboard"))
	assert.Error(t, err)
}
