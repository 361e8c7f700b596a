package inkboard_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/inkboard/pkg/board"
	"github.com/inkboard/inkboard/pkg/client"
	"github.com/inkboard/inkboard/pkg/inkboard"
	"github.com/inkboard/inkboard/pkg/models"
	"github.com/inkboard/inkboard/pkg/store/memory"
)

// newTestServer mounts the full router over a fresh in-memory store and
// returns a typed client against it.
func newTestServer(t *testing.T) *client.Client {
	t.Helper()
	cfg := inkboard.DefaultConfig()
	cfg.Store = inkboard.StoreMemory
	app := inkboard.NewWithStore(memory.NewMemoryStore(), cfg)
	t.Cleanup(func() { _ = app.Close() })

	srv := httptest.NewServer(app.Routes())
	t.Cleanup(srv.Close)
	return client.NewClient(srv.URL)
}

func TestHealth(t *testing.T) {
	c := newTestServer(t)
	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status["status"])
}

func TestBoardAndItemEndpoints(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	b, err := c.CreateBoard(ctx, &models.Board{Name: "roadmap"})
	require.NoError(t, err)
	require.False(t, b.ID.IsZero())
	assert.Equal(t, models.DefaultViewport(), b.Viewport)

	got, err := c.GetBoard(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "roadmap", got.Name)

	item, err := c.CreateBoardItem(ctx, b.ID, &models.BoardItem{
		Type: models.ItemTypeSticky, X: 10, Y: 10, Width: 200, Height: 150,
		Content: models.JSONMap{"text": "ship it"},
	})
	require.NoError(t, err)
	require.False(t, item.ID.IsZero())
	assert.Equal(t, b.ID, item.BoardID)

	x := 99.0
	updated, err := c.UpdateBoardItem(ctx, item.ID, models.ItemPatch{X: &x})
	require.NoError(t, err)
	assert.Equal(t, 99.0, updated.X)
	assert.Equal(t, "ship it", updated.Content["text"])

	items, err := c.GetBoardItems(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, c.DeleteBoardItem(ctx, item.ID))
	items, err = c.GetBoardItems(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestErrorMapping(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	_, err := c.GetBoard(ctx, models.NewBoardID())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	b, err := c.CreateBoard(ctx, &models.Board{Name: "b"})
	require.NoError(t, err)

	_, err = c.CreateBoardItem(ctx, b.ID, &models.BoardItem{
		Type: models.ItemTypeRectangle, Width: 0, Height: 10,
	})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	// Validation messages pass through to the client verbatim.
	assert.Contains(t, apiErr.Message, "width must be positive")
}

func TestBatchEndpoint(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	b, err := c.CreateBoard(ctx, &models.Board{Name: "b"})
	require.NoError(t, err)
	item, err := c.CreateBoardItem(ctx, b.ID, &models.BoardItem{
		Type: models.ItemTypeRectangle, Width: 10, Height: 10,
	})
	require.NoError(t, err)

	x := 40.0
	missing := models.NewItemID()
	result, err := c.BatchUpdateBoardItems(ctx, b.ID, []models.ItemUpdate{
		{ID: item.ID, Patch: models.ItemPatch{X: &x}},
		{ID: missing, Patch: models.ItemPatch{X: &x}},
	})
	require.NoError(t, err)
	require.Len(t, result.Updated, 1)
	assert.Equal(t, 40.0, result.Updated[0].X)
	assert.Equal(t, []models.ItemID{missing}, result.Failed)
}

func TestRevisionEndpoints(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	b, err := c.CreateBoard(ctx, &models.Board{Name: "b"})
	require.NoError(t, err)
	item, err := c.CreateBoardItem(ctx, b.ID, &models.BoardItem{
		Type: models.ItemTypeEllipse, X: 1, Y: 2, Width: 30, Height: 30,
	})
	require.NoError(t, err)

	snapshot := models.Snapshot{
		Viewport: models.Viewport{X: 5, Y: 6, Zoom: 2},
		Items:    []models.BoardItem{*item},
	}
	rev, err := c.CreateBoardRevision(ctx, b.ID, snapshot, "first")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev.Version)

	require.NoError(t, c.DeleteBoardItem(ctx, item.ID))
	require.NoError(t, c.RestoreBoardRevision(ctx, b.ID, rev.Version))

	items, err := c.GetBoardItems(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEqual(t, item.ID, items[0].ID)

	got, err := c.GetBoard(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Viewport{X: 5, Y: 6, Zoom: 2}, got.Viewport)

	revs, err := c.ListBoardRevisions(ctx, b.ID, 10)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, "first", revs[0].Note)

	err = c.RestoreBoardRevision(ctx, b.ID, 42)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

// TestSessionEndToEnd drives a board session against the real server stack:
// session -> HTTP client -> router -> memory store and back.
func TestSessionEndToEnd(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	b, err := c.CreateBoard(ctx, &models.Board{Name: "e2e"})
	require.NoError(t, err)

	s := board.NewSession(c, b.ID, zerolog.Nop())
	require.NoError(t, s.LoadItems(ctx))

	created, err := s.CreateItem(ctx, &models.BoardItem{
		Type: models.ItemTypeText, X: 10, Y: 20, Width: 120, Height: 40,
		Content: models.JSONMap{"text": "hello"},
	})
	require.NoError(t, err)

	s.SetViewport(models.Viewport{X: -30, Y: 15, Zoom: 1.25})
	rev, err := s.CreateRevision(ctx, "checkpoint")
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(ctx, created.ID))
	assert.Empty(t, s.Items())

	require.NoError(t, s.RestoreRevision(ctx, rev.Version, true))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "hello", items[0].Content["text"])
	assert.NotEqual(t, created.ID, items[0].ID)
	assert.Equal(t, models.Viewport{X: -30, Y: 15, Zoom: 1.25}, s.Viewport())
}
