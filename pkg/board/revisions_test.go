package board_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/inkboard/pkg/board"
	"github.com/inkboard/inkboard/pkg/models"
)

func TestCreateRevisionSnapshotsViewportAndItems(t *testing.T) {
	api := &fakeAPI{t: t}
	s := newTestSession(t, api)
	a := rect(s.BoardID(), 0, 0)
	b := rect(s.BoardID(), 10, 10)
	seed(t, s, api, a, b)
	s.SetViewport(models.Viewport{X: 12, Y: -8, Zoom: 1.5})

	var got models.Snapshot
	api.createRevision = func(ctx context.Context, boardID models.BoardID, snapshot models.Snapshot, note string) (*models.Revision, error) {
		got = snapshot
		assert.Equal(t, "before cleanup", note)
		return &models.Revision{
			ID:       models.NewRevisionID(),
			BoardID:  boardID,
			Version:  7,
			Snapshot: snapshot,
			Note:     note,
		}, nil
	}

	rev, err := s.CreateRevision(context.Background(), "before cleanup")
	require.NoError(t, err)
	assert.Equal(t, int64(7), rev.Version, "version comes from the server")

	assert.Equal(t, models.Viewport{X: 12, Y: -8, Zoom: 1.5}, got.Viewport)
	require.Len(t, got.Items, 2)
	assert.Equal(t, a.ID, got.Items[0].ID)
	assert.Equal(t, b.ID, got.Items[1].ID)
}

func TestCreateRevisionSkipsInFlightCreates(t *testing.T) {
	api := &fakeAPI{t: t}
	s := newTestSession(t, api)
	confirmed := rect(s.BoardID(), 0, 0)
	seed(t, s, api, confirmed)

	var snap models.Snapshot
	api.createRevision = func(ctx context.Context, boardID models.BoardID, snapshot models.Snapshot, note string) (*models.Revision, error) {
		snap = snapshot
		return &models.Revision{BoardID: boardID, Version: 1, Snapshot: snapshot}, nil
	}

	serverItem := rect(s.BoardID(), 3, 4)
	api.createItem = func(ctx context.Context, boardID models.BoardID, item *models.BoardItem) (*models.BoardItem, error) {
		// A revision is saved while this create is still waiting on the
		// server; the temporary entry must not be baked into it.
		_, err := s.CreateRevision(ctx, "mid-create")
		require.NoError(t, err)
		return serverItem, nil
	}

	_, err := s.CreateItem(context.Background(), &models.BoardItem{
		Type: models.ItemTypeRectangle, X: 3, Y: 4, Width: 10, Height: 10,
	})
	require.NoError(t, err)

	require.Len(t, snap.Items, 1, "snapshot holds confirmed items only")
	assert.Equal(t, confirmed.ID, snap.Items[0].ID)

	// Once the create has been confirmed the item snapshots normally.
	_, err = s.CreateRevision(context.Background(), "after")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 2)
}

func TestCreateRevisionFailure(t *testing.T) {
	api := &fakeAPI{t: t}
	s := newTestSession(t, api)
	seed(t, s, api, rect(s.BoardID(), 0, 0))

	api.createRevision = func(ctx context.Context, boardID models.BoardID, snapshot models.Snapshot, note string) (*models.Revision, error) {
		return nil, errNetwork
	}

	_, err := s.CreateRevision(context.Background(), "")
	require.ErrorIs(t, err, errNetwork)
	assert.Len(t, s.Items(), 1, "a failed save never touches the cache")
}

func TestRestoreRequiresConfirmation(t *testing.T) {
	// No fake methods are wired: an unconfirmed restore must return before
	// any network activity, so any API call fails the test.
	api := &fakeAPI{t: t}
	s := newTestSession(t, api)

	err := s.RestoreRevision(context.Background(), 3, false)
	assert.ErrorIs(t, err, board.ErrRestoreNotConfirmed)
}

func TestRestoreReloadsBoardAndItems(t *testing.T) {
	api := &fakeAPI{t: t}
	s := newTestSession(t, api)
	old := rect(s.BoardID(), 0, 0)
	seed(t, s, api, old)

	restored := rect(s.BoardID(), 42, 42)
	api.restore = func(ctx context.Context, boardID models.BoardID, version int64) error {
		assert.Equal(t, int64(3), version)
		return nil
	}
	api.getBoard = func(ctx context.Context, boardID models.BoardID) (*models.Board, error) {
		return &models.Board{
			ID:       boardID,
			Viewport: models.Viewport{X: -100, Y: 200, Zoom: 0.5},
		}, nil
	}
	api.getItems = func(ctx context.Context, boardID models.BoardID) ([]*models.BoardItem, error) {
		return []*models.BoardItem{restored}, nil
	}

	require.NoError(t, s.RestoreRevision(context.Background(), 3, true))

	assert.Equal(t, models.Viewport{X: -100, Y: 200, Zoom: 0.5}, s.Viewport())
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, restored.ID, items[0].ID, "cache rebuilt from the server, not the snapshot")
}

func TestRestoreFailureLeavesCacheUntouched(t *testing.T) {
	api := &fakeAPI{t: t}
	s := newTestSession(t, api)
	old := rect(s.BoardID(), 0, 0)
	seed(t, s, api, old)
	s.SetViewport(models.Viewport{X: 1, Y: 2, Zoom: 2})

	api.restore = func(ctx context.Context, boardID models.BoardID, version int64) error {
		return errNetwork
	}

	err := s.RestoreRevision(context.Background(), 3, true)
	require.ErrorIs(t, err, errNetwork)

	assert.Equal(t, models.Viewport{X: 1, Y: 2, Zoom: 2}, s.Viewport())
	require.Len(t, s.Items(), 1)
	assert.Equal(t, old.ID, s.Items()[0].ID)
}

func TestListRevisions(t *testing.T) {
	api := &fakeAPI{t: t}
	s := newTestSession(t, api)

	api.listRevisions = func(ctx context.Context, boardID models.BoardID, limit int) ([]*models.Revision, error) {
		assert.Equal(t, 10, limit)
		return []*models.Revision{{Version: 2}, {Version: 1}}, nil
	}

	revs, err := s.ListRevisions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, int64(2), revs[0].Version)
}
