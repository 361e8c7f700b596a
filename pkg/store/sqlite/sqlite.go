// Package sqlite provides an embedded single-file implementation of the
// [github.com/inkboard/inkboard/pkg/store.Store] interface on
// modernc.org/sqlite (pure Go, no cgo).
//
// It is the default backend of `inkboard serve`: one board database per
// file, suitable for a personal server or an export target. Styles,
// content, and revision snapshots are stored as JSON TEXT columns, and
// timestamps as unix milliseconds. SQLite's single-writer model makes every
// transaction here trivially serialized, so the strictly increasing
// revision version falls out of MAX(version)+1 inside a write transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/inkboard/inkboard/pkg/models"
	"github.com/inkboard/inkboard/pkg/store"
)

// SQLiteStore implements the Store interface on a single database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if missing) the database at path and
// applies the pragmas for local multi-process usage. WAL enables one writer
// plus many readers; busy_timeout avoids "database is locked" flakiness.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Migrate creates the schema if it does not exist. Safe to run repeatedly.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS boards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			viewport_x REAL NOT NULL,
			viewport_y REAL NOT NULL,
			viewport_zoom REAL NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS board_items (
			id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL REFERENCES boards(id),
			type TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			width REAL NOT NULL,
			height REAL NOT NULL,
			rotation REAL NOT NULL,
			z_index INTEGER NOT NULL,
			style_json TEXT NOT NULL,
			content_json TEXT NOT NULL,
			parent_item_id TEXT,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_board_items_board ON board_items(board_id, is_deleted);`,
		`CREATE TABLE IF NOT EXISTS revisions (
			id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL REFERENCES boards(id),
			version INTEGER NOT NULL,
			snapshot_json TEXT NOT NULL,
			note TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			UNIQUE(board_id, version)
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Board operations

func (s *SQLiteStore) CreateBoard(ctx context.Context, board *models.Board) error {
	if board.ID.IsZero() {
		board.ID = models.NewBoardID()
	}
	if board.Viewport.Zoom == 0 {
		board.Viewport = models.DefaultViewport()
	}
	now := time.Now().UTC()
	board.CreatedAt = now
	board.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO boards (id, name, viewport_x, viewport_y, viewport_zoom, created_at_unixms, updated_at_unixms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		board.ID.String(), board.Name,
		board.Viewport.X, board.Viewport.Y, board.Viewport.Zoom,
		now.UnixMilli(), now.UnixMilli())
	return err
}

func (s *SQLiteStore) GetBoard(ctx context.Context, id models.BoardID) (*models.Board, error) {
	return scanBoard(s.db.QueryRowContext(ctx,
		`SELECT id, name, viewport_x, viewport_y, viewport_zoom, created_at_unixms, updated_at_unixms
		 FROM boards WHERE id = ?`, id.String()), id)
}

// Item operations

func (s *SQLiteStore) ListItems(ctx context.Context, boardID models.BoardID) ([]*models.BoardItem, error) {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		itemColumns+` FROM board_items
		 WHERE board_id = ? AND is_deleted = 0
		 ORDER BY created_at_unixms, id`, boardID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.BoardItem
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if items == nil {
		items = []*models.BoardItem{}
	}
	return items, rows.Err()
}

func (s *SQLiteStore) GetItem(ctx context.Context, id models.ItemID) (*models.BoardItem, error) {
	item, err := s.lookupItem(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.IsDeleted {
		return nil, fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}
	return item, nil
}

func (s *SQLiteStore) CreateItem(ctx context.Context, item *models.BoardItem) error {
	if _, err := s.GetBoard(ctx, item.BoardID); err != nil {
		return err
	}
	if err := store.ValidateItem(item); err != nil {
		return err
	}
	if err := store.CheckParent(ctx, s.getFunc(s.db), item.BoardID, models.ItemID{}, item.ParentItemID); err != nil {
		return err
	}
	if item.ID.IsZero() {
		item.ID = models.NewItemID()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.IsDeleted = false

	styleJSON, contentJSON, err := encodeItemJSON(item)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO board_items
		 (id, board_id, type, x, y, width, height, rotation, z_index,
		  style_json, content_json, parent_item_id, is_deleted,
		  created_at_unixms, updated_at_unixms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		item.ID.String(), item.BoardID.String(), string(item.Type),
		item.X, item.Y, item.Width, item.Height, item.Rotation, item.ZIndex,
		styleJSON, contentJSON, nullableID(item.ParentItemID),
		now.UnixMilli(), now.UnixMilli())
	return err
}

func (s *SQLiteStore) UpdateItem(ctx context.Context, id models.ItemID, patch models.ItemPatch) (*models.BoardItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	item, err := s.updateInTx(ctx, tx, id, patch)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *SQLiteStore) DeleteItem(ctx context.Context, id models.ItemID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	item, err := s.lookupItem(ctx, tx, id)
	if err != nil {
		return err
	}
	if item == nil || item.IsDeleted {
		return fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}
	now := time.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx,
		`UPDATE board_items SET is_deleted = 1, updated_at_unixms = ? WHERE id = ?`,
		now, id.String()); err != nil {
		return err
	}
	// Children must never reference a soft-deleted parent.
	if _, err := tx.ExecContext(ctx,
		`UPDATE board_items SET parent_item_id = NULL WHERE parent_item_id = ? AND is_deleted = 0`,
		id.String()); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) BatchUpdateItems(ctx context.Context, boardID models.BoardID, updates []models.ItemUpdate) (*models.BatchUpdateResult, error) {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	result := &models.BatchUpdateResult{}
	for _, u := range updates {
		item, err := s.GetItem(ctx, u.ID)
		if err != nil || item.BoardID != boardID {
			result.Failed = append(result.Failed, u.ID)
			continue
		}
		updated, err := s.UpdateItem(ctx, u.ID, u.Patch)
		if err != nil {
			result.Failed = append(result.Failed, u.ID)
			continue
		}
		result.Updated = append(result.Updated, updated)
	}
	return result, nil
}

// Revision operations

func (s *SQLiteStore) ListRevisions(ctx context.Context, boardID models.BoardID, limit int) ([]*models.Revision, error) {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	q := `SELECT id, board_id, version, snapshot_json, note, created_at_unixms
	      FROM revisions WHERE board_id = ? ORDER BY version DESC`
	args := []any{boardID.String()}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []*models.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	if revs == nil {
		revs = []*models.Revision{}
	}
	return revs, rows.Err()
}

func (s *SQLiteStore) CreateRevision(ctx context.Context, boardID models.BoardID, snapshot models.Snapshot, note string) (*models.Revision, error) {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var last int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM revisions WHERE board_id = ?`,
		boardID.String()).Scan(&last); err != nil {
		return nil, err
	}
	snapJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	rev := &models.Revision{
		ID:        models.NewRevisionID(),
		BoardID:   boardID,
		Version:   last + 1,
		Snapshot:  snapshot,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (id, board_id, version, snapshot_json, note, created_at_unixms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rev.ID.String(), boardID.String(), rev.Version, string(snapJSON), note,
		rev.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rev, nil
}

func (s *SQLiteStore) RestoreRevision(ctx context.Context, boardID models.BoardID, version int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var snapJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT snapshot_json FROM revisions WHERE board_id = ? AND version = ?`,
		boardID.String(), version).Scan(&snapJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("revision %d of board %s: %w", version, boardID, store.ErrNotFound)
	}
	if err != nil {
		return err
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal([]byte(snapJSON), &snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE board_items SET is_deleted = 1, updated_at_unixms = ? WHERE board_id = ? AND is_deleted = 0`,
		now.UnixMilli(), boardID.String()); err != nil {
		return err
	}

	// Snapshot items come back under fresh IDs; parent references are
	// remapped from snapshot IDs to the new ones.
	idMap := make(map[models.ItemID]models.ItemID, len(snapshot.Items))
	for i := range snapshot.Items {
		idMap[snapshot.Items[i].ID] = models.NewItemID()
	}
	for i := range snapshot.Items {
		snapItem := snapshot.Items[i]
		var parent *models.ItemID
		if snapItem.ParentItemID != nil {
			if mapped, ok := idMap[*snapItem.ParentItemID]; ok {
				parent = &mapped
			}
		}
		styleJSON, contentJSON, err := encodeItemJSON(&snapItem)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO board_items
			 (id, board_id, type, x, y, width, height, rotation, z_index,
			  style_json, content_json, parent_item_id, is_deleted,
			  created_at_unixms, updated_at_unixms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			idMap[snapItem.ID].String(), boardID.String(), string(snapItem.Type),
			snapItem.X, snapItem.Y, snapItem.Width, snapItem.Height,
			snapItem.Rotation, snapItem.ZIndex,
			styleJSON, contentJSON, nullableID(parent),
			now.UnixMilli(), now.UnixMilli()); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE boards SET viewport_x = ?, viewport_y = ?, viewport_zoom = ?, updated_at_unixms = ? WHERE id = ?`,
		snapshot.Viewport.X, snapshot.Viewport.Y, snapshot.Viewport.Zoom,
		now.UnixMilli(), boardID.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("board %s: %w", boardID, store.ErrNotFound)
	}
	return tx.Commit()
}

// Row scanning helpers

const itemColumns = `SELECT id, board_id, type, x, y, width, height, rotation, z_index,
	style_json, content_json, parent_item_id, is_deleted,
	created_at_unixms, updated_at_unixms`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) updateInTx(ctx context.Context, tx *sql.Tx, id models.ItemID, patch models.ItemPatch) (*models.BoardItem, error) {
	item, err := s.lookupItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.IsDeleted {
		return nil, fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}
	patch.Apply(item)
	if err := store.ValidateItem(item); err != nil {
		return nil, err
	}
	if err := store.CheckParent(ctx, s.getFunc(tx), item.BoardID, id, item.ParentItemID); err != nil {
		return nil, err
	}
	item.UpdatedAt = time.Now().UTC()

	styleJSON, contentJSON, err := encodeItemJSON(item)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE board_items SET
		 x = ?, y = ?, width = ?, height = ?, rotation = ?, z_index = ?,
		 style_json = ?, content_json = ?, parent_item_id = ?, updated_at_unixms = ?
		 WHERE id = ?`,
		item.X, item.Y, item.Width, item.Height, item.Rotation, item.ZIndex,
		styleJSON, contentJSON, nullableID(item.ParentItemID),
		item.UpdatedAt.UnixMilli(), id.String())
	if err != nil {
		return nil, err
	}
	return item, nil
}

// lookupItem fetches an item regardless of its deletion flag, returning
// nil without error when the row does not exist.
func (s *SQLiteStore) lookupItem(ctx context.Context, q querier, id models.ItemID) (*models.BoardItem, error) {
	row := q.QueryRowContext(ctx, itemColumns+` FROM board_items WHERE id = ?`, id.String())
	item, err := scanItemRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *SQLiteStore) getFunc(q querier) store.GetItemFunc {
	return func(ctx context.Context, id models.ItemID) (*models.BoardItem, error) {
		return s.lookupItem(ctx, q, id)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItemRow(row rowScanner) (*models.BoardItem, error) {
	var (
		idStr, boardStr, typeStr     string
		styleJSON, contentJSON       string
		parentStr                    sql.NullString
		isDeleted                    int
		createdUnixMS, updatedUnixMS int64
		item                         models.BoardItem
	)
	err := row.Scan(&idStr, &boardStr, &typeStr,
		&item.X, &item.Y, &item.Width, &item.Height, &item.Rotation, &item.ZIndex,
		&styleJSON, &contentJSON, &parentStr, &isDeleted,
		&createdUnixMS, &updatedUnixMS)
	if err != nil {
		return nil, err
	}
	if item.ID, err = models.ParseItemID(idStr); err != nil {
		return nil, err
	}
	if item.BoardID, err = models.ParseBoardID(boardStr); err != nil {
		return nil, err
	}
	item.Type = models.ItemType(typeStr)
	if err := json.Unmarshal([]byte(styleJSON), &item.Style); err != nil {
		return nil, fmt.Errorf("failed to decode style of item %s: %w", idStr, err)
	}
	if err := json.Unmarshal([]byte(contentJSON), &item.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content of item %s: %w", idStr, err)
	}
	if parentStr.Valid {
		pid, err := models.ParseItemID(parentStr.String)
		if err != nil {
			return nil, err
		}
		item.ParentItemID = &pid
	}
	item.IsDeleted = isDeleted != 0
	item.CreatedAt = time.UnixMilli(createdUnixMS).UTC()
	item.UpdatedAt = time.UnixMilli(updatedUnixMS).UTC()
	return &item, nil
}

func scanBoard(row *sql.Row, id models.BoardID) (*models.Board, error) {
	var (
		idStr, name                  string
		board                        models.Board
		createdUnixMS, updatedUnixMS int64
	)
	err := row.Scan(&idStr, &name,
		&board.Viewport.X, &board.Viewport.Y, &board.Viewport.Zoom,
		&createdUnixMS, &updatedUnixMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("board %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if board.ID, err = models.ParseBoardID(idStr); err != nil {
		return nil, err
	}
	board.Name = name
	board.CreatedAt = time.UnixMilli(createdUnixMS).UTC()
	board.UpdatedAt = time.UnixMilli(updatedUnixMS).UTC()
	return &board, nil
}

func scanRevision(row rowScanner) (*models.Revision, error) {
	var (
		idStr, boardStr, snapJSON, note string
		version, createdUnixMS          int64
		rev                             models.Revision
	)
	if err := row.Scan(&idStr, &boardStr, &version, &snapJSON, &note, &createdUnixMS); err != nil {
		return nil, err
	}
	var err error
	if rev.ID, err = models.ParseRevisionID(idStr); err != nil {
		return nil, err
	}
	if rev.BoardID, err = models.ParseBoardID(boardStr); err != nil {
		return nil, err
	}
	rev.Version = version
	rev.Note = note
	rev.CreatedAt = time.UnixMilli(createdUnixMS).UTC()
	if err := json.Unmarshal([]byte(snapJSON), &rev.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot of revision %s: %w", idStr, err)
	}
	return &rev, nil
}

func encodeItemJSON(item *models.BoardItem) (styleJSON, contentJSON string, err error) {
	style := item.Style
	if style == nil {
		style = models.JSONMap{}
	}
	content := item.Content
	if content == nil {
		content = models.JSONMap{}
	}
	sb, err := json.Marshal(style)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode style: %w", err)
	}
	cb, err := json.Marshal(content)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode content: %w", err)
	}
	return string(sb), string(cb), nil
}

func nullableID(id *models.ItemID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
