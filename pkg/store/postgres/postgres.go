// Package postgres provides the PostgreSQL implementation of the
// [github.com/inkboard/inkboard/pkg/store.Store] interface using GORM.
//
// This is the production backend. The schema maps
// [github.com/inkboard/inkboard/pkg/models] entities to relational tables:
//   - [github.com/inkboard/inkboard/pkg/models.Board] → boards, carrying the
//     persisted viewport in viewport_* columns
//   - [github.com/inkboard/inkboard/pkg/models.BoardItem] → board_items with a
//     board foreign key and a self-referencing parent_item_id
//   - [github.com/inkboard/inkboard/pkg/models.Revision] → revisions with a
//     UNIQUE (board_id, version) constraint
//
// GORM struct tags on the models define the constraints and indexes, and
// [PostgresStore.Migrate] applies them through AutoMigrate. AutoMigrate only
// adds schema elements and never removes existing data, so it is safe to run
// repeatedly.
//
// # Revision consistency
//
// Strictly increasing versions per board are the one invariant that needs
// more than GORM's per-operation transactions. CreateRevision and
// RestoreRevision therefore run inside an explicit transaction that takes a
// FOR UPDATE lock on the board row. Two concurrent saves against the same
// board serialize on that lock, so MAX(version)+1 can never be computed
// twice from the same state, and the UNIQUE (board_id, version) constraint
// backstops the lock at commit time.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkboard/inkboard/pkg/models"
	"github.com/inkboard/inkboard/pkg/store"
)

// PostgresStore implements the Store interface using PostgreSQL with GORM.
// A production deployment would additionally configure connection pooling
// (MaxIdleConns, MaxOpenConns, ConnMaxLifetime) on the underlying sql.DB.
type PostgresStore struct {
	db *gorm.DB
}

var _ store.Store = (*PostgresStore)(nil)

// NewPostgresStore connects to PostgreSQL with the given DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates or updates the boards, board_items, and revisions tables
// along with their indexes and foreign keys.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.Board{},
		&models.BoardItem{},
		&models.Revision{},
	)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Board operations

func (s *PostgresStore) CreateBoard(ctx context.Context, board *models.Board) error {
	if board.Viewport.Zoom == 0 {
		board.Viewport = models.DefaultViewport()
	}
	return s.db.WithContext(ctx).Create(board).Error
}

func (s *PostgresStore) GetBoard(ctx context.Context, id models.BoardID) (*models.Board, error) {
	var board models.Board
	err := s.db.WithContext(ctx).First(&board, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("board %s: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &board, nil
}

// Item operations

func (s *PostgresStore) ListItems(ctx context.Context, boardID models.BoardID) ([]*models.BoardItem, error) {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	var items []*models.BoardItem
	err := s.db.WithContext(ctx).
		Where("board_id = ? AND is_deleted = ?", boardID, false).
		Order("created_at, id").
		Find(&items).Error
	return items, err
}

func (s *PostgresStore) GetItem(ctx context.Context, id models.ItemID) (*models.BoardItem, error) {
	return getItem(ctx, s.db, id)
}

func (s *PostgresStore) CreateItem(ctx context.Context, item *models.BoardItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var board models.Board
		if err := tx.First(&board, "id = ?", item.BoardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("board %s: %w", item.BoardID, store.ErrNotFound)
			}
			return err
		}
		if err := store.ValidateItem(item); err != nil {
			return err
		}
		if err := store.CheckParent(ctx, txGet(tx), item.BoardID, models.ItemID{}, item.ParentItemID); err != nil {
			return err
		}
		return tx.Create(item).Error
	})
}

func (s *PostgresStore) UpdateItem(ctx context.Context, id models.ItemID, patch models.ItemPatch) (*models.BoardItem, error) {
	var updated *models.BoardItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := getItemForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(item)
		if err := store.ValidateItem(item); err != nil {
			return err
		}
		if err := store.CheckParent(ctx, txGet(tx), item.BoardID, id, item.ParentItemID); err != nil {
			return err
		}
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		updated = item
		return nil
	})
	return updated, err
}

func (s *PostgresStore) DeleteItem(ctx context.Context, id models.ItemID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := getItemForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.BoardItem{}).Where("id = ?", item.ID).
			Update("is_deleted", true).Error; err != nil {
			return err
		}
		// Children must never reference a soft-deleted parent.
		return tx.Model(&models.BoardItem{}).
			Where("parent_item_id = ? AND is_deleted = ?", item.ID, false).
			Update("parent_item_id", nil).Error
	})
}

func (s *PostgresStore) BatchUpdateItems(ctx context.Context, boardID models.BoardID, updates []models.ItemUpdate) (*models.BatchUpdateResult, error) {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	// Each update commits or fails on its own; a failed entry must not roll
	// back the ones that already applied.
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

func (s *PostgresStore) ListRevisions(ctx context.Context, boardID models.BoardID, limit int) ([]*models.Revision, error) {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("board_id = ?", boardID).Order("version DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var revs []*models.Revision
	err := q.Find(&revs).Error
	return revs, err
}

func (s *PostgresStore) CreateRevision(ctx context.Context, boardID models.BoardID, snapshot models.Snapshot, note string) (*models.Revision, error) {
	var rev *models.Revision
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBoard(tx, boardID); err != nil {
			return err
		}
		var last int64
		if err := tx.Model(&models.Revision{}).
			Where("board_id = ?", boardID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		rev = &models.Revision{
			BoardID:  boardID,
			Version:  last + 1,
			Snapshot: snapshot,
			Note:     note,
		}
		return tx.Create(rev).Error
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}

func (s *PostgresStore) RestoreRevision(ctx context.Context, boardID models.BoardID, version int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBoard(tx, boardID); err != nil {
			return err
		}
		var rev models.Revision
		err := tx.Where("board_id = ? AND version = ?", boardID, version).First(&rev).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("revision %d of board %s: %w", version, boardID, store.ErrNotFound)
			}
			return err
		}

		if err := tx.Model(&models.BoardItem{}).
			Where("board_id = ? AND is_deleted = ?", boardID, false).
			Update("is_deleted", true).Error; err != nil {
			return err
		}

		// Snapshot items come back under fresh IDs; parent references are
		// remapped from snapshot IDs to the new ones.
		idMap := make(map[models.ItemID]models.ItemID, len(rev.Snapshot.Items))
		for i := range rev.Snapshot.Items {
			idMap[rev.Snapshot.Items[i].ID] = models.NewItemID()
		}
		now := time.Now().UTC()
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
					restored.ParentItemID = nil
				}
			}
			if err := tx.Create(restored).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Board{}).Where("id = ?", boardID).Updates(map[string]any{
			"viewport_x":    rev.Snapshot.Viewport.X,
			"viewport_y":    rev.Snapshot.Viewport.Y,
			"viewport_zoom": rev.Snapshot.Viewport.Zoom,
		}).Error
	})
}

// lockBoard takes a FOR UPDATE lock on the board row, serializing concurrent
// revision operations against the same board.
func lockBoard(tx *gorm.DB, boardID models.BoardID) error {
	var board models.Board
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&board, "id = ?", boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("board %s: %w", boardID, store.ErrNotFound)
	}
	return err
}

func getItem(ctx context.Context, db *gorm.DB, id models.ItemID) (*models.BoardItem, error) {
	var item models.BoardItem
	err := db.WithContext(ctx).First(&item, "id = ? AND is_deleted = ?", id, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("item %s: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &item, nil
}

func getItemForUpdate(ctx context.Context, tx *gorm.DB, id models.ItemID) (*models.BoardItem, error) {
	var item models.BoardItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ? AND is_deleted = ?", id, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("item %s: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &item, nil
}

// txGet adapts a transaction to the shared parent-chain walk, which expects
// a nil item (not an error) for missing IDs.
func txGet(tx *gorm.DB) store.GetItemFunc {
	return func(ctx context.Context, id models.ItemID) (*models.BoardItem, error) {
		var item models.BoardItem
		err := tx.First(&item, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &item, nil
	}
}
