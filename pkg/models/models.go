package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ItemType represents the kind of board item
type ItemType string

const (
	ItemTypeRectangle ItemType = "rectangle"
	ItemTypeEllipse   ItemType = "ellipse"
	ItemTypeText      ItemType = "text"
	ItemTypeSticky    ItemType = "sticky"
	ItemTypeFreehand  ItemType = "freehand"
)

// Freehand style keys. The svgPath value is the one concrete format contract
// shared across implementations: "M x y (L x y)*", decimal coordinates,
// single-space separated, relative to the item's own (x, y) origin.
const (
	StyleKeySVGPath     = "svgPath"
	StyleKeyStrokeColor = "strokeColor"
	StyleKeyStrokeWidth = "strokeWidth"
)

// JSONMap is a flexible key-value map for the opaque style and content fields
// of a board item. The engine never interprets these beyond the freehand style
// keys above; they belong to the rendering layer. The map round-trips through
// PostgreSQL JSONB, sqlite TEXT, and the JSON/CBOR wire formats unchanged.
type JSONMap map[string]any

// Value implements the driver.Valuer interface for database storage
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for database retrieval
func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = make(map[string]any)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("cannot scan type %T into JSONMap", value)
		}
		bytes = []byte(s)
	}
	return json.Unmarshal(bytes, j)
}

// Viewport is a board's pan/zoom state: a world-space pan offset and a scale
// factor. It is session-local on the client and persisted only inside revision
// snapshots, except that a restore writes the restored snapshot's viewport
// onto the board row so clients can reload it.
//
// Zoom is clamped to the canvas package's bounds by every mutation path; the
// zero value is not a valid viewport, use DefaultViewport.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the origin at 100% zoom.
func DefaultViewport() Viewport {
	return Viewport{X: 0, Y: 0, Zoom: 1}
}

// Board represents a whiteboard: a pannable, zoomable canvas holding items.
// The viewport column holds the last restored snapshot's viewport (or the
// default for a fresh board); live viewport state never round-trips through
// the server outside of revisions.
type Board struct {
	ID        BoardID        `gorm:"type:uuid;primary_key" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Viewport  Viewport       `gorm:"embedded;embeddedPrefix:viewport_" json:"viewport"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate hook to generate ID if not set
func (b *Board) BeforeCreate(tx *gorm.DB) error {
	if b.ID.IsZero() {
		b.ID = NewBoardID()
	}
	if b.Viewport.Zoom == 0 {
		b.Viewport = DefaultViewport()
	}
	return nil
}

// BoardItem represents a single item on a board: a shape, a text label, or a
// freehand stroke. X and Y are the world-space top-left corner; Width and
// Height are always positive (degenerate freehand bounding boxes are floored
// to 1 before they reach the server). ZIndex determines paint order.
//
// ParentItemID, when set, must reference a live item on the same board; items
// form a forest, never a cycle. Deletion is always soft, via IsDeleted, so
// revision snapshots can still reference items no longer on the live board.
type BoardItem struct {
	ID           ItemID    `gorm:"type:uuid;primary_key" json:"id"`
	BoardID      BoardID   `gorm:"type:uuid;not null;index" json:"board_id"`
	Type         ItemType  `gorm:"not null" json:"type"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Width        float64   `json:"width"`
	Height       float64   `json:"height"`
	Rotation     float64   `json:"rotation,omitempty"`
	ZIndex       int       `gorm:"column:z_index" json:"z_index"`
	Style        JSONMap   `gorm:"type:jsonb" json:"style,omitempty"`
	Content      JSONMap   `gorm:"type:jsonb" json:"content,omitempty"`
	ParentItemID *ItemID   `gorm:"type:uuid" json:"parent_item_id,omitempty"`
	IsDeleted    bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (i *BoardItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID.IsZero() {
		i.ID = NewItemID()
	}
	return nil
}

// Clone returns a deep copy of the item. Style and content maps are copied
// one level deep, which is sufficient for rollback snapshots because the
// engine never mutates nested values in place.
func (i *BoardItem) Clone() *BoardItem {
	c := *i
	if i.Style != nil {
		c.Style = make(JSONMap, len(i.Style))
		for k, v := range i.Style {
			c.Style[k] = v
		}
	}
	if i.Content != nil {
		c.Content = make(JSONMap, len(i.Content))
		for k, v := range i.Content {
			c.Content[k] = v
		}
	}
	if i.ParentItemID != nil {
		p := *i.ParentItemID
		c.ParentItemID = &p
	}
	return &c
}

// Snapshot is the immutable payload of a revision: the board's viewport and
// its non-deleted items at one instant.
type Snapshot struct {
	Viewport Viewport    `json:"viewport"`
	Items    []BoardItem `json:"items"`
}

// Value implements the driver.Valuer interface for database storage
func (s Snapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for database retrieval
func (s *Snapshot) Scan(value any) error {
	if value == nil {
		*s = Snapshot{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("cannot scan type %T into Snapshot", value)
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, s)
}

// Revision is a point-in-time capture of a board. Version numbers are
// assigned by the server, strictly increasing per board and never reused;
// the snapshot is immutable once created.
type Revision struct {
	ID        RevisionID `gorm:"type:uuid;primary_key" json:"id"`
	BoardID   BoardID    `gorm:"type:uuid;not null;uniqueIndex:idx_revisions_board_version" json:"board_id"`
	Version   int64      `gorm:"not null;uniqueIndex:idx_revisions_board_version" json:"version"`
	Snapshot  Snapshot   `gorm:"type:jsonb" json:"snapshot"`
	Note      string     `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// BeforeCreate hook to generate ID if not set
func (r *Revision) BeforeCreate(tx *gorm.DB) error {
	if r.ID.IsZero() {
		r.ID = NewRevisionID()
	}
	return nil
}

// ItemPatch is a partial update to a board item. Nil fields are left
// untouched; Style and Content replace the whole map when present.
// ClearParent detaches the item from its parent (ParentItemID alone cannot
// express "set to null" through JSON).
type ItemPatch struct {
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	Height       *float64 `json:"height,omitempty"`
	Rotation     *float64 `json:"rotation,omitempty"`
	ZIndex       *int     `json:"z_index,omitempty"`
	Style        JSONMap  `json:"style,omitempty"`
	Content      JSONMap  `json:"content,omitempty"`
	ParentItemID *ItemID  `json:"parent_item_id,omitempty"`
	ClearParent  bool     `json:"clear_parent,omitempty"`
}

// Apply mutates item in place with the patch's non-nil fields.
func (p ItemPatch) Apply(item *BoardItem) {
	if p.X != nil {
		item.X = *p.X
	}
	if p.Y != nil {
		item.Y = *p.Y
	}
	if p.Width != nil {
		item.Width = *p.Width
	}
	if p.Height != nil {
		item.Height = *p.Height
	}
	if p.Rotation != nil {
		item.Rotation = *p.Rotation
	}
	if p.ZIndex != nil {
		item.ZIndex = *p.ZIndex
	}
	if p.Style != nil {
		item.Style = p.Style
	}
	if p.Content != nil {
		item.Content = p.Content
	}
	if p.ClearParent {
		item.ParentItemID = nil
	} else if p.ParentItemID != nil {
		id := *p.ParentItemID
		item.ParentItemID = &id
	}
}

// ItemUpdate is one element of a batch update request.
type ItemUpdate struct {
	ID    ItemID    `json:"id"`
	Patch ItemPatch `json:"patch"`
}

// BatchUpdateResult reports the outcome of a batch update. Updated holds the
// server's representation of every item it applied, in request order. Failed
// lists the IDs whose individual updates were rejected; the rest of the batch
// still goes through (partial success is expected behavior, not an error).
type BatchUpdateResult struct {
	Updated []*BoardItem `json:"updated"`
	Failed  []ItemID     `json:"failed,omitempty"`
}
