package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// BoardID is a typed ID for boards
type BoardID struct {
	uuid uuid.UUID
}

func NewBoardID() BoardID {
	return BoardID{uuid: uuid.New()}
}

func NewBoardIDFromUUID(id uuid.UUID) BoardID {
	return BoardID{uuid: id}
}

func ParseBoardID(s string) (BoardID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BoardID{}, fmt.Errorf("invalid board ID: %w", err)
	}
	return BoardID{uuid: id}, nil
}

func (b BoardID) UUID() uuid.UUID { return b.uuid }
func (b BoardID) String() string  { return b.uuid.String() }
func (b BoardID) IsZero() bool    { return b.uuid == uuid.Nil }

func (b BoardID) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.uuid.String())
}

func (b *BoardID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	b.uuid = id
	return nil
}

func (b BoardID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(b.uuid.String())
}

func (b *BoardID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORUUID(data, &b.uuid)
}

func (b BoardID) Value() (driver.Value, error) {
	if b.IsZero() {
		return nil, nil
	}
	return b.uuid.String(), nil
}

func (b *BoardID) Scan(value any) error {
	return scanUUID(value, &b.uuid)
}

func (BoardID) GormDataType() string { return "uuid" }

// ItemID is a typed ID for board items
type ItemID struct {
	uuid uuid.UUID
}

func NewItemID() ItemID {
	return ItemID{uuid: uuid.New()}
}

func NewItemIDFromUUID(id uuid.UUID) ItemID {
	return ItemID{uuid: id}
}

func ParseItemID(s string) (ItemID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ItemID{}, fmt.Errorf("invalid item ID: %w", err)
	}
	return ItemID{uuid: id}, nil
}

func (i ItemID) UUID() uuid.UUID { return i.uuid }
func (i ItemID) String() string  { return i.uuid.String() }
func (i ItemID) IsZero() bool    { return i.uuid == uuid.Nil }

func (i ItemID) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.uuid.String())
}

func (i *ItemID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	i.uuid = id
	return nil
}

func (i ItemID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(i.uuid.String())
}

func (i *ItemID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORUUID(data, &i.uuid)
}

func (i ItemID) Value() (driver.Value, error) {
	if i.IsZero() {
		return nil, nil
	}
	return i.uuid.String(), nil
}

func (i *ItemID) Scan(value any) error {
	return scanUUID(value, &i.uuid)
}

func (ItemID) GormDataType() string { return "uuid" }

// RevisionID is a typed ID for board revisions
type RevisionID struct {
	uuid uuid.UUID
}

func NewRevisionID() RevisionID {
	return RevisionID{uuid: uuid.New()}
}

func NewRevisionIDFromUUID(id uuid.UUID) RevisionID {
	return RevisionID{uuid: id}
}

func ParseRevisionID(s string) (RevisionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RevisionID{}, fmt.Errorf("invalid revision ID: %w", err)
	}
	return RevisionID{uuid: id}, nil
}

func (r RevisionID) UUID() uuid.UUID { return r.uuid }
func (r RevisionID) String() string  { return r.uuid.String() }
func (r RevisionID) IsZero() bool    { return r.uuid == uuid.Nil }

func (r RevisionID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.uuid.String())
}

func (r *RevisionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	r.uuid = id
	return nil
}

func (r RevisionID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(r.uuid.String())
}

func (r *RevisionID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORUUID(data, &r.uuid)
}

func (r RevisionID) Value() (driver.Value, error) {
	if r.IsZero() {
		return nil, nil
	}
	return r.uuid.String(), nil
}

func (r *RevisionID) Scan(value any) error {
	return scanUUID(value, &r.uuid)
}

func (RevisionID) GormDataType() string { return "uuid" }

// Helper functions

// scanUUID is a helper for implementing sql.Scanner for PostgreSQL/GORM and
// the sqlite store, which hands UUID columns back as TEXT.
func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}

	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

// unmarshalCBORUUID decodes a typed ID from its CBOR string form. IDs are
// encoded as canonical UUID strings in export archives.
func unmarshalCBORUUID(data []byte, target *uuid.UUID) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR ID: %w", err)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid UUID in CBOR ID: %w", err)
	}
	*target = id
	return nil
}
