// Package models defines the entities shared between the inkboard server,
// the HTTP client, and the client-side board engine: boards, board items,
// revisions, and the viewport geometry they carry.
//
// All entities use typed UUID identifiers ([BoardID], [ItemID], [RevisionID])
// rather than raw strings, so an item ID can never be passed where a board ID
// is expected. The typed IDs serialize as plain UUID strings in JSON and CBOR
// and implement driver.Valuer/sql.Scanner for database storage.
//
// Item geometry is stored in world coordinates: the board's logical,
// zoom-independent coordinate space. Screen-space conversion is the concern of
// [github.com/inkboard/inkboard/pkg/canvas], not of the data model.
//
// Items are soft-deleted via [BoardItem.IsDeleted] instead of being removed,
// because revision snapshots taken in the past may still reference items that
// are no longer on the live board.
package models
