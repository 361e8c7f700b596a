package inkboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/inkboard/inkboard/pkg/models"
	"github.com/inkboard/inkboard/pkg/store"
)

// Board handlers

// handleCreateBoard creates a board. The request body is a Board object;
// the ID, timestamps, and a default viewport are assigned server-side when
// missing.
func (a *App) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var board models.Board
	if err := json.NewDecoder(r.Body).Decode(&board); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := a.store.CreateBoard(r.Context(), &board); err != nil {
		a.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, board)
}

func (a *App) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseBoardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid board ID")
		return
	}

	board, err := a.store.GetBoard(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, board)
}

// Item handlers

func (a *App) handleListItems(w http.ResponseWriter, r *http.Request) {
	boardID, err := models.ParseBoardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid board ID")
		return
	}

	items, err := a.store.ListItems(r.Context(), boardID)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (a *App) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	boardID, err := models.ParseBoardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid board ID")
		return
	}

	var item models.BoardItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	// The path, not the payload, decides which board the item lands on.
	// Client-assigned draft IDs are discarded the same way.
	item.BoardID = boardID
	item.ID = models.ItemID{}

	if err := a.store.CreateItem(r.Context(), &item); err != nil {
		a.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

func (a *App) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseItemID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var patch models.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	item, err := a.store.UpdateItem(r.Context(), id, patch)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (a *App) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseItemID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	if err := a.store.DeleteItem(r.Context(), id); err != nil {
		a.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// handleBatchUpdateItems applies a list of item patches. Entries fail
// individually; a 200 with a non-empty failed list is still a success at
// the transport level.
func (a *App) handleBatchUpdateItems(w http.ResponseWriter, r *http.Request) {
	boardID, err := models.ParseBoardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid board ID")
		return
	}

	var updates []models.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := a.store.BatchUpdateItems(r.Context(), boardID, updates)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Revision handlers

func (a *App) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	boardID, err := models.ParseBoardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid board ID")
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	revs, err := a.store.ListRevisions(r.Context(), boardID, limit)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, revs)
}

func (a *App) handleCreateRevision(w http.ResponseWriter, r *http.Request) {
	boardID, err := models.ParseBoardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid board ID")
		return
	}

	var body struct {
		Snapshot models.Snapshot `json:"snapshot"`
		Note     string          `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	rev, err := a.store.CreateRevision(r.Context(), boardID, body.Snapshot, body.Note)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}

	a.log.Info().
		Stringer("board", boardID).
		Int64("version", rev.Version).
		Msg("revision created")
	respondJSON(w, http.StatusCreated, rev)
}

func (a *App) handleRestoreRevision(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	boardID, err := models.ParseBoardID(vars["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid board ID")
		return
	}
	version, err := strconv.ParseInt(vars["version"], 10, 64)
	if err != nil || version < 1 {
		respondError(w, http.StatusBadRequest, "invalid revision version")
		return
	}

	if err := a.store.RestoreRevision(r.Context(), boardID, version); err != nil {
		a.respondStoreError(w, r, err)
		return
	}

	a.log.Info().
		Stringer("board", boardID).
		Int64("version", version).
		Msg("revision restored")
	respondJSON(w, http.StatusNoContent, nil)
}

// handleHealth reports liveness. Kept cheap so load balancer checks never
// touch the store.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"store":  a.config.Store,
		"time":   time.Now().Unix(),
	})
}

// respondStoreError maps store errors onto status codes: missing entities
// become 404, domain-rule violations 400 with the message passed through
// verbatim, everything else a logged 500.
func (a *App) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		a.log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		response, _ := json.Marshal(payload)
		_, _ = w.Write(response)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
