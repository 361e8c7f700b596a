// Package client provides a Go HTTP client for the inkboard Board API.
//
// [Client] mirrors the server's endpoint structure with strongly-typed
// methods, using the same [github.com/inkboard/inkboard/pkg/models] entities
// as the server so the API boundary stays type safe. It implements
// [github.com/inkboard/inkboard/pkg/board.API] and is the production
// transport behind a board session.
//
// Request bodies marshal to JSON automatically and responses unmarshal into
// the typed results. Server-side failures become an [*APIError] carrying the
// HTTP status and the server's error message verbatim, so validation messages
// reach the user unchanged.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inkboard/inkboard/pkg/board"
	"github.com/inkboard/inkboard/pkg/models"
)

// Client provides typed access to the inkboard REST API. Client instances
// are safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ board.API = (*Client)(nil)

// NewClient creates a new API client. The baseURL should include protocol
// and host (e.g. "http://localhost:8080") without a trailing slash. The
// client ships with a 30-second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the server. Message is the server's
// error text, surfaced verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, message=%s", e.Status, e.Message)
}

// doRequest performs an HTTP request with proper headers
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

// decodeResponse decodes the JSON response into the target struct
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		var payload struct {
			Error string `json:"error"`
		}
		msg := string(body)
		if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Health checks the health status of the server
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// Board management

// CreateBoard creates a new board
func (c *Client) CreateBoard(ctx context.Context, b *models.Board) (*models.Board, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/boards", b)
	if err != nil {
		return nil, err
	}

	var result models.Board
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetBoard retrieves a board by ID
func (c *Client) GetBoard(ctx context.Context, id models.BoardID) (*models.Board, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/boards/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result models.Board
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Item management

// GetBoardItems lists the live items on a board
func (c *Client) GetBoardItems(ctx context.Context, boardID models.BoardID) ([]*models.BoardItem, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/boards/%s/items", boardID), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.BoardItem
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// CreateBoardItem creates a new item on a board
func (c *Client) CreateBoardItem(ctx context.Context, boardID models.BoardID, item *models.BoardItem) (*models.BoardItem, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/boards/%s/items", boardID), item)
	if err != nil {
		return nil, err
	}

	var result models.BoardItem
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// UpdateBoardItem applies a partial update to an item
func (c *Client) UpdateBoardItem(ctx context.Context, itemID models.ItemID, patch models.ItemPatch) (*models.BoardItem, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/items/%s", itemID), patch)
	if err != nil {
		return nil, err
	}

	var result models.BoardItem
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// DeleteBoardItem soft-deletes an item
func (c *Client) DeleteBoardItem(ctx context.Context, itemID models.ItemID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/items/%s", itemID), nil)
	if err != nil {
		return err
	}

	return decodeResponse(resp, nil)
}

// BatchUpdateBoardItems applies many item patches in one round trip
func (c *Client) BatchUpdateBoardItems(ctx context.Context, boardID models.BoardID, updates []models.ItemUpdate) (*models.BatchUpdateResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/boards/%s/items/batch", boardID), updates)
	if err != nil {
		return nil, err
	}

	var result models.BatchUpdateResult
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Revision management

// ListBoardRevisions lists up to limit revisions for a board, newest first
func (c *Client) ListBoardRevisions(ctx context.Context, boardID models.BoardID, limit int) ([]*models.Revision, error) {
	path := fmt.Sprintf("/api/boards/%s/revisions", boardID)
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result []*models.Revision
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// CreateBoardRevision stores a snapshot; the server assigns the version
func (c *Client) CreateBoardRevision(ctx context.Context, boardID models.BoardID, snapshot models.Snapshot, note string) (*models.Revision, error) {
	body := struct {
		Snapshot models.Snapshot `json:"snapshot"`
		Note     string          `json:"note,omitempty"`
	}{Snapshot: snapshot, Note: note}

	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/boards/%s/revisions", boardID), body)
	if err != nil {
		return nil, err
	}

	var result models.Revision
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// RestoreBoardRevision destructively resets a board to a revision
func (c *Client) RestoreBoardRevision(ctx context.Context, boardID models.BoardID, version int64) error {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/boards/%s/revisions/%d/restore", boardID, version), nil)
	if err != nil {
		return err
	}

	return decodeResponse(resp, nil)
}
