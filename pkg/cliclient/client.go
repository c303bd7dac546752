package cliclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/api/schemas"
)

// Client is a minimal wrapper around the public HTTP surface, with the
// bearer token attached to every request.
type Client struct {
	BaseURL string
	Token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, http: &http.Client{}}
}

// apiError surfaces the {"error": {...}} envelope as a Go error.
type apiError struct {
	status int
	body   schemas.ErrorBody
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.body.Error.Type, e.status, e.body.Error.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody schemas.ErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &apiError{status: resp.StatusCode, body: errBody}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SubmitRun creates a run for actorID.
func (c *Client) SubmitRun(ctx context.Context, actorID string, req schemas.RunRequest) (*schemas.Run, error) {
	var out struct {
		Data schemas.Run `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/acts/"+actorID+"/runs", req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// GetRun reads a run's current state.
func (c *Client) GetRun(ctx context.Context, runID string) (*schemas.Run, error) {
	var out struct {
		Data schemas.Run `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/actor-runs/"+runID, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// AbortRun aborts a running run.
func (c *Client) AbortRun(ctx context.Context, runID string) (*schemas.Run, error) {
	var out struct {
		Data schemas.Run `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/actor-runs/"+runID+"/abort", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ResurrectRun resumes a terminal run.
func (c *Client) ResurrectRun(ctx context.Context, runID string) (*schemas.Run, error) {
	var out struct {
		Data schemas.Run `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/actor-runs/"+runID+"/resurrect", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// FetchLogs returns a page of a run's log lines.
func (c *Client) FetchLogs(ctx context.Context, runID string, offset, limit int64) ([]schemas.LogEntry, error) {
	var out struct {
		Data []schemas.LogEntry `json:"data"`
	}
	path := fmt.Sprintf("/v2/actor-runs/%s/logs?offset=%d&limit=%d", runID, offset, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// StreamLogs opens the live SSE-style log feed and invokes onLine for
// every entry until ctx is cancelled or the server closes the stream.
func (c *Client) StreamLogs(ctx context.Context, runID string, onLine func(schemas.LogEntry)) error {
	url := fmt.Sprintf("%s/v2/actor-runs/%s/logs/stream?token=%s", c.BaseURL, runID, c.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("log stream failed: status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var entry schemas.LogEntry
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &entry); err != nil {
			continue
		}
		onLine(entry)
	}
	return scanner.Err()
}

// PushDatasetItems pushes items (already-serialized JSON objects) to a
// dataset, array-or-single.
func (c *Client) PushDatasetItems(ctx context.Context, datasetID string, items []json.RawMessage) (*schemas.PushItemsResponse, error) {
	var payload any = items
	if len(items) == 1 {
		payload = items[0]
	}

	var out struct {
		Data schemas.PushItemsResponse `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/datasets/"+datasetID+"/items", payload, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ListDatasetItems lists items, along with the pagination total huma
// wrote into x-apify-pagination-total.
func (c *Client) ListDatasetItems(ctx context.Context, datasetID string, offset, limit int64) ([]json.RawMessage, int64, error) {
	path := fmt.Sprintf("/v2/datasets/%s/items?offset=%d&limit=%d", datasetID, offset, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errBody schemas.ErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, 0, &apiError{status: resp.StatusCode, body: errBody}
	}

	total, _ := strconv.ParseInt(resp.Header.Get("x-apify-pagination-total"), 10, 64)

	var out struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, err
	}
	return out.Data, total, nil
}
