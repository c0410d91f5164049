// Package apiclient talks to the expense REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finboard/internal/core"
)

// Messages shown to the user for each failing call.
const (
	MsgFetchFailed  = "Failed to fetch expenses"
	MsgCreateFailed = "Failed to add expense"
	MsgUpdateFailed = "Failed to update expense"
)

// NetworkError reports a rejected request or a non-2xx response.
type NetworkError struct {
	Op         string
	StatusCode int
	Msg        string
	Err        error
}

func (e *NetworkError) Error() string {
	return e.Msg
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Detail describes the underlying failure for logs.
func (e *NetworkError) Detail() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// CreateResponse is the body returned by POST /expenses.
type CreateResponse struct {
	ID      json.RawMessage `json:"id"`
	Message string          `json:"message"`
}

// Client calls GET/POST/PUT on {baseURL}/expenses.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL, e.g. http://localhost:3000/api.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// List fetches every expense.
func (c *Client) List(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	if err := c.do(ctx, http.MethodGet, "/expenses", nil, &out, MsgFetchFailed); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

// Create posts a new expense and returns the identifier assigned by the API.
func (c *Client) Create(ctx context.Context, in core.ExpenseInput) (string, error) {
	var resp CreateResponse
	if err := c.do(ctx, http.MethodPost, "/expenses", in, &resp, MsgCreateFailed); err != nil {
		return "", err
	}
	return core.RawID(resp.ID), nil
}

// Update replaces the editable fields of expense id.
func (c *Client) Update(ctx context.Context, id string, in core.ExpenseInput) error {
	return c.do(ctx, http.MethodPut, "/expenses/"+url.PathEscape(id), in, nil, MsgUpdateFailed)
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any, msg string) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &NetworkError{Op: op, Msg: msg, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Msg: msg, Err: err}
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "Expense API call",
		"operation", op,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Msg: msg}
	}
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Msg: msg, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
