// Package syncgw talks to the remote family store: GET <base>/family loads
// the whole document and POST <base>/family replaces it. There are no
// partial updates, no ETags and no retries; the last writer wins.
package syncgw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"familytree/internal/model"
)

const DefaultBaseURL = "http://localhost:3000/"

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

var (
	ErrLoad    = errors.New("load failure")
	ErrPersist = errors.New("persist failure")
)

// LoadFailure means the store was unreachable or answered with a non-success status.
type LoadFailure struct {
	Status int
	Err    error
}

func (e *LoadFailure) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to load family tree: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("failed to load family tree: %v", e.Err)
}

func (e *LoadFailure) Unwrap() error        { return e.Err }
func (e *LoadFailure) Is(target error) bool { return target == ErrLoad }

// PersistFailure means a push did not reach the store. The in-memory tree is
// not rolled back.
type PersistFailure struct {
	Status int
	Err    error
}

func (e *PersistFailure) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("error saving family tree: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("error saving family tree: %v", e.Err)
}

func (e *PersistFailure) Unwrap() error        { return e.Err }
func (e *PersistFailure) Is(target error) bool { return target == ErrPersist }

// Gateway loads and stores the whole family document.
type Gateway interface {
	Fetch(ctx context.Context) (*model.FamilyTree, error)
	Push(ctx context.Context, ft *model.FamilyTree) error
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL}
}

func (c *Client) familyURL() string {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/family"
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return defaultHTTPClient
}

func (c *Client) Fetch(ctx context.Context) (*model.FamilyTree, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.familyURL(), nil)
	if err != nil {
		return nil, &LoadFailure{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &LoadFailure{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &LoadFailure{Status: resp.StatusCode}
	}
	var ft model.FamilyTree
	if err := json.NewDecoder(resp.Body).Decode(&ft); err != nil {
		return nil, &LoadFailure{Err: fmt.Errorf("decode: %w", err)}
	}
	return &ft, nil
}

func (c *Client) Push(ctx context.Context, ft *model.FamilyTree) error {
	if ft == nil {
		return &PersistFailure{Err: errors.New("no family tree to save")}
	}
	b, err := Encode(ft)
	if err != nil {
		return &PersistFailure{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.familyURL(), bytes.NewReader(b))
	if err != nil {
		return &PersistFailure{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return &PersistFailure{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &PersistFailure{Status: resp.StatusCode}
	}
	return nil
}

// Encode renders the document the way it travels and is exported:
// JSON indented with two spaces.
func Encode(ft *model.FamilyTree) ([]byte, error) {
	return json.MarshalIndent(ft, "", "  ")
}
