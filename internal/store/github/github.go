// Package github implements the DocumentStore against the GitHub Contents
// API: one JSON file per month under data/ in a repository, fetched and
// overwritten whole.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"

	"github.com/Vedant6800/ledgerly/internal/core"
	"github.com/Vedant6800/ledgerly/internal/store"
)

const defaultBaseURL = "https://api.github.com"

// Config holds the settings for a Contents API client.
type Config struct {
	// Token is the bearer credential, configured out of band.
	Token string
	Owner string
	Repo  string
	// Branch is optional; the repository default branch is used when empty.
	Branch string
	// BaseURL overrides the API endpoint, used by tests and GHE setups.
	BaseURL string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

type Client struct {
	http   *http.Client
	base   string
	token  string
	owner  string
	repo   string
	branch string

	// The Contents API requires the current blob SHA when overwriting an
	// existing file, so the client remembers the last SHA it saw per path.
	// This is a mechanical API requirement, not conflict detection: on a
	// SHA mismatch the write refreshes the SHA and goes through, so the
	// semantics stay last write wins.
	mu   sync.Mutex
	shas map[string]string
}

var _ store.DocumentStore = (*Client)(nil)

var errSHAConflict = errors.New("content sha conflict")

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("missing github token: %w", store.ErrAuth)
	}
	if strings.TrimSpace(cfg.Owner) == "" || strings.TrimSpace(cfg.Repo) == "" {
		return nil, errors.New("missing github owner or repository")
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		http:   httpClient,
		base:   base,
		token:  cfg.Token,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		branch: cfg.Branch,
		shas:   make(map[string]string),
	}, nil
}

// contentsResponse is the subset of the GET contents payload the client uses.
type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

// putRequest is the PUT contents payload.
type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

// putResponse carries the new blob SHA back after a write.
type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// FetchDocument reads the month's file. A missing file reads as an empty
// document and is not surfaced as an error.
func (c *Client) FetchDocument(ctx context.Context, year int, month time.Month) (core.LedgerDocument, error) {
	path := store.DocumentPath(year, month)

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return core.LedgerDocument{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.setSHA(path, "")
		slog.DebugContext(ctx, "Remote document missing, starting empty", "path", path)
		return core.NewLedgerDocument(), nil
	case resp.StatusCode != http.StatusOK:
		return core.LedgerDocument{}, c.statusError("get", path, resp)
	}

	var payload contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return core.LedgerDocument{}, fmt.Errorf("decode contents of %s: %w", path, err)
	}

	raw, err := decodeContent(payload)
	if err != nil {
		return core.LedgerDocument{}, fmt.Errorf("decode contents of %s: %w", path, err)
	}

	var doc core.LedgerDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return core.LedgerDocument{}, fmt.Errorf("parse document %s: %w", path, err)
	}
	doc.Normalize()

	c.setSHA(path, payload.SHA)
	return doc, nil
}

// SaveDocument serializes the document and overwrites the month's file.
// On a SHA conflict (the file changed remotely since the last fetch) the
// current SHA is re-read and the write retried once, preserving last write
// wins semantics.
func (c *Client) SaveDocument(ctx context.Context, year int, month time.Month, doc core.LedgerDocument) error {
	path := store.DocumentPath(year, month)

	doc.Normalize()
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize document %s: %w", path, err)
	}

	err = retry.Do(
		func() error {
			return c.put(ctx, path, year, month, raw)
		},
		retry.RetryIf(func(err error) bool {
			if errors.Is(err, errSHAConflict) {
				slog.WarnContext(ctx, "Remote document changed underneath, refreshing sha", "path", path)
				return c.refreshSHA(ctx, path) == nil
			}
			return false
		}),
		retry.Attempts(2),
		retry.Delay(0),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, errSHAConflict) {
			// Retry exhausted, the remote kept moving underneath us.
			return fmt.Errorf("save document %s: repeated sha conflict: %w", path, store.ErrNetwork)
		}
		return err
	}

	slog.InfoContext(ctx, "Saved ledger document", "path", path, "bytes", len(raw))
	return nil
}

func (c *Client) put(ctx context.Context, path string, year int, month time.Month, raw []byte) error {
	body := putRequest{
		Message: fmt.Sprintf("ledger: update %s", store.MonthKey(year, month)),
		Content: base64.StdEncoding.EncodeToString(raw),
		Branch:  c.branch,
		SHA:     c.sha(path),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode put request for %s: %w", path, err)
	}

	resp, err := c.do(ctx, http.MethodPut, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var result putResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
			c.setSHA(path, result.Content.SHA)
		}
		return nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// 409 is a stale SHA, 422 a missing one (file created remotely
		// since the last fetch). Both resolve by re-reading the SHA.
		return errSHAConflict
	default:
		return c.statusError("put", path, resp)
	}
}

// refreshSHA re-reads the current blob SHA for a path after a conflict.
func (c *Client) refreshSHA(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.setSHA(path, "")
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return c.statusError("get", path, resp)
	}

	var payload contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode contents of %s: %w", path, err)
	}
	c.setSHA(path, payload.SHA)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.base, c.owner, c.repo, path)
	if method == http.MethodGet && c.branch != "" {
		url += "?ref=" + c.branch
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request for %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %v", strings.ToLower(method), path, store.ErrNetwork, err)
	}
	return resp, nil
}

func (c *Client) statusError(op, path string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w (status %d)", op, path, store.ErrAuth, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%s %s: %w (status %d)", op, path, store.ErrNetwork, resp.StatusCode)
	default:
		return fmt.Errorf("%s %s: unexpected status %d", op, path, resp.StatusCode)
	}
}

func (c *Client) sha(path string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shas[path]
}

func (c *Client) setSHA(path, sha string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sha == "" {
		delete(c.shas, path)
		return
	}
	c.shas[path] = sha
}

// decodeContent unwraps the base64 payload the Contents API returns. The API
// wraps lines with newlines, which the decoder rejects unless stripped.
func decodeContent(payload contentsResponse) ([]byte, error) {
	if payload.Encoding != "" && payload.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported content encoding %q", payload.Encoding)
	}
	compact := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, payload.Content)
	return base64.StdEncoding.DecodeString(compact)
}
