// Package luma is a client for the Luma AI capture-processing API:
// authenticate with an API key, submit media for 3D reconstruction,
// check processing status, list captures, and query credit balance.
//
//	client := luma.NewClient(cfg, store)
//	slug, err := client.Submit(ctx, videoPath, title, luma.CameraNormal)
//	info, err := client.Status(ctx, slug)
package luma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lumalabs/luma-go/internal/archive"
	"github.com/lumalabs/luma-go/internal/authcache"
	"github.com/lumalabs/luma-go/internal/config"
)

const authHeaderPrefix = "luma-api-key="

// Client talks to the capture API. All calls are synchronous and
// blocking; no call retries on failure.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *authcache.Store

	// KeyPrompt supplies an API key when none is cached and none was
	// given explicitly. The CLI installs a stdin prompter; leave nil in
	// non-interactive environments to fail instead of blocking.
	KeyPrompt func() (string, error)

	authHeader string

	// settleDelay is the pause between upload and trigger, letting the
	// upload become consistent server-side before processing starts.
	settleDelay time.Duration
}

// NewClient builds a client against cfg.BaseURL using store for
// credential caching.
func NewClient(cfg config.Settings, store *authcache.Store) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/") + "/",
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		store:       store,
		settleDelay: 500 * time.Millisecond,
	}
}

// Auth resolves the authorization header for requests.
//
// With an explicit apiKey the header is cached to disk and then verified
// with a credits request; if verification fails the just-written cache
// entry is removed and the failure returned wrapped in ErrInvalidAPIKey.
// Without an explicit key the in-memory or on-disk cache is used as-is,
// and only when both are empty is KeyPrompt consulted (then treated as
// the explicit-key case).
func (c *Client) Auth(ctx context.Context, apiKey string) (string, error) {
	if apiKey == "" {
		if c.authHeader != "" {
			return c.authHeader, nil
		}
		header, err := c.store.Load()
		if err == nil {
			c.authHeader = header
			return header, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		if c.KeyPrompt == nil {
			return "", fmt.Errorf("no API key cached and no key prompt configured")
		}
		apiKey, err = c.KeyPrompt()
		if err != nil {
			return "", fmt.Errorf("prompting for api key: %w", err)
		}
		apiKey = strings.TrimSpace(apiKey)
	}

	header := authHeaderPrefix + apiKey
	if err := c.store.Save(header); err != nil {
		return "", err
	}
	c.authHeader = header

	slog.Info("Verifying api key")
	if _, err := c.Credits(ctx); err != nil {
		c.authHeader = ""
		if clearErr := c.store.Clear(); clearErr != nil {
			slog.Error("Unable to roll back cached credential", "err", clearErr)
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidAPIKey, err)
	}
	return header, nil
}

// ClearAuth removes the cached credential if present.
func (c *Client) ClearAuth() error {
	c.authHeader = ""
	return c.store.Clear()
}

// Credits returns the account credit balance.
func (c *Client) Credits(ctx context.Context) (CreditInfo, error) {
	data, err := c.do(ctx, http.MethodGet, "capture/credits", nil, "")
	if err != nil {
		return CreditInfo{}, err
	}
	var info CreditInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return CreditInfo{}, fmt.Errorf("decoding credits response: %w", err)
	}
	return info, nil
}

// Submit uploads the file or directory at path for processing and
// returns the capture slug. A directory is zipped to a temporary file
// first, which is removed regardless of outcome; anything else is read
// whole into memory. The path is checked before any network call.
func (c *Client) Submit(ctx context.Context, path, title string, cam CameraType) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("checking submission source: %w", err)
	}

	if fi.IsDir() {
		slog.Info("Compressing directory", "dir", path)
		zipPath, err := archive.ZipDir(path)
		if err != nil {
			return "", err
		}
		defer os.Remove(zipPath)
		path = zipPath
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading submission source: %w", err)
	}
	return c.SubmitBinary(ctx, payload, title, cam)
}

// SubmitBinary uploads a video or zip payload for processing and returns
// the capture slug. Three sequential phases: create the capture, PUT the
// payload to the signed URL, trigger processing. Any phase failure aborts
// the whole submission; the server keeps whatever partial state resulted.
func (c *Client) SubmitBinary(ctx context.Context, payload []byte, title string, cam CameraType) (string, error) {
	if cam == "" {
		cam = CameraNormal
	}

	form := url.Values{}
	form.Set("title", title)
	form.Set("camModel", string(cam))
	slog.Info("Creating capture", "title", title, "camModel", cam)
	data, err := c.do(ctx, http.MethodPost, "capture",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return "", err
	}

	var created struct {
		SignedURLs struct {
			Source string `json:"source"`
		} `json:"signedUrls"`
		Capture struct {
			Slug string `json:"slug"`
		} `json:"capture"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}
	slug := created.Capture.Slug

	slog.Info("Uploading", "slug", slug, "bytes", len(payload))
	if err := c.upload(ctx, created.SignedURLs.Source, payload); err != nil {
		return "", err
	}

	time.Sleep(c.settleDelay)

	slog.Info("Triggering processing", "slug", slug)
	if _, err := c.do(ctx, http.MethodPost, "capture/"+url.PathEscape(slug), nil, ""); err != nil {
		return "", err
	}
	return slug, nil
}

// Status returns the current state of a submitted capture.
func (c *Client) Status(ctx context.Context, slug string) (CaptureInfo, error) {
	data, err := c.do(ctx, http.MethodGet, "capture/"+url.PathEscape(slug), nil, "")
	if err != nil {
		return CaptureInfo{}, err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return CaptureInfo{}, fmt.Errorf("decoding status response: %w", err)
	}
	return CaptureInfoFromMap(payload)
}

// List returns a page of the caller's captures. query filters by title
// when non-empty, skip/take window the results, and desc selects server
// sort order. Records come back in server order.
func (c *Client) List(ctx context.Context, query string, skip, take int, desc bool) ([]CaptureInfo, error) {
	params := url.Values{}
	if query != "" {
		params.Set("search", query)
	}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("take", strconv.Itoa(take))
	if desc {
		params.Set("order", "DESC")
	} else {
		params.Set("order", "ASC")
	}

	data, err := c.do(ctx, http.MethodGet, "capture?"+params.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	var page struct {
		Captures []map[string]any `json:"captures"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decoding capture list: %w", err)
	}

	captures := make([]CaptureInfo, 0, len(page.Captures))
	for _, entry := range page.Captures {
		info, err := CaptureInfoFromMap(entry)
		if err != nil {
			return nil, err
		}
		captures = append(captures, info)
	}
	return captures, nil
}

// do issues an authorized request against the API and returns the body.
// Non-2xx responses become *HTTPError.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	header, err := c.Auth(ctx, "")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", header)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// upload PUTs the raw payload to the signed URL from capture creation.
// The signed URL is pre-authorized; no Authorization header is sent.
func (c *Client) upload(ctx context.Context, signedURL string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading payload: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return nil
}
