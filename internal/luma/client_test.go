package luma

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumalabs/luma-go/internal/authcache"
	"github.com/lumalabs/luma-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "luma-api-key=test-key"

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	store, err := authcache.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(testHeader))

	c := NewClient(config.Settings{BaseURL: baseURL, HTTPTimeout: 5 * time.Second}, store)
	c.settleDelay = 0
	return c
}

func TestCredits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("expected GET; got %s", r.Method)
		}
		if r.URL.Path != "/capture/credits" {
			t.Errorf("expected path /capture/credits; got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != testHeader {
			t.Errorf("Authorization = %q; want %q", got, testHeader)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"remaining": 80, "used": 20, "total": 100}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	got, err := client.Credits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CreditInfo{Remaining: 80, Used: 20, Total: 100}, got)
}

func TestSubmitBinarySequence(t *testing.T) {
	var phases []string
	var uploaded []byte

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/capture", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST to /capture; got %s", r.Method)
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Backyard", r.PostForm.Get("title"))
		assert.Equal(t, "fisheye", r.PostForm.Get("camModel"))
		phases = append(phases, "create")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"signedUrls": {"source": %q}, "capture": {"slug": "slug123"}}`, srv.URL+"/upload")
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PUT" {
			t.Errorf("expected PUT to signed URL; got %s", r.Method)
		}
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		uploaded, _ = io.ReadAll(r.Body)
		phases = append(phases, "upload")
	})
	mux.HandleFunc("/capture/slug123", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST trigger; got %s", r.Method)
		}
		phases = append(phases, "trigger")
	})

	client := newTestClient(t, srv.URL)

	slug, err := client.SubmitBinary(context.Background(), []byte("video-bytes"), "Backyard", CameraFisheye)
	require.NoError(t, err)
	assert.Equal(t, "slug123", slug)
	assert.Equal(t, []string{"create", "upload", "trigger"}, phases)
	assert.Equal(t, []byte("video-bytes"), uploaded)
}

func TestSubmitBinaryUploadFailureSkipsTrigger(t *testing.T) {
	var phases []string

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/capture", func(w http.ResponseWriter, r *http.Request) {
		phases = append(phases, "create")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"signedUrls": {"source": %q}, "capture": {"slug": "slug123"}}`, srv.URL+"/upload")
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		phases = append(phases, "upload")
		http.Error(w, "upload rejected", http.StatusInternalServerError)
	})
	mux.HandleFunc("/capture/slug123", func(w http.ResponseWriter, r *http.Request) {
		phases = append(phases, "trigger")
	})

	client := newTestClient(t, srv.URL)

	_, err := client.SubmitBinary(context.Background(), []byte("video-bytes"), "Backyard", CameraNormal)
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, []string{"create", "upload"}, phases, "trigger must not fire after a failed upload")
}

func TestSubmitDirectoryZipsContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame1.jpg"), []byte("jpeg-1"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "frame2.jpg"), []byte("jpeg-2"), 0o644))

	var uploaded []byte
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/capture", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"signedUrls": {"source": %q}, "capture": {"slug": "dir-slug"}}`, srv.URL+"/upload")
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		uploaded, _ = io.ReadAll(r.Body)
	})
	mux.HandleFunc("/capture/dir-slug", func(w http.ResponseWriter, r *http.Request) {})

	client := newTestClient(t, srv.URL)

	slug, err := client.Submit(context.Background(), dir, "Frames", CameraNormal)
	require.NoError(t, err)
	assert.Equal(t, "dir-slug", slug)

	zr, err := zip.NewReader(bytes.NewReader(uploaded), int64(len(uploaded)))
	require.NoError(t, err, "uploaded payload should be a zip archive")

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"frame1.jpg", "nested/frame2.jpg"}, names)
}

func TestSubmitMissingPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected for a missing source path")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Submit(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), "Missing", CameraNormal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestAuthExplicitKeyVerifiesAndCaches(t *testing.T) {
	creditsCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capture/credits" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "luma-api-key=fresh-key" {
			t.Errorf("Authorization = %q; want new key header", got)
		}
		creditsCalls++
		fmt.Fprint(w, `{"remaining": 1, "used": 0, "total": 1}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	store, err := authcache.New(dir)
	require.NoError(t, err)
	client := NewClient(config.Settings{BaseURL: srv.URL, HTTPTimeout: 5 * time.Second}, store)

	header, err := client.Auth(context.Background(), "fresh-key")
	require.NoError(t, err)
	assert.Equal(t, "luma-api-key=fresh-key", header)
	assert.Equal(t, 1, creditsCalls)

	cached, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, header, cached)
}

func TestAuthInvalidKeyRollsBackCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	dir := t.TempDir()
	store, err := authcache.New(dir)
	require.NoError(t, err)
	client := NewClient(config.Settings{BaseURL: srv.URL, HTTPTimeout: 5 * time.Second}, store)

	_, err = client.Auth(context.Background(), "bad-key")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAPIKey))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)

	// The rolled-back cache file must not exist after the call returns
	_, statErr := os.Stat(filepath.Join(dir, "auth.json"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "cache file should be removed on failed verification")
}

func TestAuthCachedKeySkipsValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("cached credentials must be returned without re-validation")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	header, err := client.Auth(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, testHeader, header)
}

func TestAuthPromptsWhenNothingCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"remaining": 1, "used": 0, "total": 1}`)
	}))
	defer srv.Close()

	store, err := authcache.New(t.TempDir())
	require.NoError(t, err)
	client := NewClient(config.Settings{BaseURL: srv.URL, HTTPTimeout: 5 * time.Second}, store)

	prompted := false
	client.KeyPrompt = func() (string, error) {
		prompted = true
		return "prompted-key\n", nil
	}

	header, err := client.Auth(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, prompted)
	assert.Equal(t, "luma-api-key=prompted-key", header)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capture/slug123" {
			t.Errorf("expected path /capture/slug123; got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"title": "Backyard",
			"type": "reconstruction",
			"location": null,
			"privacy": "unlisted",
			"date": "2023-01-02T03:04:05Z",
			"username": "ada",
			"status": "complete",
			"latestRun": {
				"status": "finished",
				"progress": 100,
				"currentStage": "nerf",
				"artifacts": [{"type": "mesh", "url": "https://example.com/mesh.glb"}]
			}
		}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	info, err := client.Status(context.Background(), "slug123")
	require.NoError(t, err)
	assert.Equal(t, "Backyard", info.Title)
	assert.Equal(t, PrivacyUnlisted, info.Privacy)
	assert.Equal(t, CaptureComplete, info.Status)
	assert.Nil(t, info.Location)
	require.NotNil(t, info.LatestRun)
	assert.Equal(t, RunFinished, info.LatestRun.Status)
	assert.Equal(t, 100, info.LatestRun.Progress)
	assert.True(t, info.Date.Equal(time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestListBuildsQueryAndPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capture" {
			t.Errorf("expected path /capture; got %s", r.URL.Path)
		}
		q := r.URL.Query()
		assert.Equal(t, "ASC", q.Get("order"))
		assert.Equal(t, "10", q.Get("skip"))
		assert.Equal(t, "5", q.Get("take"))
		assert.False(t, q.Has("search"), "empty query must omit the search param")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"captures": [
			{"title": "zebra", "type": "reconstruction", "privacy": "private", "date": "2023-01-02T03:04:05Z", "username": "ada", "status": "complete"},
			{"title": "aardvark", "type": "reconstruction", "privacy": "private", "date": "2023-01-03T03:04:05Z", "username": "ada", "status": "new"}
		]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	captures, err := client.List(context.Background(), "", 10, 5, false)
	require.NoError(t, err)
	require.Len(t, captures, 2)
	// Server order, no client-side resorting
	assert.Equal(t, "zebra", captures[0].Title)
	assert.Equal(t, "aardvark", captures[1].Title)
}

func TestListEncodesSearchQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "back yard", q.Get("search"))
		assert.Equal(t, "DESC", q.Get("order"))
		fmt.Fprint(w, `{"captures": []}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	captures, err := client.List(context.Background(), "back yard", 0, 50, true)
	require.NoError(t, err)
	assert.Empty(t, captures)
}

func TestHTTPErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "capture not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Status(context.Background(), "missing")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "capture not found")
}
