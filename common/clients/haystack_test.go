package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/models"
)

func TestCacheServerClient_CacheIt(t *testing.T) {
	var gotPath, gotRequestID string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewCacheServerClient(srv.URL+"/", logger.Discard())
	ctx := WithRequestID(context.Background(), "req-1")

	err := c.CacheIt(ctx, 1, "7", models.NewPhotoIdentity("42.jpg", "abc"), []byte("bytes"))

	require.NoError(t, err)
	assert.Equal(t, "/cacheit/1/7/42/abc", gotPath)
	assert.Equal(t, "req-1", gotRequestID)
	assert.Equal(t, []byte("bytes"), gotBody)
}

func TestCacheServerClient_FetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/1/42", r.URL.Path)
		assert.Equal(t, "abc", r.URL.Query().Get("cookie"))
		http.Error(w, "photo not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewCacheServerClient(srv.URL, logger.Discard())

	_, err := c.Fetch(context.Background(), 0, "1", models.NewPhotoIdentity("42", "abc"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDirectoryClient_RegisterAndLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/cacheit/2/3/42/abc", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"photo_id":"42","url":"http://lb/2/3/42.jpg?cookie=abc"}`)
		case http.MethodGet:
			assert.Equal(t, "/photos/42", r.URL.Path)
			io.WriteString(w, "http://lb/2/3/42.jpg?cookie=abc")
		}
	}))
	defer srv.Close()

	c := NewDirectoryClient(srv.URL, logger.Discard())

	entry, err := c.Register(context.Background(), 2, "3", models.NewPhotoIdentity("42", "abc"))
	require.NoError(t, err)
	assert.Equal(t, "http://lb/2/3/42.jpg?cookie=abc", entry.URL)

	location, err := c.Lookup(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, entry.URL, location)
}
