package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lyzr/haystack/common/models"
)

// ErrNotFound is returned when a server answers 404
var ErrNotFound = errors.New("not found")

// CacheServerClient talks to the photo cache server
type CacheServerClient struct {
	baseURL string
	http    *HTTPClient
	logger  Logger
}

// NewCacheServerClient creates a client for the cache server at baseURL
func NewCacheServerClient(baseURL string, logger Logger) *CacheServerClient {
	return &CacheServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewHTTPClient(&http.Client{Timeout: 30 * time.Second}, logger),
		logger:  logger,
	}
}

// CacheIt pushes data for identity into the cache. With empty data the
// server loads the photo from its store partition instead.
func (c *CacheServerClient) CacheIt(ctx context.Context, machineID int, logicalVolume string, identity models.PhotoIdentity, data []byte) error {
	resp, err := c.http.DoRequest(ctx, http.MethodPost, cacheItURL(c.baseURL, machineID, logicalVolume, identity), "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to notify cache server: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("cache server cacheit: %w", err)
	}

	c.logger.Info("cache server notified", "photo_id", identity.PhotoID, "machine_id", machineID, "bytes", len(data))
	return nil
}

// Fetch reads a photo through the cache server
func (c *CacheServerClient) Fetch(ctx context.Context, machineID int, logicalVolume string, identity models.PhotoIdentity) ([]byte, error) {
	u := fmt.Sprintf("%s/%d/%s/%s?cookie=%s",
		c.baseURL,
		machineID,
		url.PathEscape(logicalVolume),
		url.PathEscape(identity.PhotoID),
		url.QueryEscape(identity.Cookie),
	)

	resp, err := c.http.DoRequest(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch photo: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch photo %s: %w", identity.PhotoID, err)
	}
	return io.ReadAll(resp.Body)
}

// DirectoryClient talks to the directory cache server
type DirectoryClient struct {
	baseURL string
	http    *HTTPClient
	logger  Logger
}

// NewDirectoryClient creates a client for the directory server at baseURL
func NewDirectoryClient(baseURL string, logger Logger) *DirectoryClient {
	return &DirectoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewHTTPClient(&http.Client{Timeout: 30 * time.Second}, logger),
		logger:  logger,
	}
}

// Register records where identity is served from and returns the entry
func (c *DirectoryClient) Register(ctx context.Context, machineID int, logicalVolume string, identity models.PhotoIdentity) (models.DirectoryEntry, error) {
	resp, err := c.http.DoRequest(ctx, http.MethodPost, cacheItURL(c.baseURL, machineID, logicalVolume, identity), "", nil)
	if err != nil {
		return models.DirectoryEntry{}, fmt.Errorf("failed to notify directory: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return models.DirectoryEntry{}, fmt.Errorf("directory cacheit: %w", err)
	}

	var entry models.DirectoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return models.DirectoryEntry{}, fmt.Errorf("failed to decode directory response: %w", err)
	}

	c.logger.Info("directory notified", "photo_id", identity.PhotoID, "url", entry.URL)
	return entry, nil
}

// Lookup resolves a photo id to its location URL
func (c *DirectoryClient) Lookup(ctx context.Context, photoID string) (string, error) {
	resp, err := c.http.DoRequest(ctx, http.MethodGet, c.baseURL+"/photos/"+url.PathEscape(photoID), "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to query directory: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("directory lookup %s: %w", photoID, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read directory response: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

func cacheItURL(base string, machineID int, logicalVolume string, identity models.PhotoIdentity) string {
	return fmt.Sprintf("%s/cacheit/%d/%s/%s/%s",
		base,
		machineID,
		url.PathEscape(logicalVolume),
		url.PathEscape(identity.PhotoID),
		url.PathEscape(identity.Cookie),
	)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("status=%d, body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
}
