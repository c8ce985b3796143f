package resolution

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/haystack/common/cache"
	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/metrics"
	"github.com/lyzr/haystack/common/models"
)

// Directory maps photo ids to the URL they are served from. It has no
// fallback tier: entries exist only once the write path has registered them.
type Directory struct {
	cache cache.Cache
	host  string
	ttl   time.Duration
	log   *logger.Logger
}

// NewDirectory creates a directory over c. host is the load balancer that
// fronts the photo cache servers and is used to build location URLs.
func NewDirectory(c cache.Cache, host string, ttl time.Duration, log *logger.Logger) *Directory {
	return &Directory{
		cache: c,
		host:  host,
		ttl:   ttl,
		log:   log,
	}
}

// Lookup returns the entry for photoID. A miss is (entry{}, false, nil).
// There is nothing to fall back to, so a cache failure is returned rather
// than reported as a miss.
func (d *Directory) Lookup(ctx context.Context, photoID string) (models.DirectoryEntry, bool, error) {
	photoID = models.StripExtension(photoID)

	data, hit, err := d.cache.Get(ctx, models.DirectoryKey(photoID))
	if err != nil {
		metrics.CacheRequests.WithLabelValues(metrics.CacheDirectory, metrics.ResultError).Inc()
		return models.DirectoryEntry{}, false, fmt.Errorf("directory lookup %s: %w", photoID, err)
	}
	if !hit {
		metrics.CacheRequests.WithLabelValues(metrics.CacheDirectory, metrics.ResultMiss).Inc()
		return models.DirectoryEntry{}, false, nil
	}

	metrics.CacheRequests.WithLabelValues(metrics.CacheDirectory, metrics.ResultHit).Inc()
	return models.DirectoryEntry{PhotoID: photoID, URL: string(data)}, true, nil
}

// Populate stores entry, replacing any previous location
func (d *Directory) Populate(ctx context.Context, entry models.DirectoryEntry) error {
	photoID := models.StripExtension(entry.PhotoID)
	if err := d.cache.Set(ctx, models.DirectoryKey(photoID), []byte(entry.URL), d.ttl); err != nil {
		return fmt.Errorf("failed to populate directory entry %s: %w", photoID, err)
	}
	d.log.WithContext(ctx).WithPhotoID(photoID).Debug("directory entry populated", "url", entry.URL)
	return nil
}

// Register builds the location URL of a committed photo and populates it
func (d *Directory) Register(ctx context.Context, machineID int, logicalVolume string, identity models.PhotoIdentity) (models.DirectoryEntry, error) {
	entry := models.DirectoryEntry{
		PhotoID: identity.PhotoID,
		URL:     models.LocationURL(d.host, machineID, logicalVolume, identity.PhotoID, identity.Cookie),
	}
	if err := d.Populate(ctx, entry); err != nil {
		return models.DirectoryEntry{}, err
	}
	return entry, nil
}
