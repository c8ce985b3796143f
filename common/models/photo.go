package models

import (
	"fmt"
	"strings"
)

// Cache key namespaces. Photo bytes and directory URLs may share one cache
// cluster, so their keys never overlap.
const (
	photoKeyPrefix     = "photo:"
	directoryKeyPrefix = "dir:"
)

// PhotoIdentity is the pair that names one servable photo variant.
// The cookie proves the requester may view it; photo_id alone is not an identity.
type PhotoIdentity struct {
	PhotoID string `json:"photo_id"`
	Cookie  string `json:"cookie"`
}

// NewPhotoIdentity builds an identity, stripping a file extension from the
// photo id ("42.jpg" -> "42") the way request paths carry it.
func NewPhotoIdentity(photoID, cookie string) PhotoIdentity {
	return PhotoIdentity{
		PhotoID: StripExtension(photoID),
		Cookie:  cookie,
	}
}

// CacheKey derives the photo cache key from photo_id ++ cookie.
// The photo_id length is encoded so ("ab","c") and ("a","bc") stay distinct.
func (p PhotoIdentity) CacheKey() string {
	return fmt.Sprintf("%s%d:%s%s", photoKeyPrefix, len(p.PhotoID), p.PhotoID, p.Cookie)
}

// String implements fmt.Stringer
func (p PhotoIdentity) String() string {
	return p.PhotoID + "?cookie=" + p.Cookie
}

// DirectoryKey derives the directory cache key from photo_id alone
func DirectoryKey(photoID string) string {
	return directoryKeyPrefix + StripExtension(photoID)
}

// StripExtension drops everything from the first dot on
func StripExtension(photoID string) string {
	if i := strings.IndexByte(photoID, '.'); i >= 0 {
		return photoID[:i]
	}
	return photoID
}
