package models

import (
	"fmt"
	"net/url"
)

// DirectoryEntry maps a logical photo to the location it is served from
type DirectoryEntry struct {
	PhotoID string `json:"photo_id"`
	URL     string `json:"url"`
}

// LocationURL builds the fully qualified fetch URL for a photo:
// http://{host}/{machine_id}/{logical_volume}/{photo_id}.jpg?cookie={cookie}
func LocationURL(host string, machineID int, logicalVolume, photoID, cookie string) string {
	return fmt.Sprintf("http://%s/%d/%s/%s.jpg?cookie=%s",
		host,
		machineID,
		url.PathEscape(logicalVolume),
		url.PathEscape(StripExtension(photoID)),
		url.QueryEscape(cookie),
	)
}
