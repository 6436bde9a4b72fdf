// Package playback turns search hits into playback URLs that start at the
// matched moment. Cloudinary-style delivery URLs accept a start-offset
// transformation segment injected after the upload marker; everything here is
// pure string work with no network dependency.
package playback

import (
	"fmt"
	"math"
	"strings"
)

// uploadMarker splits a delivery URL into its base and asset halves. The
// transformation segment goes between them.
const uploadMarker = "/upload/"

// minSeekSeconds is the offset below which seeking is pointless. Hits inside
// the first half second play from the start with the URL untouched.
const minSeekSeconds = 0.5

// Locate returns a playback URL that starts at the given offset. Offsets
// under half a second, empty URLs, and URLs without an upload marker come
// back unchanged; the result is always a playable URL.
func Locate(playbackURL string, timestampSeconds float64) string {
	if playbackURL == "" || timestampSeconds < minSeekSeconds {
		return playbackURL
	}
	base, asset, ok := splitUpload(playbackURL)
	if !ok {
		return playbackURL
	}
	return fmt.Sprintf("%s%sso_%d/%s", base, uploadMarker, int(math.Floor(timestampSeconds)), asset)
}

// ThumbnailURL returns a still-frame URL at the given offset, sized for a
// result grid. URLs without an upload marker come back unchanged.
func ThumbnailURL(playbackURL string, timestampSeconds float64) string {
	if playbackURL == "" {
		return playbackURL
	}
	base, asset, ok := splitUpload(playbackURL)
	if !ok {
		return playbackURL
	}
	offset := 0
	if timestampSeconds >= minSeekSeconds {
		offset = int(math.Floor(timestampSeconds))
	}
	asset = strings.TrimSuffix(asset, ".mp4") + ".jpg"
	return fmt.Sprintf("%s%sso_%d/w_400,h_300,c_fill/%s", base, uploadMarker, offset, asset)
}

// splitUpload splits a delivery URL at the first upload marker.
func splitUpload(url string) (base, asset string, ok bool) {
	idx := strings.Index(url, uploadMarker)
	if idx < 0 {
		return "", "", false
	}
	return url[:idx], url[idx+len(uploadMarker):], true
}
