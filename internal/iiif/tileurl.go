package iiif

import "fmt"

// APIVersion selects how a tile URL's rotation/quality/format segment is
// interpreted; both v2 and v3 use the same region/size layout the spec
// requires (spec §6).
type APIVersion int

const (
	APIv2 APIVersion = 2
	APIv3 APIVersion = 3
)

// TileURL builds a IIIF Image API level >= 1 tile request URL for the
// region (x, y, w, h) in native resource pixels, following spec §6:
//
//	{baseId}/{region}/{size}/0/default.jpg
//
// where size is width-based ("w,"). Both API v2 and v3 use this same
// layout; the version only affects which profile a caller would have
// negotiated to discover it, so TileURL takes it for documentation
// purposes and future format negotiation, not to change the path shape.
func TileURL(baseID string, x, y, w, h int, version APIVersion) string {
	return fmt.Sprintf("%s/%d,%d,%d,%d/%d,/0/default.jpg", baseID, x, y, w, h, w)
}
