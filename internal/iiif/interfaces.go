package iiif

import (
	"context"
	"fmt"
)

// ImageInfoError reports that a resource's IIIF image-info document could
// not be loaded or was malformed (spec §7).
type ImageInfoError struct {
	ResourceID string
	Err        error
}

func (e *ImageInfoError) Error() string {
	return fmt.Sprintf("iiif: image info for %q: %v", e.ResourceID, e.Err)
}
func (e *ImageInfoError) Unwrap() error { return e.Err }

// TileSizeInfo is one entry of an image-info's "tiles" array.
type TileSizeInfo struct {
	Width        int
	Height       int // 0 means "same as Width" (square tiles)
	ScaleFactors []int
}

// ImageInfo is the parsed result of loading a IIIF resource's
// info.json-equivalent (spec §6 "Image-info loader").
type ImageInfo struct {
	Width     int
	Height    int
	Tiles     []TileSizeInfo
	MaxWidth  int
	MaxHeight int
	MaxArea   int
}

// ImageInfoLoader fetches and parses a resource's image-info document.
// Parsing IIIF metadata itself is out of the core's scope (spec §1); this
// interface is the seam the core calls through.
type ImageInfoLoader interface {
	LoadImageInfo(ctx context.Context, resourceID string) (*ImageInfo, error)
}

// TileFetcher fetches the raw bytes of a tile at url. Implementations
// must return promptly (or an error) when ctx is canceled (spec §5
// cancellation).
type TileFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DecodedImage is the result of decoding fetched tile bytes; Pixels is
// tightly packed RGBA, row-major, top-to-bottom.
type DecodedImage struct {
	Width  int
	Height int
	Pixels []byte
}

// ImageDecoder turns fetched bytes into pixels. PNG/JPEG codecs are an
// external collaborator per spec §1; the core only calls this interface.
type ImageDecoder interface {
	Decode(data []byte) (*DecodedImage, error)
}
