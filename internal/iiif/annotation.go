// Package iiif holds the edge-facing types and interfaces the core
// treats as external collaborators (spec §1, §6): the Georeference
// Annotation shape, the image-info loader, the tile fetcher and the image
// decoder, plus IIIF tile URL construction. The projection interface lives
// in package proj.
package iiif

import (
	"encoding/json"
	"fmt"

	"georef-tiler/internal/transform"
)

// ValidationError reports a malformed annotation. Per spec §7, validation
// failures never enter the core — Decode returns this error before a
// warpedmap.WarpedMap is ever constructed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("iiif: invalid annotation: %s", e.Reason)
}

// Resource describes the IIIF image service backing an annotation.
type Resource struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// GCP is the wire shape of one ground control point: resource pixel
// coordinate paired with a geographic (lon, lat) coordinate.
type GCP struct {
	Resource [2]float64 `json:"resource"`
	Geo      [2]float64 `json:"geo"`
}

// TransformationSpec names the requested transformation kind and any
// kind-specific options.
type TransformationSpec struct {
	Type    string         `json:"type"`
	Options map[string]any `json:"options,omitempty"`
}

// Annotation is the Go shape of the Georeference Annotation JSON document
// (spec §6). Field names mirror the wire format; schema validation
// itself stays out of the core per spec's Non-goals — Decode only checks
// the structural minimum the core requires to proceed.
type Annotation struct {
	Type           string               `json:"type"`
	MapID          string               `json:"id,omitempty"`
	Resource       Resource             `json:"resource"`
	GCPs           []GCP                `json:"gcps"`
	ResourceMask   [][2]float64         `json:"resourceMask"`
	Transformation *TransformationSpec  `json:"transformation,omitempty"`
}

// DefaultTransformationKind is used when an annotation omits
// "transformation".
const DefaultTransformationKind = transform.Polynomial1

// Kind returns the requested transformation kind, or the default.
func (a *Annotation) Kind() transform.Kind {
	if a.Transformation == nil || a.Transformation.Type == "" {
		return DefaultTransformationKind
	}
	return transform.Kind(a.Transformation.Type)
}

// Decode parses and structurally validates raw annotation JSON. It
// checks only what the core needs to proceed (spec §1 Non-goals: full
// JSON-schema validation is an external collaborator's job).
func Decode(data []byte) (*Annotation, error) {
	var a Annotation
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if a.Type != "" && a.Type != "GeoreferencedMap" {
		return nil, &ValidationError{Reason: fmt.Sprintf("unexpected type %q", a.Type)}
	}
	if a.Resource.ID == "" {
		return nil, &ValidationError{Reason: "resource.id is required"}
	}
	if len(a.ResourceMask) < 3 {
		return nil, &ValidationError{Reason: "resourceMask must have at least three vertices"}
	}
	kind := a.Kind()
	if len(a.GCPs) < transform.MinGCPs(kind) {
		return nil, &ValidationError{Reason: fmt.Sprintf(
			"transformation %q requires at least %d gcps, got %d", kind, transform.MinGCPs(kind), len(a.GCPs))}
	}
	return &a, nil
}
