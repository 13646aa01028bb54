// Package transform fits and evaluates the bidirectional map between
// resource (pixel) and projectedGeo coordinates for a WarpedMap's ground
// control points. Spec §3 TransformationKind, §4.1 step 2.
package transform

import (
	"errors"
	"fmt"

	"georef-tiler/internal/geom"
)

// Kind identifies a transformation family.
type Kind string

const (
	Helmert           Kind = "helmert"
	Polynomial1       Kind = "polynomial-1"
	Polynomial2       Kind = "polynomial-2"
	Polynomial3       Kind = "polynomial-3"
	ThinPlateSpline   Kind = "thin-plate-spline"
	Projective        Kind = "projective"
)

// MinGCPs returns the minimum number of ground control points required to
// fit kind (spec §3 GroundControlPoint invariant).
func MinGCPs(k Kind) int {
	switch k {
	case Helmert:
		return 2
	case Polynomial1:
		return 3
	case Projective:
		return 4
	case Polynomial2:
		return 6
	case Polynomial3:
		return 10
	case ThinPlateSpline:
		return 3
	default:
		return 3
	}
}

// ErrUnknownKind is returned by Fit for an unrecognized Kind.
var ErrUnknownKind = errors.New("transform: unknown transformation kind")

// ErrNotEnoughGCPs is returned by Fit when the point count is below
// MinGCPs(kind).
var ErrNotEnoughGCPs = errors.New("transform: not enough ground control points")

// DomainError reports that a point could not be transformed because the
// fitted function does not converge there (spec §7 TransformDomainError).
type DomainError struct {
	Point geom.Point
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("transform: point %v outside the transformable domain", e.Point)
}

// Pair is one ground-control-point correspondence in transform space:
// resource pixel coordinate paired with projectedGeo coordinate.
type Pair struct {
	Resource     geom.Point
	ProjectedGeo geom.Point
}

// Transformer maps resource coordinates to projectedGeo coordinates and
// back. All implementations are safe for concurrent read-only use.
type Transformer interface {
	Kind() Kind
	// Forward maps a resource point to projectedGeo.
	Forward(p geom.Point) (geom.Point, error)
	// Backward maps a projectedGeo point to resource.
	Backward(p geom.Point) (geom.Point, error)
	// Jacobian returns the local Jacobian of Forward at p, used for
	// per-vertex distortion (spec §4.1 step 5) and zoom-level sampling
	// (spec §4.4 step 3).
	Jacobian(p geom.Point) [2][2]float64
}

// Fit builds a Transformer of the requested kind from pairs. It returns
// ErrNotEnoughGCPs if len(pairs) < MinGCPs(kind).
func Fit(kind Kind, pairs []Pair) (Transformer, error) {
	if len(pairs) < MinGCPs(kind) {
		return nil, fmt.Errorf("%w: kind=%s need=%d got=%d", ErrNotEnoughGCPs, kind, MinGCPs(kind), len(pairs))
	}
	switch kind {
	case Helmert:
		return fitHelmert(pairs)
	case Polynomial1:
		return fitPolynomial(pairs, 1)
	case Polynomial2:
		return fitPolynomial(pairs, 2)
	case Polynomial3:
		return fitPolynomial(pairs, 3)
	case Projective:
		return fitProjective(pairs)
	case ThinPlateSpline:
		return fitThinPlateSpline(pairs)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}
