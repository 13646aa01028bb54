package transform

import (
	"math"

	"georef-tiler/internal/geom"
)

// helmertTransform is a 4-parameter similarity transform: translation,
// uniform scale and rotation. Fitted by least squares over all pairs,
// exact when exactly 2 pairs are given.
type helmertTransform struct {
	tx, ty float64
	scale  float64
	theta  float64
}

func (h *helmertTransform) Kind() Kind { return Helmert }

func (h *helmertTransform) forwardMatrix() geom.Affine {
	c, s := h.scale*math.Cos(h.theta), h.scale*math.Sin(h.theta)
	return geom.Affine{c, -s, h.tx, s, c, h.ty}
}

func (h *helmertTransform) Forward(p geom.Point) (geom.Point, error) {
	return h.forwardMatrix().Apply(p), nil
}

func (h *helmertTransform) Backward(p geom.Point) (geom.Point, error) {
	m := h.forwardMatrix()
	if !m.Invertible() {
		return geom.Point{}, &DomainError{Point: p}
	}
	return m.Inverse().Apply(p), nil
}

func (h *helmertTransform) Jacobian(geom.Point) [2][2]float64 {
	return h.forwardMatrix().Jacobian()
}

// fitHelmert fits a, b (a = s*cos(theta), b = s*sin(theta)) and tx, ty by
// least squares to:
//
//	X = a*x - b*y + tx
//	Y = b*x + a*y + ty
func fitHelmert(pairs []Pair) (Transformer, error) {
	rows := make([][]float64, 0, 2*len(pairs))
	rhs := make([]float64, 0, 2*len(pairs))
	for _, p := range pairs {
		x, y := p.Resource[0], p.Resource[1]
		rows = append(rows, []float64{x, -y, 1, 0})
		rhs = append(rhs, p.ProjectedGeo[0])
		rows = append(rows, []float64{y, x, 0, 1})
		rhs = append(rhs, p.ProjectedGeo[1])
	}
	sol, err := leastSquares(rows, rhs)
	if err != nil {
		return nil, err
	}
	a, b, tx, ty := sol[0], sol[1], sol[2], sol[3]
	return &helmertTransform{
		tx:    tx,
		ty:    ty,
		scale: math.Hypot(a, b),
		theta: math.Atan2(b, a),
	}, nil
}
