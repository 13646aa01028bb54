package transform

import "georef-tiler/internal/geom"

// polynomialTransform fits independent forward and backward polynomials
// of the given degree by least squares, so Forward and Backward each fit
// the GCPs (exactly when the GCP count equals the number of polynomial
// terms) rather than being exact inverses of one another — the behavior the
// spec's round-trip property test (§8 property 1) checks against for
// affine/polynomial kinds specifically.
type polynomialTransform struct {
	degree           int
	kind             Kind
	fwdX, fwdY       []float64 // coefficients over terms(resource)
	bwdX, bwdY       []float64 // coefficients over terms(projectedGeo)
}

func kindForDegree(d int) Kind {
	switch d {
	case 1:
		return Polynomial1
	case 2:
		return Polynomial2
	default:
		return Polynomial3
	}
}

// polyTerms returns the monomial basis x^i*y^j for i+j <= degree, in a
// fixed, deterministic order.
func polyTerms(x, y float64, degree int) []float64 {
	var terms []float64
	for total := 0; total <= degree; total++ {
		for i := 0; i <= total; i++ {
			j := total - i
			terms = append(terms, ipow(x, i)*ipow(y, j))
		}
	}
	return terms
}

func ipow(base float64, exp int) float64 {
	r := 1.0
	for k := 0; k < exp; k++ {
		r *= base
	}
	return r
}

func fitPolynomial(pairs []Pair, degree int) (Transformer, error) {
	rows := make([][]float64, len(pairs))
	xs := make([]float64, len(pairs))
	ys := make([]float64, len(pairs))
	for i, p := range pairs {
		rows[i] = polyTerms(p.Resource[0], p.Resource[1], degree)
		xs[i] = p.ProjectedGeo[0]
		ys[i] = p.ProjectedGeo[1]
	}
	fwdX, err := leastSquares(rows, xs)
	if err != nil {
		return nil, err
	}
	fwdY, err := leastSquares(rows, ys)
	if err != nil {
		return nil, err
	}

	rowsInv := make([][]float64, len(pairs))
	rxs := make([]float64, len(pairs))
	rys := make([]float64, len(pairs))
	for i, p := range pairs {
		rowsInv[i] = polyTerms(p.ProjectedGeo[0], p.ProjectedGeo[1], degree)
		rxs[i] = p.Resource[0]
		rys[i] = p.Resource[1]
	}
	bwdX, err := leastSquares(rowsInv, rxs)
	if err != nil {
		return nil, err
	}
	bwdY, err := leastSquares(rowsInv, rys)
	if err != nil {
		return nil, err
	}

	return &polynomialTransform{
		degree: degree,
		kind:   kindForDegree(degree),
		fwdX:   fwdX, fwdY: fwdY,
		bwdX: bwdX, bwdY: bwdY,
	}, nil
}

func evalPoly(coeffs []float64, x, y float64, degree int) float64 {
	terms := polyTerms(x, y, degree)
	var sum float64
	for i, c := range coeffs {
		sum += c * terms[i]
	}
	return sum
}

func (t *polynomialTransform) Kind() Kind { return t.kind }

func (t *polynomialTransform) Forward(p geom.Point) (geom.Point, error) {
	return geom.Point{
		evalPoly(t.fwdX, p[0], p[1], t.degree),
		evalPoly(t.fwdY, p[0], p[1], t.degree),
	}, nil
}

func (t *polynomialTransform) Backward(p geom.Point) (geom.Point, error) {
	return geom.Point{
		evalPoly(t.bwdX, p[0], p[1], t.degree),
		evalPoly(t.bwdY, p[0], p[1], t.degree),
	}, nil
}

// Jacobian estimates the local derivative of Forward at p by central
// finite differences — exact for degree 1, a good local approximation
// for degree >= 2 used only for distortion display and zoom-level pixel
// sizing (spec §4.1 step 5, §4.4 step 3).
func (t *polynomialTransform) Jacobian(p geom.Point) [2][2]float64 {
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
