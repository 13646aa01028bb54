package transform

import (
	"math"

	"georef-tiler/internal/geom"
)

// thinPlateSpline fits an exact interpolant through every GCP with
// minimal bending energy elsewhere, the standard formulation using the
// radial basis function U(r) = r^2 * log(r^2). Two independent splines
// (one per output axis) are fit for the forward map, and two more for
// the backward map, matching the independent-forward/backward treatment
// used for the polynomial kinds.
type thinPlateSpline struct {
	fwd *tpsAxis2D
	bwd *tpsAxis2D
}

// tpsAxis2D holds the fitted coefficients for both output components of
// one direction (resource->projectedGeo or the reverse).
type tpsAxis2D struct {
	controlPoints []geom.Point
	wX, wY        []float64       // per-control-point weights
	aX, aY        [3]float64      // affine part: a0 + a1*x + a2*y
}

func fitTPSAxis(src, dst []geom.Point) *tpsAxis2D {
	n := len(src)
	// System size n+3: n RBF weights + 3 affine coefficients, with the
	// standard TPS constraints (sum w = 0, sum w*x = 0, sum w*y = 0).
	size := n + 3
	buildAndSolve := func(target func(p geom.Point) float64, axis int) []float64 {
		a := make([][]float64, size)
		for i := range a {
			a[i] = make([]float64, size)
		}
		b := make([]float64, size)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				a[i][j] = tpsKernel(src[i], src[j])
			}
			a[i][n] = 1
			a[i][n+1] = src[i][0]
			a[i][n+2] = src[i][1]
			a[n][i] = 1
			a[n+1][i] = src[i][0]
			a[n+2][i] = src[i][1]
			b[i] = target(dst[i])
		}
		sol, err := solveLinearSystem(a, b)
		if err != nil {
			// Degenerate GCP configuration: zero weights, identity
			// affine part leaves Forward/Backward as a no-op rather
			// than panicking.
			sol = make([]float64, size)
			sol[n+1+axis] = 1
		}
		return sol
	}

	solX := buildAndSolve(func(p geom.Point) float64 { return p[0] }, 0)
	solY := buildAndSolve(func(p geom.Point) float64 { return p[1] }, 1)

	axis := &tpsAxis2D{controlPoints: src}
	axis.wX = solX[:n]
	axis.aX = [3]float64{solX[n], solX[n+1], solX[n+2]}
	axis.wY = solY[:n]
	axis.aY = [3]float64{solY[n], solY[n+1], solY[n+2]}
	return axis
}

func tpsKernel(a, b geom.Point) float64 {
	r2 := (a[0]-b[0])*(a[0]-b[0]) + (a[1]-b[1])*(a[1]-b[1])
	if r2 == 0 {
		return 0
	}
	return r2 * math.Log(r2)
}

func (a *tpsAxis2D) eval(p geom.Point) geom.Point {
	var sumX, sumY float64
	for i, cp := range a.controlPoints {
		k := tpsKernel(p, cp)
		sumX += a.wX[i] * k
		sumY += a.wY[i] * k
	}
	x := a.aX[0] + a.aX[1]*p[0] + a.aX[2]*p[1] + sumX
	y := a.aY[0] + a.aY[1]*p[0] + a.aY[2]*p[1] + sumY
	return geom.Point{x, y}
}

func fitThinPlateSpline(pairs []Pair) (Transformer, error) {
	src := make([]geom.Point, len(pairs))
	dst := make([]geom.Point, len(pairs))
	for i, p := range pairs {
		src[i] = p.Resource
		dst[i] = p.ProjectedGeo
	}
	fwd := fitTPSAxis(src, dst)
	bwd := fitTPSAxis(dst, src)
	return &thinPlateSpline{fwd: fwd, bwd: bwd}, nil
}

func (t *thinPlateSpline) Kind() Kind { return ThinPlateSpline }

func (t *thinPlateSpline) Forward(p geom.Point) (geom.Point, error) {
	return t.fwd.eval(p), nil
}

func (t *thinPlateSpline) Backward(p geom.Point) (geom.Point, error) {
	return t.bwd.eval(p), nil
}

// Jacobian is estimated by central finite differences; spec §8 property 1
// allows a looser, bounded tolerance for thin-plate-spline round trips.
func (t *thinPlateSpline) Jacobian(p geom.Point) [2][2]float64 {
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
