package proj

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMercatorRoundTrip(t *testing.T) {
	m := Mercator{}
	for _, ll := range [][2]float64{{0, 0}, {2.3522, 48.8566}, {-122.4194, 37.7749}} {
		p := m.Project(ll)
		back := m.Unproject(p)
		assert.InDelta(t, ll[0], back[0], 1e-6)
		assert.InDelta(t, ll[1], back[1], 1e-6)
	}
}

func TestMercatorOriginIsZero(t *testing.T) {
	m := Mercator{}
	p := m.Project([2]float64{0, 0})
	assert.InDelta(t, 0, p[0], 1e-9)
	assert.InDelta(t, 0, p[1], 1e-9)
}
