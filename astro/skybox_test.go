// Public domain.

package astro_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/hscana/astro"
)

var boxCases = []struct {
	ra, dec, w, h float64
}{
	{180, 30, 1, 1},
	{0, 0, 3, 3},
	{150, -45, 2, .5},
	{10, 80, 3, 3},
	{359.5, 60, .1, .2},
}

func TestSkyBox(t *testing.T) {
	for _, c := range boxCases {
		b, err := astro.SkyBox(c.ra, c.dec, c.w, c.h)
		require.NoError(t, err)
		require.Len(t, b, 4)
		lo, hi := b[0].Dec, b[1].Dec
		assert.Less(t, lo, c.dec)
		assert.Less(t, c.dec, hi)
		assert.Equal(t, lo, b[3].Dec)
		assert.Equal(t, hi, b[2].Dec)
		assert.InDelta(t, c.h, hi-lo, 1e-12)
		// ra half widths are evaluated at each declination bound
		coLo := math.Cos(lo * math.Pi / 180)
		coHi := math.Cos(hi * math.Pi / 180)
		assert.InDelta(t, c.ra-c.w/2/coLo, b[0].RA, 1e-9)
		assert.InDelta(t, c.ra-c.w/2/coHi, b[1].RA, 1e-9)
		assert.InDelta(t, c.ra+c.w/2/coHi, b[2].RA, 1e-9)
		assert.InDelta(t, c.ra+c.w/2/coLo, b[3].RA, 1e-9)
	}
}

func TestSkyBoxDomain(t *testing.T) {
	bad := []struct {
		name          string
		ra, dec, w, h float64
	}{
		{"zero height", 10, 10, 1, 0},
		{"zero width", 10, 10, 0, 1},
		{"negative", 10, 10, -1, 1},
		{"north pole", 0, 89.5, 1, 1},
		{"south pole", 0, -89.9, 1, 1},
		{"NaN", math.NaN(), 0, 1, 1},
		{"Inf", 0, 0, math.Inf(1), 1},
	}
	for _, c := range bad {
		t.Run(c.name, func(t *testing.T) {
			_, err := astro.SkyBox(c.ra, c.dec, c.w, c.h)
			assert.ErrorIs(t, err, astro.ErrDomain)
		})
	}
}

func TestDiagonal(t *testing.T) {
	b, err := astro.SquareBox(30, 0, 1.5)
	require.NoError(t, err)
	// near the equator the diagonal is close to the flat value
	assert.InDelta(t, 1.5*math.Sqrt2*60, astro.Diagonal(b).Min(), .5)
}

func ExampleSquareBox() {
	b, err := astro.SquareBox(180, 30, 1)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, c := range b {
		fmt.Printf("%.4f %.4f\n", c.RA, c.Dec)
	}
	// Output:
	// 179.4255 29.5000
	// 179.4197 30.5000
	// 180.5803 30.5000
	// 180.5745 29.5000
}
