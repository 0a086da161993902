// Public domain.

package astro

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/unit"
)

// ErrDomain is returned for box parameters outside the domain of the
// small angle approximation, for example a box reaching a pole.
var ErrDomain = errors.New("sky box parameters out of domain")

// Corner is a sky position in degrees.
type Corner struct {
	RA, Dec float64
}

// SkyBox computes the four corners of a box of angular width and height
// centered at (raC, decC).  All arguments are in degrees.
//
// Corners are returned in the order (ra min, dec lo), (ra min, dec hi),
// (ra max, dec hi), (ra max, dec lo).
//
// The calculation is an approximation and is not self-consistent.  The
// declination limits assume constant ra, but the ra limits are computed
// separately at the lo and hi declinations.  It also assumes a small
// angular size.  Accuracy is a few percent for a 3 degree box at
// declination 80.
func SkyBox(raC, decC, width, height float64) (c [4]Corner, err error) {
	for _, x := range []float64{raC, decC, width, height} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return c, fmt.Errorf("%w: non-finite argument", ErrDomain)
		}
	}
	if width <= 0 || height <= 0 {
		return c, fmt.Errorf("%w: width %g, height %g", ErrDomain, width, height)
	}
	decLo := decC - height/2
	decHi := decC + height/2
	if math.Abs(decLo) >= 90 || math.Abs(decHi) >= 90 {
		return c, fmt.Errorf("%w: box reaches pole (dec %g to %g)",
			ErrDomain, decLo, decHi)
	}
	hwLo := width / 2 / unit.AngleFromDeg(decLo).Cos()
	hwHi := width / 2 / unit.AngleFromDeg(decHi).Cos()
	c[0] = Corner{raC - hwLo, decLo}
	c[1] = Corner{raC - hwHi, decHi}
	c[2] = Corner{raC + hwHi, decHi}
	c[3] = Corner{raC + hwLo, decLo}
	return c, nil
}

// SquareBox is SkyBox with height = width.
func SquareBox(raC, decC, width float64) ([4]Corner, error) {
	return SkyBox(raC, decC, width, width)
}

// Sep returns the angular separation between two sky positions.
func Sep(a, b Corner) unit.Angle {
	return angle.Sep(
		unit.AngleFromDeg(a.RA), unit.AngleFromDeg(a.Dec),
		unit.AngleFromDeg(b.RA), unit.AngleFromDeg(b.Dec))
}

// Diagonal returns the separation between opposite corners 0 and 2 of
// a box returned by SkyBox.
func Diagonal(c [4]Corner) unit.Angle {
	return Sep(c[0], c[2])
}
