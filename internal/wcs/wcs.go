// Public domain.

// Package wcs provides local linear approximations of image world
// coordinate systems.
package wcs

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned for a CD matrix with zero determinant.
var ErrSingular = errors.New("singular CD matrix")

// Linear is a WCS with a constant CD matrix, the linear part of a
// tangent plane projection near its reference point.  The Jacobian is
// the same everywhere on the image.
type Linear struct {
	j *mat.Dense // arc seconds per pixel
}

// NewLinear builds a Linear WCS from FITS CD matrix elements in degrees
// per pixel.
func NewLinear(cd11, cd12, cd21, cd22 float64) (*Linear, error) {
	j := mat.NewDense(2, 2, []float64{
		cd11 * 3600, cd12 * 3600,
		cd21 * 3600, cd22 * 3600,
	})
	if d := mat.Det(j); d == 0 || math.IsNaN(d) {
		return nil, fmt.Errorf("%w: %g %g %g %g", ErrSingular, cd11, cd12, cd21, cd22)
	}
	return &Linear{j}, nil
}

// Scale returns a Linear WCS with square pixels of size arcsec and no
// rotation.
func Scale(arcsec float64) *Linear {
	return &Linear{mat.NewDense(2, 2, []float64{arcsec, 0, 0, arcsec})}
}

// Jacobian returns the pixel to sky linearization at (ra, dec), in arc
// seconds per pixel.
func (l *Linear) Jacobian(ra, dec float64) mat.Matrix {
	return l.j
}

// PixelArea returns the sky area of a pixel in square arc seconds.
func (l *Linear) PixelArea() float64 {
	return math.Abs(mat.Det(l.j))
}
