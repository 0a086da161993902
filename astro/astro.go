// Public domain.

// Package astro, stuff generally useful in astronomy.
//
// Functions here work on scalars.  Vector forms over whole catalogs live
// with the catalog code.  None of them panic or return errors on
// degenerate input; undefined results come back as NaN.
package astro

import (
	"math"

	"github.com/soniakeys/unit"
)

// ArcsecPerRad is the number of arc seconds in a radian, as used in the
// small angle formula.
const ArcsecPerRad = 206265.

// HSCPixelScale is the HSC coadd pixel scale in arc seconds per pixel.
const HSCPixelScale = .168

// MomentRadius computes the determinant radius of a second moment matrix,
// (Ixx*Iyy - Ixy^2)^(1/4), in the units of the moments' square root.
//
// The result is NaN when the determinant is not positive.
func MomentRadius(ixx, iyy, ixy float64) float64 {
	det := ixx*iyy - ixy*ixy
	if !(det > 0) {
		return math.NaN()
	}
	return math.Sqrt(math.Sqrt(det))
}

// FluxMag computes apparent magnitude from a flux and the flux of a zero
// magnitude source in the same units.
//
// Non-positive and NaN flux give NaN.
func FluxMag(flux, fluxMag0 float64) float64 {
	if !(flux > 0) || !(fluxMag0 > 0) {
		return math.NaN()
	}
	return -2.5 * math.Log10(flux/fluxMag0)
}

// AbsMag computes absolute magnitude from apparent magnitude and
// luminosity distance dL in Mpc.
func AbsMag(mag, dL float64) float64 {
	return mag - 5*math.Log10(dL*1e6) + 5
}

// PhysSize converts an angular size in arc seconds to a physical size in
// kpc at angular diameter distance dA in Mpc.
func PhysSize(angsize, dA float64) float64 {
	return angsize * dA * (1 / ArcsecPerRad) * 1e3
}

// SurfaceBrightness computes mean surface brightness in mag/arcsec^2 for
// a source of magnitude mag and angular size (radius) angsize in arc
// seconds.
func SurfaceBrightness(mag, angsize float64) float64 {
	return mag + 2.5*math.Log10(math.Pi*angsize*angsize)
}

// GroupBoxWidth returns the angle subtended by a length widthMpc at
// angular diameter distance dA, also in Mpc.
func GroupBoxWidth(widthMpc, dA float64) unit.Angle {
	return unit.Angle(widthMpc / dA)
}
