// Public domain.

package hscat

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/soniakeys/hscana/astro"
)

// Calibration converts fluxes to magnitudes.  It must return NaN rather
// than fail for non-positive or NaN flux.
type Calibration interface {
	Magnitude(flux float64) float64
}

// FluxMag0 is a photometric calibration given as the flux of a zero
// magnitude source.
type FluxMag0 float64

// Magnitude implements Calibration.
func (f FluxMag0) Magnitude(flux float64) float64 {
	return astro.FluxMag(flux, float64(f))
}

// Linearizer gives the local linear pixel to sky transformation of an
// image WCS.
type Linearizer interface {
	// Jacobian at (ra, dec) in degrees, as a 2x2 matrix in arc seconds
	// per pixel.
	Jacobian(ra, dec float64) mat.Matrix
}

// AngularSize computes the determinant radius of each source's second
// moments in arc seconds.
//
// If lin is nil, moments are scaled by pixelScale in arc seconds per
// pixel.  Otherwise the moment matrix of each source is transformed by
// the WCS linearization at that source's position.  Degenerate moments
// give NaN.
//
// The coadd store reads only the CD matrix of the exposure header, so
// with that store the linearization is the same for every source.
func AngularSize(t Table, lin Linearizer, pixelScale float64) []float64 {
	a := make([]float64, len(t))
	if lin == nil {
		for i := range t {
			s := &t[i]
			a[i] = astro.MomentRadius(s.Ixx, s.Iyy, s.Ixy) * pixelScale
		}
		return a
	}
	var jm, sky mat.Dense
	m := mat.NewSymDense(2, nil)
	for i := range t {
		s := &t[i]
		if math.IsNaN(s.Ixx) || math.IsNaN(s.Iyy) || math.IsNaN(s.Ixy) {
			a[i] = math.NaN()
			continue
		}
		j := lin.Jacobian(s.RA*180/math.Pi, s.Dec*180/math.Pi)
		m.SetSym(0, 0, s.Ixx)
		m.SetSym(0, 1, s.Ixy)
		m.SetSym(1, 1, s.Iyy)
		jm.Mul(j, m)
		sky.Mul(&jm, j.T())
		a[i] = astro.MomentRadius(sky.At(0, 0), sky.At(1, 1), sky.At(0, 1))
	}
	return a
}

// ApparentMag computes magnitudes of source fluxes.
func ApparentMag(t Table, cal Calibration) []float64 {
	m := make([]float64, len(t))
	for i := range t {
		m[i] = cal.Magnitude(t[i].Flux)
	}
	return m
}

// AbsoluteMag computes absolute magnitudes at luminosity distance dL in
// Mpc.
func AbsoluteMag(mag []float64, dL float64) []float64 {
	a := make([]float64, len(mag))
	for i, m := range mag {
		a[i] = astro.AbsMag(m, dL)
	}
	return a
}

// PhysicalSize converts angular sizes in arc seconds to kpc at angular
// diameter distance dA in Mpc.
func PhysicalSize(angsize []float64, dA float64) []float64 {
	s := make([]float64, len(angsize))
	for i, a := range angsize {
		s[i] = astro.PhysSize(a, dA)
	}
	return s
}

// SurfaceBrightness computes mean surface brightness from parallel
// magnitude and angular size slices.
func SurfaceBrightness(mag, angsize []float64) []float64 {
	sb := make([]float64, len(mag))
	for i, m := range mag {
		sb[i] = astro.SurfaceBrightness(m, angsize[i])
	}
	return sb
}

// countNaN counts undefined values.
func countNaN(s []float64) int {
	return floats.Count(math.IsNaN, s)
}

// sentinel replaces NaN values with -999 in a copy of s, so that they
// fail any realistic lower bound cut.
func sentinel(s []float64) []float64 {
	c := make([]float64, len(s))
	for i, v := range s {
		if math.IsNaN(v) {
			v = -999
		}
		c[i] = v
	}
	return c
}
