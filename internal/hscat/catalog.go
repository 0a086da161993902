// Public domain.

package hscat

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/hscana/astro"
	"github.com/soniakeys/hscana/internal/groups"
	"github.com/soniakeys/hscana/internal/skymap"
)

var (
	// ErrMaskLength is returned by Apply for a mask not matching the
	// catalog length.
	ErrMaskLength = errors.New("mask length does not match catalog")
	// ErrSealed is returned when modifying a catalog after MakeCuts.
	ErrSealed = errors.New("catalog is read-only after cuts")
)

// Options control derivation of angular size.
type Options struct {
	// WCS, if not nil, is used to transform shape moments to the sky at
	// each source position.
	WCS Linearizer
	// PixelScale in arc seconds per pixel is used when WCS is nil.
	// Zero means astro.HSCPixelScale.
	PixelScale float64
}

// Catalog is a source table for one tile and band with derived columns.
//
// Derived columns are parallel to the source table.  They start out
// computed for all sources and are filtered together with the table by
// Apply.  Slices returned by accessors must not be modified.
type Catalog struct {
	Tile skymap.Tile
	Band string

	src     Table
	angsize []float64 // arc seconds
	mag     []float64
	sb      []float64 // mag/arcsec^2
	ra, dec []float64 // degrees

	extra   []*[]float64 // more parallel columns, filtered by Apply
	history []int
	sealed  bool
}

// New builds a catalog from a measurement table and the photometric
// calibration of its exposure.
func New(tile skymap.Tile, band string, t Table, cal Calibration, opt Options) *Catalog {
	ps := opt.PixelScale
	if ps == 0 {
		ps = astro.HSCPixelScale
	}
	c := &Catalog{
		Tile:    tile,
		Band:    band,
		src:     append(Table(nil), t...),
		angsize: AngularSize(t, opt.WCS, ps),
		mag:     ApparentMag(t, cal),
		ra:      make([]float64, len(t)),
		dec:     make([]float64, len(t)),
	}
	c.sb = SurfaceBrightness(c.mag, c.angsize)
	for i := range t {
		c.ra[i] = t[i].RA * 180 / math.Pi
		c.dec[i] = t[i].Dec * 180 / math.Pi
	}
	c.history = []int{len(t)}
	return c
}

// Count returns the number of sources currently in the catalog.
func (c *Catalog) Count() int { return len(c.src) }

// History returns the catalog count at construction and after each
// Apply.
func (c *Catalog) History() []int { return append([]int(nil), c.history...) }

// Sources returns the current source table.
func (c *Catalog) Sources() Table { return c.src }

// AngSize returns angular sizes in arc seconds.
func (c *Catalog) AngSize() []float64 { return c.angsize }

// Mag returns apparent magnitudes.
func (c *Catalog) Mag() []float64 { return c.mag }

// SB returns surface brightnesses.  After the SB_min cut has run,
// undefined values have been replaced by -999.
func (c *Catalog) SB() []float64 { return c.sb }

// RA returns right ascensions in degrees.
func (c *Catalog) RA() []float64 { return c.ra }

// Dec returns declinations in degrees.
func (c *Catalog) Dec() []float64 { return c.dec }

// Coordinates returns (ra, dec) pairs in degrees.
func (c *Catalog) Coordinates() [][2]float64 {
	p := make([][2]float64, len(c.src))
	for i := range p {
		p[i] = [2]float64{c.ra[i], c.dec[i]}
	}
	return p
}

// Sealed reports whether MakeCuts has completed.
func (c *Catalog) Sealed() bool { return c.sealed }

func (c *Catalog) columns() []*[]float64 {
	return append([]*[]float64{&c.angsize, &c.mag, &c.sb, &c.ra, &c.dec}, c.extra...)
}

// Apply keeps sources where keep is true, removing the rest from the
// table and every derived column, and appends the new count to the
// history.  On error the catalog is unchanged.
func (c *Catalog) Apply(keep []bool) error {
	if c.sealed {
		return ErrSealed
	}
	return c.apply(keep)
}

func (c *Catalog) apply(keep []bool) error {
	if len(keep) != len(c.src) {
		return fmt.Errorf("%w: mask %d, catalog %d", ErrMaskLength, len(keep), len(c.src))
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	src := make(Table, 0, n)
	for i, k := range keep {
		if k {
			src = append(src, c.src[i])
		}
	}
	cols := c.columns()
	kept := make([][]float64, len(cols))
	for j, p := range cols {
		kept[j] = make([]float64, 0, n)
		for i, k := range keep {
			if k {
				kept[j] = append(kept[j], (*p)[i])
			}
		}
	}
	c.src = src
	for j, p := range cols {
		*p = kept[j]
	}
	c.history = append(c.history, n)
	return nil
}

// GroupCatalog is a Catalog with the context of a galaxy group, adding
// physical size and absolute magnitude computed at the group distance.
type GroupCatalog struct {
	*Catalog
	GroupID int64
	groups.Distances

	size   []float64 // kpc
	absmag []float64
}

// NewGroup builds a catalog as New does, adding group columns.
func NewGroup(tile skymap.Tile, band string, t Table, cal Calibration, opt Options,
	id int64, d groups.Distances) *GroupCatalog {
	c := New(tile, band, t, cal, opt)
	g := &GroupCatalog{
		Catalog:   c,
		GroupID:   id,
		Distances: d,
		size:      PhysicalSize(c.angsize, d.DA),
		absmag:    AbsoluteMag(c.mag, d.DL),
	}
	c.extra = []*[]float64{&g.size, &g.absmag}
	return g
}

// SizeKpc returns physical sizes in kpc.  After the size_min cut has run,
// undefined values have been replaced by -999.
func (g *GroupCatalog) SizeKpc() []float64 { return g.size }

// AbsMag returns absolute magnitudes.
func (g *GroupCatalog) AbsMag() []float64 { return g.absmag }
