// Public domain.

package skymap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/soniakeys/hscana/astro"
)

// ErrNotCovered is returned by Find for a position outside all tiles.
var ErrNotCovered = errors.New("position not covered by sky map")

// Bounds is the RA and Dec extent of a tile in degrees.
type Bounds struct {
	RAMin, RAMax, DecMin, DecMax float64
}

// Contains reports if the tile bounds contain a position.
func (b Bounds) Contains(ra, dec float64) bool {
	return ra >= b.RAMin && ra < b.RAMax && dec >= b.DecMin && dec < b.DecMax
}

func (b Bounds) intersects(o Bounds) bool {
	return b.RAMin < o.RAMax && o.RAMin < b.RAMax &&
		b.DecMin < o.DecMax && o.DecMin < b.DecMax
}

// ManifestTile is one entry of a Manifest.
type ManifestTile struct {
	Tile
	Bounds
}

// Manifest is an Index backed by a flat table of tile bounds.
//
// Tiles are matched against the RA/Dec extent of the box corners, so
// results are approximate the same way the box is.  Boxes crossing
// RA 0 are not unwrapped.
type Manifest struct {
	Tiles []ManifestTile
}

var manifestHeader = []string{"tract", "patch", "ra_min", "ra_max", "dec_min", "dec_max"}

// ReadManifestFile reads a manifest from a comma separated file.
//
// The first line must be the header
//
//	tract,patch,ra_min,ra_max,dec_min,dec_max
//
// Angles are in degrees.
func ReadManifestFile(fn string) (*Manifest, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return m, nil
}

// ReadManifest reads a manifest from r.  See ReadManifestFile.
func ReadManifest(r io.Reader) (*Manifest, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = len(manifestHeader)
	h, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading manifest header: %w", err)
	}
	for i, n := range manifestHeader {
		if h[i] != n {
			return nil, fmt.Errorf("manifest column %d is %q, want %q", i+1, h[i], n)
		}
	}
	m := &Manifest{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		t, err := ParseTile(rec[0], rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var v [4]float64
		for i := range v {
			if v[i], err = strconv.ParseFloat(rec[i+2], 64); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, manifestHeader[i+2], err)
			}
		}
		if !(v[0] < v[1]) || !(v[2] < v[3]) {
			return nil, fmt.Errorf("line %d: empty tile bounds", line)
		}
		m.Tiles = append(m.Tiles, ManifestTile{t, Bounds{v[0], v[1], v[2], v[3]}})
	}
	return m, nil
}

// Overlapping implements Index.  Tiles are returned in manifest order.
func (m *Manifest) Overlapping(c [4]astro.Corner) ([]Tile, error) {
	ext := Bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, p := range c {
		ext.RAMin = math.Min(ext.RAMin, p.RA)
		ext.RAMax = math.Max(ext.RAMax, p.RA)
		ext.DecMin = math.Min(ext.DecMin, p.Dec)
		ext.DecMax = math.Max(ext.DecMax, p.Dec)
	}
	var tiles []Tile
	for _, mt := range m.Tiles {
		if mt.intersects(ext) {
			tiles = append(tiles, mt.Tile)
		}
	}
	return tiles, nil
}

// Find returns the first tile containing a position.
func (m *Manifest) Find(ra, dec float64) (Tile, error) {
	for _, mt := range m.Tiles {
		if mt.Contains(ra, dec) {
			return mt.Tile, nil
		}
	}
	return Tile{}, fmt.Errorf("%w: ra %g dec %g", ErrNotCovered, ra, dec)
}
