// Public domain.

// Package skymap identifies survey tiles (tracts and patches) and finds
// the tiles covering a region of sky.
package skymap

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/hscana/astro"
)

// MaxTileSep is about the size of a tract.  Tile enumeration from box
// corners is unreliable for regions larger than this.
var MaxTileSep = unit.AngleFromMin(90)

// Tile is a tract and patch.  Patch is the "x,y" patch index string.
type Tile struct {
	Tract int
	Patch string
}

func (t Tile) String() string {
	return fmt.Sprintf("%d %s", t.Tract, t.Patch)
}

// Dir returns the patch as used in file and directory names, "x-y".
func (t Tile) Dir() string {
	return strings.Replace(t.Patch, ",", "-", 1)
}

// ParseTile parses tract and patch strings.  The patch may be given as
// "x,y" or "x-y".
func ParseTile(tract, patch string) (Tile, error) {
	tr, err := strconv.Atoi(tract)
	if err != nil {
		return Tile{}, fmt.Errorf("invalid tract %q: %w", tract, err)
	}
	p := strings.Replace(patch, "-", ",", 1)
	x, y, ok := strings.Cut(p, ",")
	if !ok {
		return Tile{}, fmt.Errorf("invalid patch %q", patch)
	}
	if _, err := strconv.Atoi(x); err != nil {
		return Tile{}, fmt.Errorf("invalid patch %q", patch)
	}
	if _, err := strconv.Atoi(y); err != nil {
		return Tile{}, fmt.Errorf("invalid patch %q", patch)
	}
	return Tile{tr, p}, nil
}

// Index is a spatial index of survey tiles.
type Index interface {
	// Overlapping returns tiles overlapping the polygon of corners.
	Overlapping(c [4]astro.Corner) ([]Tile, error)
}

// TilesOverlapping asks idx for the tiles overlapping a box from
// astro.SkyBox.  A box with a diagonal larger than MaxTileSep is logged
// as a warning but still looked up.
func TilesOverlapping(idx Index, c [4]astro.Corner) ([]Tile, error) {
	if d := astro.Diagonal(c); d > MaxTileSep {
		slog.Warn("region larger than a tract",
			"diagonal_arcmin", d.Min(), "limit_arcmin", MaxTileSep.Min())
	}
	return idx.Overlapping(c)
}
