// Public domain.

package hscat

import (
	"fmt"
	"log/slog"

	"github.com/soniakeys/hscana/internal/groups"
	"github.com/soniakeys/hscana/internal/skymap"
)

// Store is the external source of measurement tables and exposure
// metadata.
type Store interface {
	// FetchCatalog returns the measurement table of a tile and band,
	// failing with ErrSchemaMismatch if a column of the schema is missing.
	FetchCatalog(tile skymap.Tile, band string, s Schema) (Table, error)
	FetchCalibration(tile skymap.Tile, band string) (Calibration, error)
	// FetchWCS returns the linearized WCS of the coadd exposure.
	FetchWCS(tile skymap.Tile, band string) (Linearizer, error)
}

// GroupLookup gives distances to galaxy groups.  groups.Table satisfies
// it.
type GroupLookup interface {
	Distances(id int64) (groups.Distances, error)
}

// Builder loads catalogs from a store and runs the cut pipeline.
type Builder struct {
	Store  Store
	Groups GroupLookup // may be nil if BuildGroup is not used
	Schema Schema
	Cuts   CutConfig

	// UseWCS selects the per source WCS transformation of shape moments
	// over the constant PixelScale.
	UseWCS     bool
	PixelScale float64
}

// NewBuilder returns a Builder with the default schema and cuts.
func NewBuilder(st Store, g GroupLookup) *Builder {
	return &Builder{
		Store:  st,
		Groups: g,
		Schema: DefaultSchema(),
		Cuts:   DefaultCuts(),
	}
}

func (b *Builder) load(tile skymap.Tile, band string) (Table, Calibration, Options, error) {
	opt := Options{PixelScale: b.PixelScale}
	t, err := b.Store.FetchCatalog(tile, band, b.Schema)
	if err != nil {
		return nil, nil, opt, err
	}
	cal, err := b.Store.FetchCalibration(tile, band)
	if err != nil {
		return nil, nil, opt, err
	}
	if b.UseWCS {
		if opt.WCS, err = b.Store.FetchWCS(tile, band); err != nil {
			return nil, nil, opt, err
		}
	}
	return t, cal, opt, nil
}

// Build loads and filters the catalog of a tile and band without group
// context.  Size and absolute magnitude cuts are not run.
func (b *Builder) Build(tile skymap.Tile, band string) (*Catalog, Record, Record, error) {
	if err := b.Cuts.Validate(); err != nil {
		return nil, Record{}, Record{}, err
	}
	t, cal, opt, err := b.load(tile, band)
	if err != nil {
		return nil, Record{}, Record{}, fmt.Errorf("tile %s band %s: %w", tile, band, err)
	}
	c := New(tile, band, t, cal, opt)
	cuts, nans, err := c.MakeCuts(b.Cuts)
	if err != nil {
		return nil, Record{}, Record{}, err
	}
	slog.Info("catalog built", "tile", tile.String(), "band", band,
		"history", c.History(), "cuts", cuts.String(), "nan", nans.String())
	return c, cuts, nans, nil
}

// BuildGroup loads and filters the catalog of a tile and band in the
// context of a galaxy group.  The group is looked up before the store is
// accessed.
func (b *Builder) BuildGroup(tile skymap.Tile, band string, id int64) (*GroupCatalog, Record, Record, error) {
	if b.Groups == nil {
		return nil, Record{}, Record{}, fmt.Errorf("group %d: %w", id, groups.ErrNoSuchGroup)
	}
	d, err := b.Groups.Distances(id)
	if err != nil {
		return nil, Record{}, Record{}, err
	}
	if err := b.Cuts.Validate(); err != nil {
		return nil, Record{}, Record{}, err
	}
	t, cal, opt, err := b.load(tile, band)
	if err != nil {
		return nil, Record{}, Record{}, fmt.Errorf("tile %s band %s: %w", tile, band, err)
	}
	g := NewGroup(tile, band, t, cal, opt, id, d)
	cuts, nans, err := g.MakeCuts(b.Cuts)
	if err != nil {
		return nil, Record{}, Record{}, err
	}
	slog.Info("catalog built", "tile", tile.String(), "band", band, "group", id,
		"history", g.History(), "cuts", cuts.String(), "nan", nans.String())
	return g, cuts, nans, nil
}
