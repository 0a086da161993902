// Public domain.

// Package search runs the candidate search over the sky around galaxy
// groups.
//
// For each group a square box of fixed physical width at the group
// distance is laid out on the sky, tiles overlapping the box are listed,
// and a filtered catalog is built for each tile.  Tiles that fail to
// load are reported in the results and the search continues.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soniakeys/hscana/astro"
	"github.com/soniakeys/hscana/internal/groups"
	"github.com/soniakeys/hscana/internal/hscat"
	"github.com/soniakeys/hscana/internal/skymap"
)

// DefaultBoxWidth is the physical width of the search box in Mpc.
const DefaultBoxWidth = 3.

// FetchError is a failure to load or build the catalog of one tile.
type FetchError struct {
	Tile skymap.Tile
	Band string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("tile %s band %s: %v", e.Tile, e.Band, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TileResult is the outcome for one tile.  Exactly one of Catalog and
// Err is non-nil.
type TileResult struct {
	Tile    skymap.Tile
	Catalog *hscat.GroupCatalog
	Cuts    hscat.Record
	NaNs    hscat.Record
	Err     *FetchError
}

// GroupResult is the outcome for one group.
type GroupResult struct {
	Group groups.Group
	Box   [4]astro.Corner
	Tiles []TileResult
}

// Candidates returns the number of sources surviving cuts over all
// tiles.
func (r *GroupResult) Candidates() int {
	n := 0
	for _, t := range r.Tiles {
		if t.Catalog != nil {
			n += t.Catalog.Count()
		}
	}
	return n
}

// Failed returns the number of tiles that failed.
func (r *GroupResult) Failed() int {
	n := 0
	for _, t := range r.Tiles {
		if t.Err != nil {
			n++
		}
	}
	return n
}

// Runner searches groups.  The builder must have group lookup.
type Runner struct {
	Builder  *hscat.Builder
	Index    skymap.Index
	Band     string
	BoxWidth float64 // Mpc, zero means DefaultBoxWidth

	// OnGroup, if not nil, is called with each group result as it
	// completes.
	OnGroup func(GroupResult)
}

// Box returns the search box around a group.
func (r *Runner) Box(g groups.Group) ([4]astro.Corner, error) {
	w := r.BoxWidth
	if w == 0 {
		w = DefaultBoxWidth
	}
	if !(g.DA > 0) {
		return [4]astro.Corner{}, fmt.Errorf("%w: group %d D_A %g", astro.ErrDomain, g.ID, g.DA)
	}
	return astro.SquareBox(g.RA, g.Dec, astro.GroupBoxWidth(w, g.DA).Deg())
}

// Group searches the tiles around one group.
//
// The context is checked before each tile.  A cancelled search returns
// the tiles completed so far along with the context error.
func (r *Runner) Group(ctx context.Context, g groups.Group) (GroupResult, error) {
	res := GroupResult{Group: g}
	box, err := r.Box(g)
	if err != nil {
		return res, err
	}
	res.Box = box
	tiles, err := skymap.TilesOverlapping(r.Index, box)
	if err != nil {
		return res, fmt.Errorf("group %d: %w", g.ID, err)
	}
	slog.Debug("group tiles", "group", g.ID, "tiles", len(tiles))
	for _, t := range tiles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		c, cuts, nans, err := r.Builder.BuildGroup(t, r.Band, g.ID)
		switch {
		case errors.Is(err, groups.ErrNoSuchGroup):
			return res, err
		case err != nil:
			slog.Warn("skipping tile", "group", g.ID, "tile", t.String(), "err", err)
			res.Tiles = append(res.Tiles, TileResult{
				Tile: t,
				Err:  &FetchError{Tile: t, Band: r.Band, Err: err},
			})
		default:
			res.Tiles = append(res.Tiles, TileResult{Tile: t, Catalog: c, Cuts: cuts, NaNs: nans})
		}
	}
	return res, nil
}

// Run searches each group in turn.  Groups whose box is out of domain
// are logged and skipped.  If the context is cancelled partway through a
// group, the tiles completed are still returned and passed to OnGroup.
func (r *Runner) Run(ctx context.Context, gs groups.Table) ([]GroupResult, error) {
	if err := r.Builder.Cuts.Validate(); err != nil {
		return nil, err
	}
	var all []GroupResult
	for _, g := range gs {
		res, err := r.Group(ctx, g)
		if errors.Is(err, astro.ErrDomain) {
			slog.Warn("skipping group", "group", g.ID, "err", err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil && len(res.Tiles) > 0 {
				all = append(all, res)
				if r.OnGroup != nil {
					r.OnGroup(res)
				}
			}
			return all, err
		}
		slog.Info("group searched", "group", g.ID, "tiles", len(res.Tiles),
			"failed", res.Failed(), "candidates", res.Candidates())
		all = append(all, res)
		if r.OnGroup != nil {
			r.OnGroup(res)
		}
	}
	return all, nil
}
