// Public domain.

package search_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/hscana/astro"
	"github.com/soniakeys/hscana/internal/groups"
	"github.com/soniakeys/hscana/internal/hscat"
	"github.com/soniakeys/hscana/internal/search"
	"github.com/soniakeys/hscana/internal/skymap"
)

var (
	t1 = skymap.Tile{Tract: 9347, Patch: "0,0"}
	t2 = skymap.Tile{Tract: 9347, Patch: "0,1"}
)

var errMissing = errors.New("missing")

type store struct{}

func (store) FetchCatalog(t skymap.Tile, band string, s hscat.Schema) (hscat.Table, error) {
	if t != t1 {
		return nil, errMissing
	}
	tb := make(hscat.Table, 5)
	for i := range tb {
		tb[i] = hscat.Source{ID: int64(i), Extendedness: 1, Flux: 1e3, Ixx: 100, Iyy: 100}
	}
	tb[0].FlagCR = true
	return tb, nil
}

func (store) FetchCalibration(skymap.Tile, string) (hscat.Calibration, error) {
	return hscat.FluxMag0(1e12), nil
}

func (store) FetchWCS(skymap.Tile, string) (hscat.Linearizer, error) {
	return nil, errors.New("no wcs")
}

// index returns both tiles for any box.
type index struct{ boxes [][4]astro.Corner }

func (x *index) Overlapping(c [4]astro.Corner) ([]skymap.Tile, error) {
	x.boxes = append(x.boxes, c)
	return []skymap.Tile{t1, t2}, nil
}

var gt = groups.Table{
	{ID: 1, RA: 150, Dec: 2, Distances: groups.Distances{DA: 200, DL: 200, Z: .05}},
	{ID: 2, RA: 160, Dec: 3, Distances: groups.Distances{DA: 0}},
	{ID: 3, RA: 170, Dec: 4, Distances: groups.Distances{DA: 300, DL: 300, Z: .07}},
}

func runner(x *index) *search.Runner {
	return &search.Runner{
		Builder: hscat.NewBuilder(store{}, gt),
		Index:   x,
		Band:    "I",
	}
}

func TestBox(t *testing.T) {
	r := runner(&index{})
	b, err := r.Box(gt[0])
	require.NoError(t, err)
	// 3 Mpc at 200 Mpc
	assert.InDelta(t, 3./200*180/math.Pi, b[1].Dec-b[0].Dec, 1e-12)
	_, err = r.Box(gt[1])
	assert.ErrorIs(t, err, astro.ErrDomain)
	r.BoxWidth = 6
	b6, err := r.Box(gt[0])
	require.NoError(t, err)
	assert.InDelta(t, 2*(b[1].Dec-b[0].Dec), b6[1].Dec-b6[0].Dec, 1e-12)
}

func TestGroup(t *testing.T) {
	x := &index{}
	res, err := runner(x).Group(context.Background(), gt[0])
	require.NoError(t, err)
	require.Len(t, res.Tiles, 2)
	require.Len(t, x.boxes, 1)
	assert.Equal(t, res.Box, x.boxes[0])

	ok := res.Tiles[0]
	require.NotNil(t, ok.Catalog)
	assert.Nil(t, ok.Err)
	assert.Equal(t, 4, ok.Catalog.Count())
	n, _ := ok.Cuts.Get(hscat.ColFlagCR)
	assert.Equal(t, 1, n)

	bad := res.Tiles[1]
	assert.Nil(t, bad.Catalog)
	require.NotNil(t, bad.Err)
	assert.Equal(t, t2, bad.Err.Tile)
	assert.ErrorIs(t, bad.Err, errMissing)
	var fe *search.FetchError
	assert.True(t, errors.As(error(bad.Err), &fe))

	assert.Equal(t, 4, res.Candidates())
	assert.Equal(t, 1, res.Failed())
}

func TestUnknownGroup(t *testing.T) {
	_, err := runner(&index{}).Group(context.Background(),
		groups.Group{ID: 99, RA: 1, Dec: 1, Distances: groups.Distances{DA: 100}})
	assert.ErrorIs(t, err, groups.ErrNoSuchGroup)
}

func TestRun(t *testing.T) {
	r := runner(&index{})
	var seen []int64
	r.OnGroup = func(g search.GroupResult) { seen = append(seen, g.Group.ID) }
	all, err := r.Run(context.Background(), gt)
	require.NoError(t, err)
	// group 2 has no distance and is skipped
	assert.Equal(t, []int64{1, 3}, seen)
	require.Len(t, all, 2)
	assert.Equal(t, int64(3), all[1].Group.ID)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	all, err := runner(&index{}).Run(ctx, gt)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, all)
}

// cancelStore cancels the search once the first tile is fetched.
type cancelStore struct {
	store
	cancel context.CancelFunc
}

func (s cancelStore) FetchCatalog(t skymap.Tile, band string, sc hscat.Schema) (hscat.Table, error) {
	s.cancel()
	return s.store.FetchCatalog(t, band, sc)
}

func TestRunCancelledMidGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := runner(&index{})
	r.Builder = hscat.NewBuilder(cancelStore{cancel: cancel}, gt)
	var seen []search.GroupResult
	r.OnGroup = func(g search.GroupResult) { seen = append(seen, g) }
	all, err := r.Run(ctx, gt)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, all, 1)
	require.Len(t, all[0].Tiles, 1)
	assert.Equal(t, t1, all[0].Tiles[0].Tile)
	assert.Equal(t, 4, all[0].Candidates())
	require.Len(t, seen, 1)
	assert.Equal(t, int64(1), seen[0].Group.ID)
}

func TestRunBadCuts(t *testing.T) {
	r := runner(&index{})
	r.Builder.Cuts.Flags = append(r.Builder.Cuts.Flags, hscat.FlagCut{Column: "nope"})
	_, err := r.Run(context.Background(), gt)
	assert.ErrorIs(t, err, hscat.ErrCutConfig)
}
