// Public domain.

package hscat_test

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/hscana/internal/groups"
	"github.com/soniakeys/hscana/internal/hscat"
	"github.com/soniakeys/hscana/internal/skymap"
	"github.com/soniakeys/hscana/internal/wcs"
)

var tile = skymap.Tile{Tract: 9347, Patch: "5,7"}

const fm0 = hscat.FluxMag0(1e12)

// good returns a source passing all default cuts.  With fm0 it has
// magnitude 22.5, angular size 1.68" and SB near 24.87.
func good(id int64) hscat.Source {
	return hscat.Source{
		ID:           id,
		RA:           (150 + float64(id)*1e-3) * math.Pi / 180,
		Dec:          2 * math.Pi / 180,
		Extendedness: 1,
		Flux:         1e3,
		Ixx:          100,
		Iyy:          100,
	}
}

func goodTable(n int) hscat.Table {
	t := make(hscat.Table, n)
	for i := range t {
		t[i] = good(int64(i + 1))
	}
	return t
}

// near is group context where good sources pass size and absmag cuts.
var near = groups.Distances{DA: 200, DL: 200, Z: .05}

func lengths(c *hscat.Catalog) []int {
	return []int{c.Count(), len(c.Sources()), len(c.AngSize()), len(c.Mag()),
		len(c.SB()), len(c.RA()), len(c.Dec()), len(c.Coordinates())}
}

func TestNew(t *testing.T) {
	c := hscat.New(tile, "I", goodTable(3), fm0, hscat.Options{})
	require.Equal(t, 3, c.Count())
	assert.InDelta(t, 1.68, c.AngSize()[0], 1e-12)
	assert.InDelta(t, 22.5, c.Mag()[0], 1e-12)
	assert.InDelta(t, 22.5+2.5*math.Log10(math.Pi*1.68*1.68), c.SB()[0], 1e-12)
	assert.InDelta(t, 150.001, c.Coordinates()[0][0], 1e-9)
	assert.InDelta(t, 2, c.Coordinates()[0][1], 1e-9)
	assert.Equal(t, []int{3}, c.History())
}

func TestWCSMatchesPixelScale(t *testing.T) {
	tb := goodTable(4)
	tb[1].Ixx, tb[1].Iyy, tb[1].Ixy = 40, 90, 12
	tb[2].Ixx = math.NaN()
	ps := hscat.New(tile, "I", tb, fm0, hscat.Options{PixelScale: .168})
	w := hscat.New(tile, "I", tb, fm0, hscat.Options{WCS: wcs.Scale(.168)})
	if d := cmp.Diff(ps.AngSize(), w.AngSize(), cmpopts.EquateApprox(0, 1e-12), cmpopts.EquateNaNs()); d != "" {
		t.Fatal(d)
	}
	assert.True(t, math.IsNaN(w.AngSize()[2]))
}

func TestApplyLengths(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		n := r.Intn(30)
		g := hscat.NewGroup(tile, "I", goodTable(n), fm0, hscat.Options{}, 1, near)
		m := make([]bool, n)
		want := 0
		for i := range m {
			if m[i] = r.Intn(2) == 0; m[i] {
				want++
			}
		}
		require.NoError(t, g.Apply(m))
		for _, l := range lengths(g.Catalog) {
			assert.Equal(t, want, l)
		}
		assert.Len(t, g.SizeKpc(), want)
		assert.Len(t, g.AbsMag(), want)
		assert.Equal(t, []int{n, want}, g.History())
	}
}

func TestApplyKeepsRows(t *testing.T) {
	tb := goodTable(5)
	tb[3].Flux = 1e4
	c := hscat.New(tile, "I", tb, fm0, hscat.Options{})
	require.NoError(t, c.Apply([]bool{false, true, false, true, false}))
	assert.Equal(t, []int64{2, 4}, []int64{c.Sources()[0].ID, c.Sources()[1].ID})
	assert.InDelta(t, 22.5, c.Mag()[0], 1e-12)
	assert.InDelta(t, 20, c.Mag()[1], 1e-12)
	assert.InDelta(t, 150.004, c.RA()[1], 1e-9)
}

func TestApplyAllTrue(t *testing.T) {
	tb := goodTable(6)
	tb[2].Flux = -1
	c := hscat.New(tile, "I", tb, fm0, hscat.Options{})
	sb := append([]float64(nil), c.SB()...)
	m := []bool{true, true, true, true, true, true}
	require.NoError(t, c.Apply(m))
	assert.Equal(t, 6, c.Count())
	if d := cmp.Diff(sb, c.SB(), cmpopts.EquateNaNs()); d != "" {
		t.Fatal(d)
	}
	assert.Equal(t, []int{6, 6}, c.History())
}

func TestApplyMaskLength(t *testing.T) {
	c := hscat.New(tile, "I", goodTable(3), fm0, hscat.Options{})
	err := c.Apply([]bool{true})
	assert.ErrorIs(t, err, hscat.ErrMaskLength)
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, []int{3}, c.History())
}

func TestParentCut(t *testing.T) {
	tb := goodTable(10)
	for _, i := range []int{1, 4, 8} {
		tb[i].Parent = 100
	}
	c := hscat.New(tile, "I", tb, fm0, hscat.Options{})
	cuts, _, err := c.MakeCuts(hscat.DefaultCuts())
	require.NoError(t, err)
	assert.Equal(t, 7, c.Count())
	n, ok := cuts.Get(hscat.ColParent)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

// A source failing two flags is counted only by the first.
func TestFlagCutsSequential(t *testing.T) {
	tb := goodTable(4)
	tb[0].FlagBad = true
	tb[0].FlagEdge = true
	tb[1].FlagEdge = true
	tb[2].Extendedness = .6
	tb[3].Extendedness = .2
	c := hscat.New(tile, "I", tb, fm0, hscat.Options{})
	cuts, _, err := c.MakeCuts(hscat.DefaultCuts())
	require.NoError(t, err)
	want := map[string]int{
		hscat.ColFlagBad:       1,
		hscat.ColFlagEdge:      1,
		hscat.ColExtendedness:  1,
		hscat.ColFlagInterp:    0,
		hscat.ColFlagCR:        0,
		hscat.ColFlagSaturated: 0,
		hscat.ColParent:        0,
		hscat.ColFlagBright:    0,
		hscat.CutSBMin:         0,
		hscat.CutSBMax:         0,
	}
	got := map[string]int{}
	for _, n := range cuts.Names() {
		got[n], _ = cuts.Get(n)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []int64{3}, []int64{c.Sources()[0].ID})
}

func TestNaNSurfaceBrightness(t *testing.T) {
	for _, sbMin := range []float64{24, 0, -20} {
		t.Run(fmt.Sprint(sbMin), func(t *testing.T) {
			tb := goodTable(4)
			tb[1].Flux = 0
			tb[2].Ixx, tb[2].Iyy = -1, 1
			cfg := hscat.CutConfig{SBMin: &sbMin}
			c := hscat.New(tile, "I", tb, fm0, hscat.Options{})
			cuts, nans, err := c.MakeCuts(cfg)
			require.NoError(t, err)
			assert.Equal(t, 2, c.Count())
			n, _ := cuts.Get(hscat.CutSBMin)
			assert.Equal(t, 2, n)
			n, _ = nans.Get("SB")
			assert.Equal(t, 2, n)
			n, _ = nans.Get("mag")
			assert.Equal(t, 1, n)
		})
	}
}

func TestNoGroupContext(t *testing.T) {
	c := hscat.New(tile, "I", goodTable(5), fm0, hscat.Options{})
	cuts, nans, err := c.MakeCuts(hscat.DefaultCuts())
	require.NoError(t, err)
	_, ok := cuts.Get(hscat.CutSizeMin)
	assert.False(t, ok)
	_, ok = cuts.Get(hscat.CutAbsMagMax)
	assert.False(t, ok)
	assert.Equal(t, []string{"mag", "SB"}, nans.Names())
	assert.Equal(t, 5, c.Count())
}

func TestGroupCuts(t *testing.T) {
	tb := goodTable(5)
	tb[1].Ixx, tb[1].Iyy = 9, 9 // 0.5", 0.49 kpc, but SB still in window
	tb[1].Flux = 1e2
	tb[2].Flux = 2e2 // absmag -12.3
	g := hscat.NewGroup(tile, "I", tb, fm0, hscat.Options{}, 7, near)
	cuts, nans, err := g.MakeCuts(hscat.DefaultCuts())
	require.NoError(t, err)
	assert.Equal(t, 3, g.Count())
	n, _ := cuts.Get(hscat.CutSizeMin)
	assert.Equal(t, 1, n)
	n, _ = cuts.Get(hscat.CutAbsMagMax)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"mag", "SB", "size", "absmag"}, nans.Names())
	for _, s := range g.SizeKpc() {
		assert.Greater(t, s, 1.)
	}
	for _, m := range g.AbsMag() {
		assert.Less(t, m, -13.)
	}
	assert.Equal(t, int64(7), g.GroupID)
	assert.Equal(t, 200., g.DA)
}

func TestNaNSize(t *testing.T) {
	tb := goodTable(3)
	tb[0].Ixy = math.NaN()
	g := hscat.NewGroup(tile, "I", tb, fm0, hscat.Options{}, 1, near)
	cfg := hscat.CutConfig{SizeMin: ptr(-50)}
	cuts, nans, err := g.MakeCuts(cfg)
	require.NoError(t, err)
	n, _ := nans.Get("size")
	assert.Equal(t, 1, n)
	n, _ = cuts.Get(hscat.CutSizeMin)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, g.Count())
}

func TestUnsetThresholds(t *testing.T) {
	tb := goodTable(4)
	tb[0].FlagBad = true
	tb[1].Flux = -5
	g := hscat.NewGroup(tile, "I", tb, fm0, hscat.Options{}, 1, near)
	cuts, _, err := g.MakeCuts(hscat.CutConfig{Flags: []hscat.FlagCut{{Column: hscat.ColFlagBad}}})
	require.NoError(t, err)
	assert.Equal(t, 0, cuts.Len())
	assert.Equal(t, 4, g.Count())
	assert.Equal(t, []int{4}, g.History())
}

func ptr(v float64) *float64 { return &v }

func TestHistoryNonIncreasing(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	tb := goodTable(200)
	for i := range tb {
		s := &tb[i]
		s.FlagCR = r.Intn(10) == 0
		s.Parent = int64(r.Intn(3)) - 1
		s.Extendedness = r.Float64()
		s.Flux = math.Pow(10, r.Float64()*4)
		s.Ixx = r.Float64() * 200
		s.Iyy = r.Float64() * 200
	}
	g := hscat.NewGroup(tile, "I", tb, fm0, hscat.Options{}, 1, near)
	cuts, _, err := g.MakeCuts(hscat.DefaultCuts())
	require.NoError(t, err)
	h := g.History()
	require.Len(t, h, cuts.Len()+1)
	removed := 0
	for i, name := range cuts.Names() {
		assert.LessOrEqual(t, h[i+1], h[i])
		n, _ := cuts.Get(name)
		assert.Equal(t, h[i]-h[i+1], n, name)
		removed += n
	}
	assert.Equal(t, 200-removed, g.Count())
}

func TestSealed(t *testing.T) {
	c := hscat.New(tile, "I", goodTable(2), fm0, hscat.Options{})
	_, _, err := c.MakeCuts(hscat.DefaultCuts())
	require.NoError(t, err)
	assert.True(t, c.Sealed())
	assert.ErrorIs(t, c.Apply([]bool{true, true}), hscat.ErrSealed)
	_, _, err = c.MakeCuts(hscat.DefaultCuts())
	assert.ErrorIs(t, err, hscat.ErrSealed)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, hscat.DefaultCuts().Validate())
	for _, c := range []hscat.CutConfig{
		{Flags: []hscat.FlagCut{{Column: "flux", Value: ptr(0)}}},
		{Flags: []hscat.FlagCut{{Column: hscat.ColParent}, {Column: hscat.ColParent}}},
		{SBMin: ptr(28), SBMax: ptr(26)},
	} {
		assert.ErrorIs(t, c.Validate(), hscat.ErrCutConfig)
	}
}

func TestRecordString(t *testing.T) {
	c := hscat.New(tile, "I", goodTable(2), fm0, hscat.Options{})
	cuts, _, err := c.MakeCuts(hscat.CutConfig{
		Flags: []hscat.FlagCut{{Column: hscat.ColParent, Value: ptr(0)}},
		SBMax: ptr(24.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "parent=0 SB_max=2", cuts.String())
}

type memStore struct {
	tables map[string]hscat.Table
	calls  int
}

func key(tl skymap.Tile, band string) string { return tl.String() + " " + band }

func (m *memStore) FetchCatalog(tl skymap.Tile, band string, s hscat.Schema) (hscat.Table, error) {
	m.calls++
	if s.FluxModel != hscat.DefaultFluxModel {
		return nil, fmt.Errorf("%w: %s", hscat.ErrSchemaMismatch, s.FluxModel)
	}
	t, ok := m.tables[key(tl, band)]
	if !ok {
		return nil, errors.New("no such tile")
	}
	return t, nil
}

func (m *memStore) FetchCalibration(skymap.Tile, string) (hscat.Calibration, error) {
	return fm0, nil
}

func (m *memStore) FetchWCS(skymap.Tile, string) (hscat.Linearizer, error) {
	return wcs.Scale(.168), nil
}

func newStore() *memStore {
	tb := goodTable(10)
	for _, i := range []int{0, 1, 2} {
		tb[i].Parent = 1
	}
	return &memStore{tables: map[string]hscat.Table{key(tile, "I"): tb}}
}

var groupTable = groups.Table{
	{ID: 7, RA: 150, Dec: 2, Distances: near},
}

func TestBuild(t *testing.T) {
	b := hscat.NewBuilder(newStore(), groupTable)
	c, cuts, nans, err := b.Build(tile, "I")
	require.NoError(t, err)
	assert.Equal(t, 7, c.Count())
	n, _ := cuts.Get(hscat.ColParent)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, nans.Len())

	b.UseWCS = true
	g, cuts, _, err := b.BuildGroup(tile, "I", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, g.Count())
	_, ok := cuts.Get(hscat.CutAbsMagMax)
	assert.True(t, ok)
}

func TestBuildErrors(t *testing.T) {
	st := newStore()
	b := hscat.NewBuilder(st, groupTable)
	_, _, _, err := b.BuildGroup(tile, "I", 8)
	assert.ErrorIs(t, err, groups.ErrNoSuchGroup)
	assert.Equal(t, 0, st.calls)

	_, _, _, err = b.Build(skymap.Tile{Tract: 1, Patch: "0,0"}, "I")
	assert.Error(t, err)

	b.Schema.FluxModel = "psf.flux"
	_, _, _, err = b.Build(tile, "I")
	assert.ErrorIs(t, err, hscat.ErrSchemaMismatch)

	b = hscat.NewBuilder(st, nil)
	_, _, _, err = b.BuildGroup(tile, "I", 7)
	assert.ErrorIs(t, err, groups.ErrNoSuchGroup)
}

func ExampleCatalog_MakeCuts() {
	tb := goodTable(10)
	for _, i := range []int{1, 4, 8} {
		tb[i].Parent = 100
	}
	c := hscat.New(tile, "I", tb, fm0, hscat.Options{})
	cuts, nans, err := c.MakeCuts(hscat.DefaultCuts())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(c.Count())
	fmt.Println(c.History())
	fmt.Println(cuts)
	fmt.Println(nans)
	// Output:
	// 7
	// [10 10 10 10 10 10 10 7 7 7 7]
	// flags.pixel.bad=0 flags.pixel.edge=0 flags.pixel.interpolated.any=0 flags.pixel.cr.any=0 flags.pixel.saturated.any=0 classification.extendedness=0 parent=3 flags.pixel.bright.object.any=0 SB_min=0 SB_max=0
	// mag=0 SB=0
}
