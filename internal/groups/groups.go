// Public domain.

// Package groups reads the galaxy group table and looks up group
// distances.
package groups

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrNoSuchGroup is returned when a group id has no row in the table.
var ErrNoSuchGroup = errors.New("no such group")

// Distances holds the cosmological distances to a group, in Mpc, and its
// redshift.
type Distances struct {
	DA, DL, Z float64
}

// Group is one row of the group table.  RA and Dec are luminosity weighted
// group centers in degrees.
type Group struct {
	ID      int64
	RA, Dec float64
	Distances
	NGal int // 0 if the table has no Ngal column
}

// Table is the group table in file order.
type Table []Group

// column names.  either z or group_z is accepted for redshift.
var required = []string{"group_id", "ra", "dec", "D_A", "D_L"}

// ReadFile reads a group table from a comma separated file with a header
// line naming columns.  Columns group_id, ra, dec, z (or group_z), D_A and
// D_L are required; Ngal is read if present and other columns are
// ignored.
func ReadFile(fn string) (Table, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return t, nil
}

// Read reads a group table from r.  See ReadFile.
func Read(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	h, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading group table header: %w", err)
	}
	col := map[string]int{}
	for i, n := range h {
		n = strings.TrimSpace(n)
		if _, ok := col[n]; !ok {
			col[n] = i
		}
	}
	for _, n := range required {
		if _, ok := col[n]; !ok {
			return nil, fmt.Errorf("group table missing column %s", n)
		}
	}
	zCol, ok := col["z"]
	if !ok {
		if zCol, ok = col["group_z"]; !ok {
			return nil, errors.New("group table missing column z")
		}
	}
	nGalCol, hasNGal := col["Ngal"]

	var t Table
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		float := func(i int, n string) float64 {
			if err != nil {
				return 0
			}
			var v float64
			if v, err = strconv.ParseFloat(strings.TrimSpace(rec[i]), 64); err != nil {
				err = fmt.Errorf("line %d: %s: %w", line, n, err)
			}
			return v
		}
		var g Group
		g.ID, err = strconv.ParseInt(strings.TrimSpace(rec[col["group_id"]]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: group_id: %w", line, err)
		}
		g.RA = float(col["ra"], "ra")
		g.Dec = float(col["dec"], "dec")
		g.Z = float(zCol, "z")
		g.DA = float(col["D_A"], "D_A")
		g.DL = float(col["D_L"], "D_L")
		if hasNGal {
			g.NGal = int(float(nGalCol, "Ngal"))
		}
		if err != nil {
			return nil, err
		}
		t = append(t, g)
	}
}

// Lookup returns the first group with the given id.
func (t Table) Lookup(id int64) (Group, error) {
	for _, g := range t {
		if g.ID == id {
			return g, nil
		}
	}
	return Group{}, fmt.Errorf("%w: %d", ErrNoSuchGroup, id)
}

// Distances returns distances for the first group with the given id.
func (t Table) Distances(id int64) (Distances, error) {
	g, err := t.Lookup(id)
	return g.Distances, err
}

// Selection chooses groups for a search.  A nil field does not select.
type Selection struct {
	ZMax    *float64
	NGalMax *int
	// RAExclude is a range of RA in degrees, lo to hi.  Groups with
	// lo <= RA <= hi are not selected.
	RAExclude *[2]float64
}

// Selects reports whether g passes the selection.
func (s Selection) Selects(g Group) bool {
	if s.ZMax != nil && g.Z > *s.ZMax {
		return false
	}
	if s.NGalMax != nil && g.NGal > *s.NGalMax {
		return false
	}
	if x := s.RAExclude; x != nil && g.RA >= x[0] && g.RA <= x[1] {
		return false
	}
	return true
}

// Select returns groups of t passing s, in table order.
func (t Table) Select(s Selection) Table {
	var sel Table
	for _, g := range t {
		if s.Selects(g) {
			sel = append(sel, g)
		}
	}
	return sel
}
