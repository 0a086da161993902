// Public domain.

// Package coadd reads deepCoadd measurement tables and exposure headers
// from a directory tree of FITS files.
//
// The layout is
//
//	<root>/HSC-<band>/<tract>/<p0>-<p1>/meas.fits
//	<root>/HSC-<band>/<tract>/<p0>-<p1>/calexp.fits
//
// HDU 1 of meas.fits is a binary table of source measurements.  The
// primary header of calexp.fits has FLUXMAG0 and optionally the CD
// matrix of a linear WCS.
package coadd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"

	"github.com/astrogo/fitsio"

	"github.com/soniakeys/hscana/internal/hscat"
	"github.com/soniakeys/hscana/internal/skymap"
	"github.com/soniakeys/hscana/internal/wcs"
)

// ErrNoTile is returned for a tile and band with no files in the tree.
var ErrNoTile = errors.New("no such tile")

// ErrNoWCS is returned by FetchWCS when the exposure header has no CD
// matrix.
var ErrNoWCS = errors.New("exposure has no CD matrix")

// File names within a tile directory.
const (
	MeasFile   = "meas.fits"
	CalexpFile = "calexp.fits"
)

// Dir is a coadd tree rooted at a directory.  It implements hscat.Store.
type Dir string

// Path returns the path of a file of a tile and band.
func (d Dir) Path(tile skymap.Tile, band, file string) string {
	return filepath.Join(string(d), "HSC-"+band, strconv.Itoa(tile.Tract), tile.Dir(), file)
}

func (d Dir) open(tile skymap.Tile, band, file string) (*os.File, *fitsio.File, error) {
	fn := d.Path(tile, band, file)
	f, err := os.Open(fn)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s band %s", ErrNoTile, tile, band)
		}
		return nil, nil, err
	}
	ff, err := fitsio.Open(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", fn, err)
	}
	return f, ff, nil
}

// row builds a struct type for scanning the columns of a schema, one
// field per column in hscat.Source field order.
func row(s hscat.Schema) reflect.Type {
	cols := s.Columns()
	types := []reflect.Type{
		reflect.TypeOf(int64(0)), reflect.TypeOf(int64(0)), // id, parent
		reflect.TypeOf(0.), reflect.TypeOf(0.), // coord
	}
	for i := 0; i < 6; i++ {
		types = append(types, reflect.TypeOf(false))
	}
	for len(types) < len(cols) {
		types = append(types, reflect.TypeOf(0.))
	}
	fields := make([]reflect.StructField, len(cols))
	for i, c := range cols {
		fields[i] = reflect.StructField{
			Name: "F" + strconv.Itoa(i),
			Type: types[i],
			Tag:  reflect.StructTag(`fits:"` + c + `"`),
		}
	}
	return reflect.StructOf(fields)
}

func source(v reflect.Value) hscat.Source {
	f := func(i int) reflect.Value { return v.Field(i) }
	return hscat.Source{
		ID:            f(0).Int(),
		Parent:        f(1).Int(),
		RA:            f(2).Float(),
		Dec:           f(3).Float(),
		FlagBad:       f(4).Bool(),
		FlagEdge:      f(5).Bool(),
		FlagInterp:    f(6).Bool(),
		FlagCR:        f(7).Bool(),
		FlagSaturated: f(8).Bool(),
		FlagBright:    f(9).Bool(),
		Extendedness:  f(10).Float(),
		Flux:          f(11).Float(),
		Ixx:           f(12).Float(),
		Iyy:           f(13).Float(),
		Ixy:           f(14).Float(),
	}
}

// FetchCatalog reads the measurement table of a tile and band.
func (d Dir) FetchCatalog(tile skymap.Tile, band string, s hscat.Schema) (hscat.Table, error) {
	f, ff, err := d.open(tile, band, MeasFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	defer ff.Close()
	if len(ff.HDUs()) < 2 {
		return nil, fmt.Errorf("%s: no table HDU", f.Name())
	}
	tbl, ok := ff.HDU(1).(*fitsio.Table)
	if !ok {
		return nil, fmt.Errorf("%s: HDU 1 is not a table", f.Name())
	}
	for _, c := range s.Columns() {
		if tbl.Index(c) < 0 {
			return nil, fmt.Errorf("%w: %s: no column %s", hscat.ErrSchemaMismatch, f.Name(), c)
		}
	}
	n := tbl.NumRows()
	rows, err := tbl.Read(0, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	defer rows.Close()
	t := make(hscat.Table, 0, n)
	rv := reflect.New(row(s))
	for rows.Next() {
		if err := rows.Scan(rv.Interface()); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", f.Name(), len(t), err)
		}
		t = append(t, source(rv.Elem()))
	}
	return t, rows.Err()
}

func header(d Dir, tile skymap.Tile, band string) (*fitsio.Header, string, error) {
	f, ff, err := d.open(tile, band, CalexpFile)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	defer ff.Close()
	return ff.HDU(0).Header(), f.Name(), nil
}

// number returns a numeric header value as a float.
func number(h *fitsio.Header, key string) (float64, bool) {
	c := h.Get(key)
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// FetchCalibration reads FLUXMAG0 of the coadd exposure.
func (d Dir) FetchCalibration(tile skymap.Tile, band string) (hscat.Calibration, error) {
	h, fn, err := header(d, tile, band)
	if err != nil {
		return nil, err
	}
	fm0, ok := number(h, "FLUXMAG0")
	if !ok {
		return nil, fmt.Errorf("%s: no FLUXMAG0", fn)
	}
	return hscat.FluxMag0(fm0), nil
}

// FetchWCS reads the CD matrix of the coadd exposure.
func (d Dir) FetchWCS(tile skymap.Tile, band string) (hscat.Linearizer, error) {
	h, fn, err := header(d, tile, band)
	if err != nil {
		return nil, err
	}
	var cd [4]float64
	for i, k := range []string{"CD1_1", "CD1_2", "CD2_1", "CD2_2"} {
		var ok bool
		if cd[i], ok = number(h, k); !ok {
			return nil, fmt.Errorf("%w: %s: %s", ErrNoWCS, fn, k)
		}
	}
	l, err := wcs.NewLinear(cd[0], cd[1], cd[2], cd[3])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return l, nil
}
