// Public domain.

// Package hscat builds source catalogs for survey tiles, derives size,
// magnitude and surface brightness for each source, and applies the
// selection cuts used to find low surface brightness galaxy candidates.
package hscat

import (
	"errors"
)

// ErrSchemaMismatch is returned when a raw measurement table lacks an
// expected column.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Raw column names.
const (
	ColID             = "id"
	ColParent         = "parent"
	ColCoordRA        = "coord.ra"
	ColCoordDec       = "coord.dec"
	ColFlagBad        = "flags.pixel.bad"
	ColFlagEdge       = "flags.pixel.edge"
	ColFlagInterp     = "flags.pixel.interpolated.any"
	ColFlagCR         = "flags.pixel.cr.any"
	ColFlagSaturated  = "flags.pixel.saturated.any"
	ColFlagBright     = "flags.pixel.bright.object.any"
	ColExtendedness   = "classification.extendedness"
	DefaultFluxModel  = "cmodel.flux"
	DefaultShapeModel = "shape.hsm.moments"
)

// Source is one row of a measurement table.
//
// RA and Dec are as stored, in radians.  Moments are in pixels squared.
type Source struct {
	ID     int64
	Parent int64
	RA     float64
	Dec    float64

	FlagBad, FlagEdge, FlagInterp     bool
	FlagCR, FlagSaturated, FlagBright bool

	Extendedness  float64
	Flux          float64
	Ixx, Iyy, Ixy float64
}

// Table is a measurement table for one tile and band.
type Table []Source

// Schema names the model columns a measurement table is read from.
type Schema struct {
	FluxModel  string // flux column, cmodel.flux for example
	ShapeModel string // prefix of .xx, .yy, .xy moment columns
}

// DefaultSchema returns the schema of HSC deepCoadd_meas tables.
func DefaultSchema() Schema {
	return Schema{DefaultFluxModel, DefaultShapeModel}
}

// Columns lists the raw columns, in Source field order, that a table
// must have.
func (s Schema) Columns() []string {
	return []string{
		ColID, ColParent, ColCoordRA, ColCoordDec,
		ColFlagBad, ColFlagEdge, ColFlagInterp,
		ColFlagCR, ColFlagSaturated, ColFlagBright,
		ColExtendedness, s.FluxModel,
		s.ShapeModel + ".xx", s.ShapeModel + ".yy", s.ShapeModel + ".xy",
	}
}

// value returns the value of a categorical column as a float, with
// flags as 0 or 1.  ok is false for columns that are not categorical.
func (s *Source) value(col string) (v float64, ok bool) {
	b2f := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	switch col {
	case ColParent:
		return float64(s.Parent), true
	case ColExtendedness:
		return s.Extendedness, true
	case ColFlagBad:
		return b2f(s.FlagBad), true
	case ColFlagEdge:
		return b2f(s.FlagEdge), true
	case ColFlagInterp:
		return b2f(s.FlagInterp), true
	case ColFlagCR:
		return b2f(s.FlagCR), true
	case ColFlagSaturated:
		return b2f(s.FlagSaturated), true
	case ColFlagBright:
		return b2f(s.FlagBright), true
	}
	return 0, false
}
