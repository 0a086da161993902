// Public domain.

package hscat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCutConfig is returned by CutConfig.Validate.
var ErrCutConfig = errors.New("invalid cut configuration")

// Cut names used in cut records for the physical cuts.
const (
	CutSBMin     = "SB_min"
	CutSBMax     = "SB_max"
	CutSizeMin   = "size_min"
	CutAbsMagMax = "absmag_max"
)

// FlagCut keeps sources whose categorical Column equals Value.  A nil
// Value skips the cut.
//
// Extendedness is compared as a classification, so a Value of 1 keeps
// sources with extendedness > .5.
type FlagCut struct {
	Column string
	Value  *float64
}

func (f FlagCut) keep(s *Source) bool {
	v, _ := s.value(f.Column)
	if f.Column == ColExtendedness {
		return (v > .5) == (*f.Value > .5)
	}
	return v == *f.Value
}

// CutConfig lists all selection cuts.  Flag cuts are applied in slice
// order, then the physical cuts.  A nil threshold skips that cut.
//
// SizeMin and AbsMagMax apply only to catalogs with group context.
type CutConfig struct {
	Flags []FlagCut

	SBMin     *float64 // mag/arcsec^2, keep SB > SBMin
	SBMax     *float64 // mag/arcsec^2, keep SB < SBMax
	SizeMin   *float64 // kpc, keep size > SizeMin
	AbsMagMax *float64 // keep absmag < AbsMagMax
}

func ptr(v float64) *float64 { return &v }

// DefaultCuts returns the standard candidate selection.
func DefaultCuts() CutConfig {
	return CutConfig{
		Flags: []FlagCut{
			{ColFlagBad, ptr(0)},
			{ColFlagEdge, ptr(0)},
			{ColFlagInterp, ptr(0)},
			{ColFlagCR, ptr(0)},
			{ColFlagSaturated, ptr(0)},
			{ColExtendedness, ptr(1)},
			{ColParent, ptr(0)},
			{ColFlagBright, ptr(0)},
		},
		SizeMin:   ptr(1),
		SBMin:     ptr(24),
		SBMax:     ptr(30),
		AbsMagMax: ptr(-13),
	}
}

// Validate checks that flag cuts name categorical columns and that the
// surface brightness window is not empty.
func (c CutConfig) Validate() error {
	var s Source
	seen := map[string]bool{}
	for _, f := range c.Flags {
		if _, ok := s.value(f.Column); !ok {
			return fmt.Errorf("%w: %q is not a categorical column", ErrCutConfig, f.Column)
		}
		if seen[f.Column] {
			return fmt.Errorf("%w: duplicate cut on %q", ErrCutConfig, f.Column)
		}
		seen[f.Column] = true
	}
	if c.SBMin != nil && c.SBMax != nil && *c.SBMin >= *c.SBMax {
		return fmt.Errorf("%w: SB_min %g >= SB_max %g", ErrCutConfig, *c.SBMin, *c.SBMax)
	}
	return nil
}

// Record is ordered, append-only bookkeeping of a count per name.  It
// records how many sources each cut removed, or how many NaN values a
// derived column had before its cut.  The zero value is an empty record.
type Record struct {
	names []string
	n     map[string]int
}

func (r *Record) add(name string, n int) {
	if r.n == nil {
		r.n = map[string]int{}
	}
	if _, ok := r.n[name]; !ok {
		r.names = append(r.names, name)
	}
	r.n[name] = n
}

// Get returns the count recorded under name.
func (r Record) Get(name string) (n int, ok bool) {
	n, ok = r.n[name]
	return
}

// Names returns recorded names in the order they were recorded.
func (r Record) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of names recorded.
func (r Record) Len() int {
	return len(r.names)
}

func (r Record) String() string {
	var b strings.Builder
	for i, n := range r.names {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", n, r.n[n])
	}
	return b.String()
}
