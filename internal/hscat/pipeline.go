// Public domain.

package hscat

import (
	"log/slog"
)

// MakeCuts runs the categorical flag cuts and then the surface brightness
// cuts, removing sources from the catalog.  The catalog is read-only
// afterward.
//
// Each cut is applied before the next is evaluated, so counts in the
// returned cut record are measured against the catalog as already
// pruned.  The NaN record holds the number of undefined magnitudes and
// surface brightnesses before the surface brightness cuts.
func (c *Catalog) MakeCuts(cfg CutConfig) (cuts, nans Record, err error) {
	if err = c.check(cfg); err != nil {
		return
	}
	if err = c.flagCuts(cfg, &cuts); err != nil {
		return
	}
	if err = c.sbCuts(cfg, &cuts, &nans); err != nil {
		return
	}
	c.sealed = true
	return
}

// MakeCuts runs the cuts of Catalog.MakeCuts, followed by the physical
// size and absolute magnitude cuts at the group distance.  The NaN record
// additionally holds undefined sizes and absolute magnitudes before their
// cuts.
func (g *GroupCatalog) MakeCuts(cfg CutConfig) (cuts, nans Record, err error) {
	c := g.Catalog
	if err = c.check(cfg); err != nil {
		return
	}
	if err = c.flagCuts(cfg, &cuts); err != nil {
		return
	}
	if err = c.sbCuts(cfg, &cuts, &nans); err != nil {
		return
	}
	nans.add("size", countNaN(g.size))
	if cfg.SizeMin != nil {
		g.size = sentinel(g.size)
		lo := *cfg.SizeMin
		if err = c.cut(CutSizeMin, &cuts, func(i int) bool { return g.size[i] > lo }); err != nil {
			return
		}
	}
	nans.add("absmag", countNaN(g.absmag))
	if cfg.AbsMagMax != nil {
		hi := *cfg.AbsMagMax
		if err = c.cut(CutAbsMagMax, &cuts, func(i int) bool { return g.absmag[i] < hi }); err != nil {
			return
		}
	}
	c.sealed = true
	return
}

func (c *Catalog) check(cfg CutConfig) error {
	if c.sealed {
		return ErrSealed
	}
	return cfg.Validate()
}

func (c *Catalog) flagCuts(cfg CutConfig, cuts *Record) error {
	for _, f := range cfg.Flags {
		if f.Value == nil {
			continue
		}
		if err := c.cut(f.Column, cuts, func(i int) bool { return f.keep(&c.src[i]) }); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) sbCuts(cfg CutConfig, cuts, nans *Record) error {
	nans.add("mag", countNaN(c.mag))
	nans.add("SB", countNaN(c.sb))
	if cfg.SBMin != nil {
		c.sb = sentinel(c.sb)
		lo := *cfg.SBMin
		if err := c.cut(CutSBMin, cuts, func(i int) bool { return c.sb[i] > lo }); err != nil {
			return err
		}
	}
	if cfg.SBMax != nil {
		hi := *cfg.SBMax
		if err := c.cut(CutSBMax, cuts, func(i int) bool { return c.sb[i] < hi }); err != nil {
			return err
		}
	}
	return nil
}

// cut evaluates keep over the current catalog, records the number of
// failing sources under name, and applies the mask.
func (c *Catalog) cut(name string, cuts *Record, keep func(i int) bool) error {
	m := make([]bool, len(c.src))
	fail := 0
	for i := range m {
		if m[i] = keep(i); !m[i] {
			fail++
		}
	}
	if err := c.apply(m); err != nil {
		return err
	}
	cuts.add(name, fail)
	slog.Debug("cut", "tile", c.Tile.String(), "band", c.Band,
		"cut", name, "removed", fail, "remaining", len(c.src))
	return nil
}
