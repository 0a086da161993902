// Public domain.

// Package config loads program settings from a config file, environment
// variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/soniakeys/hscana/astro"
	"github.com/soniakeys/hscana/internal/groups"
	"github.com/soniakeys/hscana/internal/hscat"
	"github.com/soniakeys/hscana/internal/search"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Name and EnvPrefix locate settings outside of flags.
const (
	Name      = "hscana"
	EnvPrefix = "HSCANA"
)

// Bands are the HSC broad band filters.
const Bands = "GRIZY"

// Config holds all program settings.
type Config struct {
	Data struct {
		Root    string // deepCoadd tree
		Groups  string // group table CSV
		Skymap  string // tile manifest CSV
		Results string // sqlite database
	}
	Catalog struct {
		Band       string
		UseWCS     bool
		PixelScale float64
		Schema     hscat.Schema
	}
	Cuts   hscat.CutConfig
	Search struct {
		BoxWidthMpc float64
		Selection   groups.Selection
	}
	Logging struct {
		Level  string
		Format string
	}
}

// New returns a viper instance with defaults, reading HSCANA_ prefixed
// environment variables.  The config file is hscana.yaml in the working
// directory unless file is given.
func New(file string) *viper.Viper {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data.root", "deepCoadd")
	v.SetDefault("data.groups", "group_info.csv")
	v.SetDefault("data.skymap", "skymap.csv")
	v.SetDefault("data.results", "hscana.db")
	v.SetDefault("catalog.band", "I")
	v.SetDefault("catalog.use_wcs", false)
	v.SetDefault("catalog.pixel_scale", astro.HSCPixelScale)
	v.SetDefault("catalog.flux_model", hscat.DefaultFluxModel)
	v.SetDefault("catalog.shape_model", hscat.DefaultShapeModel)
	v.SetDefault("search.box_width_mpc", search.DefaultBoxWidth)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	return v
}

// Read reads the config file of v if there is one.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load decodes and validates settings from v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	c.Data.Root = v.GetString("data.root")
	c.Data.Groups = v.GetString("data.groups")
	c.Data.Skymap = v.GetString("data.skymap")
	c.Data.Results = v.GetString("data.results")
	c.Catalog.Band = strings.ToUpper(v.GetString("catalog.band"))
	c.Catalog.UseWCS = v.GetBool("catalog.use_wcs")
	c.Catalog.PixelScale = v.GetFloat64("catalog.pixel_scale")
	c.Catalog.Schema = hscat.Schema{
		FluxModel:  v.GetString("catalog.flux_model"),
		ShapeModel: v.GetString("catalog.shape_model"),
	}
	c.Search.BoxWidthMpc = v.GetFloat64("search.box_width_mpc")
	c.Logging.Level = v.GetString("logging.level")
	c.Logging.Format = v.GetString("logging.format")

	var err error
	if c.Cuts, err = cuts(v); err != nil {
		return nil, err
	}
	if c.Search.Selection, err = selection(v); err != nil {
		return nil, err
	}
	if err = c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func cuts(v *viper.Viper) (c hscat.CutConfig, err error) {
	def := hscat.DefaultCuts()
	c.Flags = def.Flags
	if v.IsSet("cuts.categorical") {
		var fs []struct {
			Column string
			Value  *float64
		}
		if err = v.UnmarshalKey("cuts.categorical", &fs); err != nil {
			return c, fmt.Errorf("%w: cuts.categorical: %v", ErrInvalid, err)
		}
		c.Flags = make([]hscat.FlagCut, len(fs))
		for i, f := range fs {
			c.Flags[i] = hscat.FlagCut{Column: f.Column, Value: f.Value}
		}
	}
	for _, t := range []struct {
		key string
		p   **float64
		def *float64
	}{
		{"cuts.sb_min", &c.SBMin, def.SBMin},
		{"cuts.sb_max", &c.SBMax, def.SBMax},
		{"cuts.size_min", &c.SizeMin, def.SizeMin},
		{"cuts.absmag_max", &c.AbsMagMax, def.AbsMagMax},
	} {
		if *t.p, err = threshold(v, t.key, t.def); err != nil {
			return
		}
	}
	return
}

// threshold returns def if key is absent and nil if it is null or set to
// none or off.
func threshold(v *viper.Viper, key string, def *float64) (*float64, error) {
	raw := v.Get(key)
	if raw == nil {
		// IsSet is false for a null value, but AllKeys still lists it.
		if slices.Contains(v.AllKeys(), key) {
			return nil, nil
		}
		return def, nil
	}
	if s, ok := raw.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "none", "off", "":
			return nil, nil
		}
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return &f, nil
}

func selection(v *viper.Viper) (s groups.Selection, err error) {
	if s.ZMax, err = threshold(v, "search.z_max", nil); err != nil {
		return
	}
	if v.IsSet("search.ngal_max") {
		n, err := cast.ToIntE(v.Get("search.ngal_max"))
		if err != nil {
			return s, fmt.Errorf("%w: search.ngal_max: %v", ErrInvalid, err)
		}
		s.NGalMax = &n
	}
	if v.IsSet("search.ra_exclude") {
		var vals []interface{}
		switch raw := v.Get("search.ra_exclude").(type) {
		case string:
			for _, f := range strings.Split(raw, ",") {
				vals = append(vals, strings.TrimSpace(f))
			}
		default:
			if vals, err = cast.ToSliceE(raw); err != nil {
				return s, fmt.Errorf("%w: search.ra_exclude: %v", ErrInvalid, err)
			}
		}
		if len(vals) != 2 {
			return s, fmt.Errorf("%w: search.ra_exclude wants [lo, hi]", ErrInvalid)
		}
		var r [2]float64
		for i, x := range vals {
			if r[i], err = cast.ToFloat64E(x); err != nil {
				return s, fmt.Errorf("%w: search.ra_exclude: %v", ErrInvalid, err)
			}
		}
		s.RAExclude = &r
	}
	return s, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if len(c.Catalog.Band) != 1 || !strings.Contains(Bands, c.Catalog.Band) {
		return fmt.Errorf("%w: band %q not one of %s", ErrInvalid, c.Catalog.Band, Bands)
	}
	if !(c.Catalog.PixelScale > 0) {
		return fmt.Errorf("%w: pixel scale %g", ErrInvalid, c.Catalog.PixelScale)
	}
	if c.Catalog.Schema.FluxModel == "" || c.Catalog.Schema.ShapeModel == "" {
		return fmt.Errorf("%w: empty flux or shape model", ErrInvalid)
	}
	if !(c.Search.BoxWidthMpc > 0) {
		return fmt.Errorf("%w: box width %g Mpc", ErrInvalid, c.Search.BoxWidthMpc)
	}
	if r := c.Search.Selection.RAExclude; r != nil && r[0] > r[1] {
		return fmt.Errorf("%w: ra_exclude %g > %g", ErrInvalid, r[0], r[1])
	}
	if err := c.Cuts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
