// Public domain.

package hsprog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"
	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
	"github.com/spf13/cobra"

	"github.com/soniakeys/hscana/astro"
	"github.com/soniakeys/hscana/internal/coadd"
	"github.com/soniakeys/hscana/internal/groups"
	"github.com/soniakeys/hscana/internal/hscat"
	"github.com/soniakeys/hscana/internal/results"
	"github.com/soniakeys/hscana/internal/search"
	"github.com/soniakeys/hscana/internal/skymap"
)

func parseFloats(args []string) ([]float64, error) {
	f := make([]float64, len(args))
	for i, a := range args {
		var err error
		if f[i], err = strconv.ParseFloat(a, 64); err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
	}
	return f, nil
}

// position formats ra and dec in degrees, then sexagesimal.
func position(ra, dec float64) string {
	return fmt.Sprintf("%10.5f %9.5f  %.2d %+.1d", ra, dec,
		sexa.FmtRA(unit.RAFromDeg(ra)), sexa.FmtAngle(unit.AngleFromDeg(dec)))
}

func boxCmd(p *program) *cobra.Command {
	return &cobra.Command{
		Use:   "box ra dec width [height]",
		Short: "Display the corners of a sky box, all arguments in degrees",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFloats(args)
			if err != nil {
				return err
			}
			h := f[2]
			if len(f) == 4 {
				h = f[3]
			}
			c, err := astro.SkyBox(f[0], f[1], f[2], h)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, k := range c {
				fmt.Fprintln(w, position(k.RA, k.Dec))
			}
			fmt.Fprintf(w, "diagonal %.2f'\n", astro.Diagonal(c).Min())
			return nil
		},
	}
}

func (p *program) manifest() (*skymap.Manifest, error) {
	return skymap.ReadManifestFile(p.cfg.Data.Skymap)
}

func tilesCmd(p *program) *cobra.Command {
	return &cobra.Command{
		Use:   "tiles ra dec width",
		Short: "List tiles overlapping a square sky box, arguments in degrees",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFloats(args)
			if err != nil {
				return err
			}
			c, err := astro.SquareBox(f[0], f[1], f[2])
			if err != nil {
				return err
			}
			m, err := p.manifest()
			if err != nil {
				return err
			}
			tiles, err := skymap.TilesOverlapping(m, c)
			if err != nil {
				return err
			}
			for _, t := range tiles {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func locateCmd(p *program) *cobra.Command {
	return &cobra.Command{
		Use:   "locate ra dec",
		Short: "Display the tile containing a position in degrees",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFloats(args)
			if err != nil {
				return err
			}
			m, err := p.manifest()
			if err != nil {
				return err
			}
			t, err := m.Find(f[0], f[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
}

func (p *program) builder(g hscat.GroupLookup) *hscat.Builder {
	b := hscat.NewBuilder(coadd.Dir(p.cfg.Data.Root), g)
	b.Schema = p.cfg.Catalog.Schema
	b.Cuts = p.cfg.Cuts
	b.UseWCS = p.cfg.Catalog.UseWCS
	b.PixelScale = p.cfg.Catalog.PixelScale
	return b
}

func catCmd(p *program) *cobra.Command {
	var group int64
	cmd := &cobra.Command{
		Use:   "cat tract patch",
		Short: "Build and filter the catalog of one tile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := skymap.ParseTile(args[0], args[1])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !cmd.Flags().Changed("group") {
				c, cuts, nans, err := p.builder(nil).Build(t, p.cfg.Catalog.Band)
				if err != nil {
					return err
				}
				printSummary(w, c, cuts, nans)
				for _, cd := range results.Candidates(c) {
					fmt.Fprintf(w, "%s  %6.2f %6.2f %5.2f\n",
						position(cd.RA, cd.Dec), cd.Mag, cd.SB, cd.AngSize)
				}
				return nil
			}
			gt, err := groups.ReadFile(p.cfg.Data.Groups)
			if err != nil {
				return err
			}
			g, cuts, nans, err := p.builder(gt).BuildGroup(t, p.cfg.Catalog.Band, group)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "group %d D_A %.1f D_L %.1f z %.4f\n", g.GroupID, g.DA, g.DL, g.Z)
			printSummary(w, g.Catalog, cuts, nans)
			for _, cd := range results.GroupCandidates(g) {
				fmt.Fprintf(w, "%s  %6.2f %6.2f %5.2f %5.2f %6.2f\n",
					position(cd.RA, cd.Dec), cd.Mag, cd.SB, cd.AngSize, *cd.SizeKpc, *cd.AbsMag)
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&group, "group", "g", 0, "galaxy group id for size and absolute magnitude cuts")
	return cmd
}

func printSummary(w io.Writer, c *hscat.Catalog, cuts, nans hscat.Record) {
	fmt.Fprintf(w, "tile %s band %s\n", c.Tile, c.Band)
	fmt.Fprintln(w, "history", c.History())
	fmt.Fprintln(w, "cuts   ", cuts)
	fmt.Fprintln(w, "nan    ", nans)
}

func searchCmd(p *program) *cobra.Command {
	var out string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the tiles around selected galaxy groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gt, err := groups.ReadFile(p.cfg.Data.Groups)
			if err != nil {
				return err
			}
			sel := gt.Select(p.cfg.Search.Selection)
			m, err := p.manifest()
			if err != nil {
				return err
			}
			db, err := results.Open(p.cfg.Data.Results)
			if err != nil {
				return err
			}
			defer db.Close()
			band := p.cfg.Catalog.Band
			run, err := db.NewRun(band, fmt.Sprintf("%d of %d groups, box %g Mpc",
				len(sel), len(gt), p.cfg.Search.BoxWidthMpc))
			if err != nil {
				return err
			}

			bw := io.Discard
			if !quiet {
				bw = cmd.ErrOrStderr()
			}
			bar := progressbar.NewOptions(len(sel),
				progressbar.OptionSetWriter(bw),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("searching groups"),
			)
			var recErr error
			r := &search.Runner{
				Builder:  p.builder(gt),
				Index:    m,
				Band:     band,
				BoxWidth: p.cfg.Search.BoxWidthMpc,
				OnGroup: func(g search.GroupResult) {
					if recErr == nil {
						recErr = record(db, run, band, g)
					}
					bar.Add(1)
				},
			}
			all, err := r.Run(cmd.Context(), sel)
			bar.Finish()
			if err != nil {
				return err
			}
			if recErr != nil {
				return recErr
			}
			if err := writeCandidates(out, all); err != nil {
				return err
			}
			tiles, failed, n := 0, 0, 0
			for i := range all {
				tiles += len(all[i].Tiles)
				failed += all[i].Failed()
				n += all[i].Candidates()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s\n%d groups, %d tiles (%d failed), %d candidates\n",
				run, len(all), tiles, failed, n)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "candidates.txt", "candidate list file")
	f.BoolVarP(&quiet, "quiet", "q", false, "no progress bar")
	f.String("results", "hscana.db", "results database")
	f.Float64("width", search.DefaultBoxWidth, "search box width in Mpc")
	return cmd
}

func record(db *results.DB, run, band string, g search.GroupResult) error {
	id := g.Group.ID
	for _, t := range g.Tiles {
		r := results.TileRecord{GroupID: &id, Tile: t.Tile, Band: band, Cuts: t.Cuts, NaNs: t.NaNs}
		if t.Err != nil {
			r.Err = t.Err
		} else {
			r.Candidates = results.GroupCandidates(t.Catalog)
		}
		if err := db.RecordTile(run, r); err != nil {
			return err
		}
	}
	return nil
}

// writeCandidates writes positions of all candidates, one per line.
func writeCandidates(fn string, all []search.GroupResult) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "ra dec")
	for i := range all {
		for _, t := range all[i].Tiles {
			if t.Catalog == nil {
				continue
			}
			for _, p := range t.Catalog.Coordinates() {
				fmt.Fprintf(w, "%.6f %.6f\n", p[0], p[1])
			}
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
