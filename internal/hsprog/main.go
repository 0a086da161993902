// Public domain.

// Package hsprog is the hscana command line program.
package hsprog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soniakeys/hscana/internal/config"
)

const versionString = "hscana version 0.1 Go source."
const copyrightString = "Public domain."

func Main() {
	defer exit.Handler()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRoot().ExecuteContext(ctx)
	cancel()
	if err != nil {
		exit.Log(err)
	}
}

// program holds settings shared by subcommands, loaded before each
// subcommand runs.
type program struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
}

// NewRoot returns the root command with all subcommands.
func NewRoot() *cobra.Command {
	p := &program{}
	root := &cobra.Command{
		Use:   "hscana",
		Short: "Search HSC coadd catalogs for low surface brightness galaxies",
		Long: `hscana builds source catalogs for HSC deepCoadd tiles, derives size,
magnitude and surface brightness, and applies cuts selecting diffuse
galaxy candidates, optionally at the distance of a galaxy group.`,
		PersistentPreRunE: p.init,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&p.cfgFile, "config", "", "config file (default ./hscana.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")
	pf.StringP("band", "b", "I", "photometric band (G, R, I, Z, Y)")
	pf.String("root", "deepCoadd", "deepCoadd directory tree")
	pf.String("skymap", "skymap.csv", "tile manifest file")
	pf.String("groups", "group_info.csv", "group table file")
	pf.Bool("wcs", false, "transform shape moments with the exposure WCS")

	root.AddCommand(boxCmd(p))
	root.AddCommand(tilesCmd(p))
	root.AddCommand(locateCmd(p))
	root.AddCommand(catCmd(p))
	root.AddCommand(searchCmd(p))
	root.AddCommand(versionCmd())
	return root
}

var flagKeys = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"band":       "catalog.band",
	"root":       "data.root",
	"skymap":     "data.skymap",
	"groups":     "data.groups",
	"wcs":        "catalog.use_wcs",
	"results":    "data.results",
	"width":      "search.box_width_mpc",
}

func (p *program) init(cmd *cobra.Command, _ []string) error {
	p.v = config.New(p.cfgFile)
	for f, k := range flagKeys {
		if fl := cmd.Flags().Lookup(f); fl != nil {
			if err := p.v.BindPFlag(k, fl); err != nil {
				return err
			}
		}
	}
	if err := config.Read(p.v); err != nil {
		return err
	}
	cfg, err := config.Load(p.v)
	if err != nil {
		return err
	}
	p.cfg = cfg
	return setupLogging(cfg, cmd.ErrOrStderr())
}

func setupLogging(cfg *config.Config, w io.Writer) error {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch cfg.Logging.Format {
	case "console":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("invalid log format: %s", cfg.Logging.Format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version and copyright",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString)
			fmt.Fprintln(cmd.OutOrStdout(), copyrightString)
		},
	}
}
