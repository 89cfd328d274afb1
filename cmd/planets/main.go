// Command planets prints approximate heliocentric longitudes of the planets.
//
//	planets positions --planet Mars --date 2024-03-01
//	planets track --planet Earth --start 2024-01-01 --step-days 30 --count 12
//	planets distance --from Earth --to Mars --date now
//	planets catalog --format json
//
// With --server the commands query a running ephemeris-server instead of
// computing locally.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/planet-positions/core"
	"github.com/signalsfoundry/planet-positions/internal/dateparse"
	"github.com/signalsfoundry/planet-positions/internal/logging"
	"github.com/signalsfoundry/planet-positions/internal/observability"
	"github.com/signalsfoundry/planet-positions/internal/render"
	"github.com/signalsfoundry/planet-positions/kb"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	catalogPath string
	formula     string
	format      string
	logLevel    string
	server      string
	timeout     time.Duration

	clock           func() time.Time
	log             logging.Logger
	shutdownTracing func(context.Context) error
}

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// execute runs one command line. Tracing is flushed on every exit path,
// including failed commands, which cobra's post-run hooks skip.
func execute(args []string, out, errOut io.Writer) error {
	root, opts := newRootCmd(out, errOut)
	root.SetArgs(args)
	defer func() {
		observability.ShutdownWithTimeout(context.Background(), opts.shutdownTracing, opts.log)
	}()
	return root.Execute()
}

func newRootCmd(out, errOut io.Writer) (*cobra.Command, *options) {
	opts := &options{clock: time.Now}

	root := &cobra.Command{
		Use:           "planets",
		Short:         "Circular-orbit planet positions",
		Long:          `Compute approximate heliocentric ecliptic longitudes, distances and periods of the planets using a circular-orbit model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logCfg := logging.ConfigFromEnv()
			if opts.logLevel != "" {
				logCfg.Level = opts.logLevel
			}
			logCfg.Output = errOut
			opts.log = logging.New(logCfg)

			tracingCfg := observability.TracingConfigFromEnv("planets")
			tracingCfg.Writer = errOut
			shutdown, err := observability.InitTracing(cmd.Context(), tracingCfg, opts.log)
			if err != nil {
				return err
			}
			opts.shutdownTracing = shutdown
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.catalogPath, "catalog", os.Getenv("PLANETS_CATALOG"), "path to a JSON planet catalog (default built-in)")
	flags.StringVar(&opts.formula, "formula", os.Getenv("PLANETS_FORMULA"), "position formula: additive or multiplicative")
	flags.StringVarP(&opts.format, "format", "o", "text", "output format: text or json")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	flags.StringVar(&opts.server, "server", "", "address of an ephemeris-server to query instead of computing locally")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "deadline for remote calls")

	root.AddCommand(
		newPositionsCmd(opts),
		newTrackCmd(opts),
		newDistanceCmd(opts),
		newCatalogCmd(opts),
	)
	return root, opts
}

func newPositionsCmd(opts *options) *cobra.Command {
	var planet, date string
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Show planet positions on a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := render.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			b, err := opts.backend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			obs, err := b.Positions(cmd.Context(), planet, date)
			if err != nil {
				return err
			}
			return render.Observations(cmd.OutOrStdout(), format, obs)
		},
	}
	cmd.Flags().StringVarP(&planet, "planet", "p", kb.SelectAll, `planet name (case-sensitive) or "all"`)
	cmd.Flags().StringVarP(&date, "date", "d", dateparse.Now, `date as YYYY-MM-DD (UTC) or "now"`)
	return cmd
}

func newTrackCmd(opts *options) *cobra.Command {
	var (
		planet, start string
		stepDays      float64
		count         int
	)
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Show planet positions at evenly spaced dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := render.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			if stepDays <= 0 || stepDays > 100000 {
				return fmt.Errorf("--step-days must be in (0, 100000], got %v", stepDays)
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			b, err := opts.backend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			step := time.Duration(stepDays * float64(24*time.Hour))
			obs, err := b.Track(cmd.Context(), planet, start, step, count)
			if err != nil {
				return err
			}
			return render.Observations(cmd.OutOrStdout(), format, obs)
		},
	}
	cmd.Flags().StringVarP(&planet, "planet", "p", kb.SelectAll, `planet name (case-sensitive) or "all"`)
	cmd.Flags().StringVar(&start, "start", dateparse.Now, `first date as YYYY-MM-DD (UTC) or "now"`)
	cmd.Flags().Float64Var(&stepDays, "step-days", 1, "days between samples")
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of samples")
	return cmd
}

func newDistanceCmd(opts *options) *cobra.Command {
	var from, to, date string
	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Show the distance and light time between two planets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := render.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			b, err := opts.backend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			sep, err := b.Separation(cmd.Context(), from, to, date)
			if err != nil {
				return err
			}
			return render.Separation(cmd.OutOrStdout(), format, sep)
		},
	}
	cmd.Flags().StringVar(&from, "from", "Earth", "observing planet")
	cmd.Flags().StringVar(&to, "to", "Mars", "target planet")
	cmd.Flags().StringVarP(&date, "date", "d", dateparse.Now, `date as YYYY-MM-DD (UTC) or "now"`)
	return cmd
}

func newCatalogCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the planets in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := render.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			b, err := opts.backend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			defs, err := b.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			return render.Catalog(cmd.OutOrStdout(), format, defs)
		},
	}
}

// backend picks the local evaluator or a remote server. Catalog and formula
// belong to the server in remote mode, so passing them as flags is an error
// and values inherited from the environment are ignored with a warning.
func (o *options) backend(cmd *cobra.Command) (backend, error) {
	ctx := cmd.Context()
	if o.server != "" {
		for _, name := range []string{"catalog", "formula"} {
			f := cmd.Flag(name)
			if f == nil || f.Value.String() == "" {
				continue
			}
			if f.Changed {
				return nil, fmt.Errorf("--%s cannot be combined with --server; the server owns its catalog and formula", name)
			}
			o.log.Warn(ctx, "ignoring local setting in remote mode",
				logging.String("flag", name),
				logging.String("value", f.Value.String()),
			)
		}
		remote, err := dialRemote(o.server, o.timeout)
		if err != nil {
			return nil, err
		}
		return remote, nil
	}

	formula, err := core.ParseFormula(o.formula)
	if err != nil {
		return nil, err
	}
	store, err := o.loadStore(ctx)
	if err != nil {
		return nil, err
	}
	return &localBackend{
		store: store,
		eph:   core.NewEphemeris(store, core.WithPositionFormula(formula), core.WithLogger(o.log)),
		clock: o.clock,
	}, nil
}

func (o *options) loadStore(ctx context.Context) (*kb.KnowledgeBase, error) {
	if o.catalogPath == "" {
		return kb.NewReferenceKnowledgeBase(), nil
	}
	f, err := os.Open(o.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	store := kb.NewKnowledgeBase()
	defs, err := core.LoadCatalog(store, f)
	if err != nil {
		return nil, err
	}
	o.log.Debug(ctx, "loaded planet catalog",
		logging.String("path", o.catalogPath),
		logging.Int("count", len(defs)),
	)
	return store, nil
}
