package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edp1096/toy-opics/internal/consts"
	"github.com/edp1096/toy-opics/internal/logging"
	"github.com/edp1096/toy-opics/pkg/circuit"
	"github.com/edp1096/toy-opics/pkg/library"
	"github.com/edp1096/toy-opics/pkg/netlist"
	"github.com/edp1096/toy-opics/pkg/plot"
	"github.com/edp1096/toy-opics/pkg/processor"
)

type options struct {
	output  string
	noShow  bool
	library string
	table   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "opics <netlist>",
		Short: "Simulate a photonic netlist and plot its S-parameters",
		Long: `Reads a SiEPIC-style SPICE netlist, simulates the network over the
.ona sweep and plots magnitude and phase from the analyzer input to
every analyzer output.

Logging is configured with LOG_LEVEL (debug, info, warn, error) and
LOG_FORMAT (text, json).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "plot image path (default: temporary file)")
	flags.BoolVar(&opts.noShow, "no-show", false, "write the plot without opening a viewer")
	flags.StringVarP(&opts.library, "library", "l", "", "component library YAML merged over the built-in models")
	flags.BoolVar(&opts.table, "table", false, "print the S-parameter table")

	return cmd
}

func run(ctx context.Context, w io.Writer, path string, opts *options) error {
	start := time.Now()
	fmt.Fprintln(w, path)

	log := logging.NewFromEnv().With(logging.String("netlist", path))

	data, err := netlist.ParseFile(path)
	if err != nil {
		return err
	}
	log.Debug(ctx, "netlist parsed",
		logging.String("title", data.Title),
		logging.Int("circuits", len(data.Circuits)))

	registry, err := library.Default()
	if err != nil {
		return err
	}
	if opts.library != "" {
		if err := registry.LoadFile(opts.library); err != nil {
			return err
		}
	}

	proc := processor.New(path, circuit.New, registry, consts.C, data, processor.WithLogger(log))
	if err := proc.SimulateNetwork(ctx); err != nil {
		return err
	}
	log.Info(ctx, "simulation finished",
		logging.Int("networks", proc.GlobalNetlist.Len()),
		logging.String("elapsed", time.Since(start).String()))

	_, nets, _ := proc.GlobalNetlist.Last()
	ports, err := processor.ResolvePorts(nets, data.InpNet, data.OutNets)
	if err != nil {
		return err
	}

	if opts.table {
		if err := proc.SimResult.WriteTable(w, ports); err != nil {
			return err
		}
	}

	out, err := proc.SimResult.PlotSParameters(ports, !opts.noShow, plot.WithOutput(opts.output))
	if err != nil {
		return err
	}
	if opts.noShow {
		fmt.Fprintf(w, "plot written to %s\n", out)
	}
	log.Info(ctx, "plot written", logging.String("path", out))
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
