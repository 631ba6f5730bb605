package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/joshuapare/blockkit/blockmetrics"
	"github.com/joshuapare/blockkit/blockstore"
	"github.com/joshuapare/blockkit/internal/logger"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	blockSize  int
	metricsOut bool
)

var rootCmd = &cobra.Command{
	Use:   "blockctl",
	Short: "Drive and inspect typed block arenas",
	Long: `blockctl exercises a blockstore arena: it replays allocation scripts,
runs randomized workloads with invariant checking after every step, and prints
the resulting block map, usage and operation counters.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose && !quiet {
			logger.Init(logger.Options{Enabled: true, Level: slog.LevelDebug})
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		IntVarP(&blockSize, "block-size", "b", blockstore.DefaultBlockSize, "Elements per block")
	rootCmd.PersistentFlags().
		BoolVar(&metricsOut, "metrics", false, "Print the final state in Prometheus text format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newStorage builds the int arena every subcommand drives.
func newStorage() (*blockstore.Storage[int], error) {
	s, err := blockstore.NewWithConfig(blockstore.Config[int]{
		BlockSize: blockSize,
		Logger:    logger.L,
		OnGrow: func(blocks int) {
			printVerbose("grow: +%d blocks\n", blocks)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}
	return s, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printMap prints the block map, one run per line.
func printMap(s *blockstore.Storage[int]) error {
	if jsonOut {
		raw, err := s.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode block map: %w", err)
		}
		return printJSON(json.RawMessage(raw))
	}

	printInfo("Block map (%d blocks of %d, generation %d):\n", s.NumBlocks(), s.BlockSize(), s.Generation())
	for _, r := range s.Runs() {
		end := r.Start + r.Blocks
		if r.Free {
			printInfo("  [%5d, %5d)  free\n", r.Start, end)
			continue
		}
		state := ""
		if r.Borrowed {
			state = "  borrowed"
		}
		printInfo("  [%5d, %5d)  owned  %d/%d%s\n", r.Start, end, r.Len, r.Blocks*s.BlockSize(), state)
	}
	return nil
}

// report is the summary printed at the end of replay and simulate.
type report struct {
	Usage blockstore.Usage `json:"usage"`
	Stats blockstore.Stats `json:"stats"`
}

// printReport prints usage and counters, and the metrics exposition when
// --metrics is set.
func printReport(s *blockstore.Storage[int]) error {
	u, st := s.Usage(), s.Stats()

	if metricsOut {
		return printMetrics(s)
	}
	if jsonOut {
		return printJSON(report{Usage: u, Stats: st})
	}

	elemBytes := uint64(strconv.IntSize / 8)

	printInfo("\nUsage:\n")
	printInfo("  Block size:        %d elements\n", u.BlockSize)
	printInfo("  Generation:        %d\n", u.Generation)
	printInfo("  Blocks:            %s (%s allocated, %s free)\n",
		humanize.Comma(int64(u.Blocks)),
		humanize.Comma(int64(u.AllocatedBlocks)),
		humanize.Comma(int64(u.FreeBlocks)))
	printInfo("  Runs:              %s allocated, %s free, %d borrowed\n",
		humanize.Comma(int64(u.ActiveRuns)),
		humanize.Comma(int64(u.FreeRuns)),
		u.BorrowedRuns)
	printInfo("  Elements:          %s live of %s slots (%s)\n",
		humanize.Comma(int64(u.LiveElements)),
		humanize.Comma(int64(u.Capacity)),
		humanize.IBytes(uint64(u.Capacity)*elemBytes))
	if u.Capacity > 0 {
		printInfo("  Fill:              %.1f%%\n", 100*float64(u.LiveElements)/float64(u.Capacity))
	}

	printInfo("\nOperations:\n")
	printInfo("  Create:            %s\n", humanize.Comma(int64(st.CreateCalls)))
	printInfo("  Get:               %s\n", humanize.Comma(int64(st.GetCalls)))
	printInfo("  Remove:            %s\n", humanize.Comma(int64(st.RemoveCalls)))
	printInfo("  Rejected:          %s\n", humanize.Comma(int64(st.Rejected)))
	printInfo("  Grows:             %s (%s blocks)\n",
		humanize.Comma(int64(st.Grows)), humanize.Comma(int64(st.GrownBlocks)))
	printInfo("  Splits:            %s\n", humanize.Comma(int64(st.Splits)))
	printInfo("  Coalesces:         %s forward, %s backward\n",
		humanize.Comma(int64(st.CoalesceForward)), humanize.Comma(int64(st.CoalesceBackward)))
	printInfo("  Clears:            %s\n", humanize.Comma(int64(st.Clears)))
	printInfo("  Dropped elements:  %s\n", humanize.Comma(int64(st.Drops)))
	return nil
}

// printMetrics gathers the storage's collector and writes the text exposition
// format to stdout.
func printMetrics(s *blockstore.Storage[int]) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(blockmetrics.NewCollector("blockctl", s)); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}
	mfs, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
