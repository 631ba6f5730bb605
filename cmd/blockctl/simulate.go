package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/joshuapare/blockkit/blockstore"
	"github.com/joshuapare/blockkit/internal/logger"
)

var (
	simSeed      int64
	simOps       int
	simMaxSize   int
	simClearRate float64
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().Int64Var(&simSeed, "seed", 42, "Random seed")
	cmd.Flags().IntVar(&simOps, "ops", 10000, "Number of operations")
	cmd.Flags().IntVar(&simMaxSize, "max-size", 256, "Largest run requested, in elements")
	cmd.Flags().Float64Var(&simClearRate, "clear-rate", 0.001, "Probability of a clear per operation")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a randomized allocation workload",
		Long: `The simulate command drives a fresh arena with a seeded random mix of
create, push, pop, remove and clear operations, validates the block map after
every operation, and prints the resulting usage and counters.

Example:
  blockctl simulate --ops 100000 --seed 7
  blockctl simulate --block-size 16 --max-size 64 --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate()
		},
	}
	return cmd
}

func runSimulate() error {
	if simOps < 0 {
		return fmt.Errorf("--ops must not be negative, got %d", simOps)
	}
	if simMaxSize <= 0 {
		return fmt.Errorf("--max-size must be positive, got %d", simMaxSize)
	}

	s, err := newStorage()
	if err != nil {
		return err
	}
	defer s.Close()

	printVerbose("Simulating %d operations (seed %d, block size %d)\n", simOps, simSeed, s.BlockSize())

	sim := &simulation{s: s, rng: rand.New(rand.NewSource(simSeed))}
	for step := range simOps {
		if err := sim.step(); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d: block map invalid: %w", step, err)
		}
	}

	logger.Info("simulate: done",
		"ops", simOps,
		"seed", simSeed,
		"live_runs", len(sim.keys),
		"blocks", s.NumBlocks(),
	)

	if verbose && !jsonOut && !metricsOut {
		if err := printMap(s); err != nil {
			return err
		}
	}
	return printReport(s)
}

// simulation holds the keys of the runs a random workload currently owns.
type simulation struct {
	s    *blockstore.Storage[int]
	rng  *rand.Rand
	keys []blockstore.Key
	next int
}

func (sim *simulation) step() error {
	if sim.rng.Float64() < simClearRate {
		sim.s.Clear()
		sim.keys = sim.keys[:0]
		return nil
	}

	op := sim.rng.Intn(100)
	if len(sim.keys) == 0 {
		op = 0
	}
	switch {
	case op < 40:
		sim.keys = append(sim.keys, sim.s.Create(1+sim.rng.Intn(simMaxSize)))

	case op < 65:
		i := sim.rng.Intn(len(sim.keys))
		return sim.withView(i, func(b *blockstore.Block[int]) {
			for n := sim.rng.Intn(b.Cap() + 1); n > 0; n-- {
				sim.next++
				if _, rejected := b.Push(sim.next); rejected {
					break
				}
			}
		})

	case op < 75:
		i := sim.rng.Intn(len(sim.keys))
		return sim.withView(i, func(b *blockstore.Block[int]) {
			for n := sim.rng.Intn(b.Len() + 1); n > 0; n-- {
				b.Pop()
			}
		})

	default:
		i := sim.rng.Intn(len(sim.keys))
		if !sim.s.Remove(sim.keys[i]) {
			return fmt.Errorf("remove of live run %v refused", sim.keys[i])
		}
		last := len(sim.keys) - 1
		sim.keys[i] = sim.keys[last]
		sim.keys = sim.keys[:last]
	}
	return nil
}

func (sim *simulation) withView(i int, fn func(*blockstore.Block[int])) error {
	b, ok := sim.s.Get(sim.keys[i])
	if !ok {
		return fmt.Errorf("get of live run %v refused", sim.keys[i])
	}
	fn(b)
	sim.keys[i] = b.ReturnKey()
	return nil
}
