package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/blockkit/blockstore"
	"github.com/joshuapare/blockkit/internal/logger"
)

func init() {
	rootCmd.AddCommand(newReplayCmd())
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <script>",
		Short: "Replay an allocation script",
		Long: `The replay command runs an allocation script against a fresh arena and
validates the block map after every line. Use "-" to read the script from stdin.

Script lines:
  create <name> <size>   allocate a run for at least size elements
  push <name> <n>        append n elements to the run
  pop <name> [n]         remove the last n elements (default 1)
  remove <name>          free the run
  clear                  free every run and invalidate every name
  map                    print the block map
  # ...                  comment

Example:
  blockctl replay churn.txt --block-size 10
  blockctl replay churn.txt --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args)
		},
	}
	return cmd
}

func runReplay(args []string) error {
	var in io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	s, err := newStorage()
	if err != nil {
		return err
	}
	defer s.Close()

	r := newReplayer(s)
	if err := r.run(in); err != nil {
		return err
	}
	printVerbose("Replayed %d commands\n", r.commands)
	return printReport(s)
}

// replayer executes script commands against one storage, tracking runs by name.
type replayer struct {
	s        *blockstore.Storage[int]
	keys     map[string]blockstore.Key
	next     int // last value pushed
	commands int
}

func newReplayer(s *blockstore.Storage[int]) *replayer {
	return &replayer{s: s, keys: make(map[string]blockstore.Key)}
}

func (r *replayer) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		logger.Debug("replay: command", "line", line, "op", fields[0], "args", fields[1:])
		if err := r.exec(fields); err != nil {
			return fmt.Errorf("line %d: %s: %w", line, fields[0], err)
		}
		if err := r.s.Validate(); err != nil {
			return fmt.Errorf("line %d: block map invalid: %w", line, err)
		}
		r.commands++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}

func (r *replayer) exec(f []string) error {
	switch f[0] {
	case "create":
		if err := checkFields(f, 3, "create <name> <size>"); err != nil {
			return err
		}
		size, err := positive(f[2])
		if err != nil {
			return err
		}
		if _, ok := r.keys[f[1]]; ok {
			return fmt.Errorf("run %q already exists", f[1])
		}
		k := r.s.Create(size)
		r.keys[f[1]] = k
		printVerbose("create %s: blocks [%d, %d)\n", f[1], k.Start(), k.Start()+k.Blocks())

	case "push":
		if err := checkFields(f, 3, "push <name> <n>"); err != nil {
			return err
		}
		n, err := positive(f[2])
		if err != nil {
			return err
		}
		return r.withView(f[1], func(b *blockstore.Block[int]) error {
			for i := range n {
				r.next++
				if _, rejected := b.Push(r.next); rejected {
					r.next--
					logger.Warn("replay: push rejected", "run", f[1], "len", b.Len(), "rejected", n-i)
					printInfo("push %s: run full at %d elements, %d of %d rejected\n", f[1], b.Len(), n-i, n)
					break
				}
			}
			printVerbose("push %s: len %d/%d\n", f[1], b.Len(), b.Cap())
			return nil
		})

	case "pop":
		if len(f) != 2 && len(f) != 3 {
			return fmt.Errorf("usage: pop <name> [n]")
		}
		n := 1
		if len(f) == 3 {
			var err error
			if n, err = positive(f[2]); err != nil {
				return err
			}
		}
		return r.withView(f[1], func(b *blockstore.Block[int]) error {
			popped := make([]int, 0, n)
			for range n {
				v, ok := b.Pop()
				if !ok {
					break
				}
				popped = append(popped, v)
			}
			printVerbose("pop %s: %v\n", f[1], popped)
			return nil
		})

	case "remove":
		if err := checkFields(f, 2, "remove <name>"); err != nil {
			return err
		}
		k, ok := r.keys[f[1]]
		if !ok {
			return fmt.Errorf("unknown run %q", f[1])
		}
		if !r.s.Remove(k) {
			return fmt.Errorf("run %q was not freed", f[1])
		}
		delete(r.keys, f[1])
		printVerbose("remove %s\n", f[1])

	case "clear":
		if err := checkFields(f, 1, "clear"); err != nil {
			return err
		}
		r.s.Clear()
		clear(r.keys)
		printVerbose("clear: generation %d\n", r.s.Generation())

	case "map":
		if err := checkFields(f, 1, "map"); err != nil {
			return err
		}
		return printMap(r.s)

	default:
		return fmt.Errorf("unknown command")
	}
	return nil
}

// withView exchanges the named run's key for a view, runs fn, and stores the
// returned key.
func (r *replayer) withView(name string, fn func(*blockstore.Block[int]) error) error {
	k, ok := r.keys[name]
	if !ok {
		return fmt.Errorf("unknown run %q", name)
	}
	b, ok := r.s.Get(k)
	if !ok {
		return fmt.Errorf("run %q is not accessible", name)
	}
	err := fn(b)
	r.keys[name] = b.ReturnKey()
	return err
}

// checkFields validates the field count of a script line
func checkFields(f []string, expected int, usage string) error {
	if len(f) != expected {
		return fmt.Errorf("expected %d argument(s), got %d\nUsage: %s", expected-1, len(f)-1, usage)
	}
	return nil
}

func positive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("count must be positive, got %d", n)
	}
	return n, nil
}
