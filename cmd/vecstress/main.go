package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/eigerco/rawvec/internal/stress"
	"github.com/eigerco/rawvec/pkg/alloc"
	"github.com/eigerco/rawvec/pkg/log"
	"github.com/eigerco/rawvec/pkg/vecstore"
)

// main runs a randomized workload against vec.Vec and verifies that every
// element and every allocation is released exactly once.
// go run main.go -ops 1000000 -allocator libc
func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the process exit code. Logging is set up before the flags and
// the config file are read so that their errors are reported too.
func run(args []string, out io.Writer) int {
	log.Init(log.Options{LogLevel: zerolog.InfoLevel, Type: log.ConsoleLogger, Out: out})
	if err := runWorkload(args, out); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.Root.Error().Err(err).Msg("vecstress failed")
		return 1
	}
	return 0
}

func runWorkload(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("vecstress", flag.ContinueOnError)
	fs.SetOutput(out)
	configFile := fs.String("config", "", "JSON config file")
	ops := fs.Int("ops", 0, "Number of operations")
	seed := fs.Uint64("seed", 0, "Random seed")
	allocator := fs.String("allocator", "", "Allocator: heap or libc")
	dbPath := fs.String("db", "", "Pebble directory to snapshot the final vector into")
	logLevel := fs.String("log-level", "", "Log level")
	logJSON := fs.Bool("log-json", false, "Log as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := stress.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = stress.LoadConfig(*configFile); err != nil {
			return err
		}
	}

	// Flags given on the command line override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ops":
			cfg.Ops = *ops
		case "seed":
			cfg.Seed = *seed
		case "allocator":
			cfg.Allocator = *allocator
		case "db":
			cfg.DBPath = *dbPath
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-json":
			cfg.LogJSON = *logJSON
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	opts := log.Options{LogLevel: level, Type: log.ConsoleLogger, Out: out}
	if cfg.LogJSON {
		opts.Type = log.JSONLogger
	}
	log.Init(opts)

	a, err := newAllocator(cfg.Allocator)
	if err != nil {
		return err
	}

	var store *vecstore.Store
	if cfg.DBPath != "" {
		if store, err = vecstore.Open(cfg.DBPath); err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck // best effort on exit
	}

	log.Root.Info().
		Int("ops", cfg.Ops).
		Uint64("seed", cfg.Seed).
		Str("allocator", cfg.Allocator).
		Msg("starting workload")

	rep, err := stress.Run(cfg, a, store)
	logReport(rep)
	return err
}

func newAllocator(name string) (alloc.Allocator, error) {
	switch name {
	case stress.LibcAllocator:
		return alloc.NewLibc()
	default:
		return alloc.Heap{}, nil
	}
}

func logReport(rep stress.Report) {
	log.Root.Info().
		Int("ops", rep.Ops).
		Int("pushes", rep.Pushes).
		Int("pops", rep.Pops).
		Int("inserts", rep.Inserts).
		Int("removes", rep.Removes).
		Int("drains", rep.Drains).
		Int("max_len", rep.MaxLen).
		Int("max_cap", rep.MaxCap).
		Int("made", rep.Made).
		Int("dropped", rep.Dropped).
		Int("allocs", rep.Alloc.Allocs).
		Int("reallocs", rep.Alloc.Reallocs).
		Int("frees", rep.Alloc.Frees).
		Uint64("peak_bytes", uint64(rep.Alloc.PeakBytes)).
		Str("snapshot", rep.Snapshot).
		Msg("workload finished")
}
