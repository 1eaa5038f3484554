// Package main provides the entry point for uopsim.
// uopsim replays micro-op traces, one per core, through the timing models
// and reports cycles, CPI and CPI stacks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/uopsim/system"
	"github.com/sarchlab/uopsim/timing/latency"
)

var (
	configPath = flag.String("config", "", "Path to timing configuration JSON file")
	model      = flag.String("model", "", "Timing model to use: rob or interval (overrides the config)")
	httpAddr   = flag.String("http", "", "Serve live per-core statistics on this address")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: uopsim [options] <trace0.jsonl> [trace1.jsonl ...]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		atexit.Exit(1)
	}

	config, err := loadTimingConfig(*configPath, *model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
		atexit.Exit(1)
	}

	sim, err := system.NewSystem(config, flag.NArg())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	traces, err := openTraces(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening trace: %v\n", err)
		atexit.Exit(1)
	}

	if *httpAddr != "" {
		serve(sim, *httpAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := sim.Run(ctx, traces); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	printReport(os.Stdout, sim.Stats())
	if *verbose {
		printFrontends(os.Stdout, sim)
	}

	atexit.Exit(0)
}

// loadTimingConfig loads the config at path, or the default one, and
// applies the model override.
func loadTimingConfig(path, model string) (*latency.TimingConfig, error) {
	config := latency.DefaultTimingConfig()
	if path != "" {
		var err error
		config, err = latency.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if model != "" {
		config.TimingModel = model
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// openTraces opens every trace. The files are closed on exit.
func openTraces(paths []string) ([]io.Reader, error) {
	traces := make([]io.Reader, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		atexit.Register(func() { _ = f.Close() })
		traces = append(traces, f)
	}
	return traces, nil
}

func serve(sim *system.System, addr string) {
	srv := &http.Server{Addr: addr, Handler: newRouter(sim)}
	atexit.Register(func() { _ = srv.Close() })

	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Error serving statistics: %v\n", err)
		}
	}()

	if *verbose {
		fmt.Printf("Serving statistics on http://%s/api/cores\n", addr)
	}
}

func printFrontends(w io.Writer, sim *system.System) {
	for i := range sim.Cores() {
		fs := sim.Frontend(i).Stats()
		fmt.Fprintf(w, "\nCore %d front end:\n", i)
		fmt.Fprintf(w, "  Instructions:   %d (%d cracked)\n", fs.Instructions, fs.Cracked)
		fmt.Fprintf(w, "  ICache misses:  %d\n", fs.ICacheMisses)
		fmt.Fprintf(w, "  Branches:       %d\n", fs.Branches)
		fmt.Fprintf(w, "  Mispredictions: %d\n", fs.Mispredictions)
		fmt.Fprintf(w, "  Barrier waits:  %d\n", sim.BarrierWaits(i))
	}
}
