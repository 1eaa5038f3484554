// Package main provides a profiling wrapper for uopsim to identify performance bottlenecks.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/uopsim/system"
	"github.com/sarchlab/uopsim/timing/latency"
)

var (
	configPath  = flag.String("config", "", "Path to timing configuration JSON file")
	model       = flag.String("model", "", "Timing model to use: rob or interval")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions per core (0 = unlimited)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <trace0.jsonl> [trace1.jsonl ...]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		atexit.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			atexit.Exit(1)
		}

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			atexit.Exit(1)
		}
		atexit.Register(func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		})
	}

	config := latency.DefaultTimingConfig()
	if *configPath != "" {
		var err error
		config, err = latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			atexit.Exit(1)
		}
	}
	if *model != "" {
		config.TimingModel = *model
	}

	sim, err := system.NewSystem(config, flag.NArg(), system.WithMaxInstructions(*instruction))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	traces := make([]io.Reader, 0, flag.NArg())
	for _, path := range flag.Args() {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening trace: %v\n", err)
			atexit.Exit(1)
		}
		atexit.Register(func() { _ = f.Close() })
		traces = append(traces, f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	err = sim.Run(ctx, traces)
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Run stopped: %v\n", err)
	}

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			atexit.Exit(1)
		}

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
		_ = f.Close()
	}

	var instrCount, cycles uint64
	for _, s := range sim.Stats() {
		instrCount += s.Instructions
		cycles += s.Cycles
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Timing model: %s\n", config.TimingModel)
	fmt.Printf("Instructions simulated: %d\n", instrCount)
	fmt.Printf("Cycles simulated: %d\n", cycles)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}

	atexit.Exit(0)
}
