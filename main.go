// Package main provides the entry point for uopsim.
// uopsim is a trace-driven micro-op timing simulator for multicore CPUs.
//
// For the full CLI, use: go run ./cmd/uopsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("uopsim - Micro-op Timing Simulator")
	fmt.Println("ROB and interval timing models for multicore traces")
	fmt.Println("")
	fmt.Println("Usage: uopsim [options] <trace0.jsonl> [trace1.jsonl ...]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to timing configuration JSON file")
	fmt.Println("  -model     Timing model: rob or interval")
	fmt.Println("  -http      Serve live per-core statistics on this address")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/uopsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/uopsim' instead.")
	}
}
