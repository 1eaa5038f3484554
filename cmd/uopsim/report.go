package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/sarchlab/uopsim/timing/core"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	largeColor  = color.New(color.FgRed)
	mediumColor = color.New(color.FgYellow)
	smallColor  = color.New(color.FgGreen)
)

// printReport writes the per-core timing report. Each CPI stack component
// is colored by its share of the cycles.
func printReport(w io.Writer, stats []core.Stats) {
	for _, s := range stats {
		fmt.Fprintf(w, "\n")
		headerColor.Fprintf(w, "Core %d (%s, %s model)\n",
			s.Index, s.Microarchitecture, s.TimingModel)
		fmt.Fprintf(w, "Total Instructions: %d\n", s.Instructions)
		fmt.Fprintf(w, "Total Cycles: %d\n", s.Cycles)
		fmt.Fprintf(w, "CPI: %.2f\n", s.CPI)
		if s.MLP > 0 {
			fmt.Fprintf(w, "MLP: %.2f\n", s.MLP)
		}
		fmt.Fprintf(w, "Uops: %d (%d squashed)\n", s.Uops, s.UopsSquashed)

		fmt.Fprintf(w, "\nCPI stack:\n")
		printStack(w, s)
	}
}

func printStack(w io.Writer, s core.Stats) {
	names := make([]string, 0, len(s.CPIStack))
	for name := range s.CPIStack {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.CPIStack[names[i]], s.CPIStack[names[j]]
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})

	total := s.Cycles
	if total == 0 {
		total = 1
	}

	for _, name := range names {
		cycles := s.CPIStack[name]
		share := 100.0 * float64(cycles) / float64(total)

		c := smallColor
		switch {
		case share >= 25:
			c = largeColor
		case share >= 5:
			c = mediumColor
		}

		c.Fprintf(w, "  %-20s %8d cycles (%5.1f%%)\n", name+":", cycles, share)
	}
}
