// Command arena runs model comparisons from a plan file without a database.
//
// Usage:
//
//	arena run --plan plan.yaml [--config arena.yaml] [--seed 42]
//	arena inspect prompts.csv
//	arena benchmarks
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/brunobiangulo/modelarena/benchmark"
)

// Exit codes for different failure modes
const (
	ExitSuccess        = 0
	ExitInvalidRequest = 1 // validation or dataset problems
	ExitError          = 2 // configuration or runtime error
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, benchmark.ErrValidation) || isDatasetError(err) {
			os.Exit(ExitInvalidRequest)
		}
		os.Exit(ExitError)
	}
}
