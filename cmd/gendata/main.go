// Command gendata writes a synthetic HR extract in the IBM attrition layout,
// for demos and smoke tests when the real dataset is unavailable.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mimir-aip/attrition-risk/pkg/dataset"
)

func main() {
	out := flag.String("out", "data/WA_Fn-UseC_-HR-Employee-Attrition.csv", "output CSV path")
	rows := flag.Int("rows", 1470, "number of employees")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	if err := write(*out, *rows, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d rows to %s\n", *rows, *out)
}

func write(path string, rows int, seed int64) error {
	if rows <= 0 {
		return fmt.Errorf("rows must be positive, got %d", rows)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.SyntheticHR(rows, seed).WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
