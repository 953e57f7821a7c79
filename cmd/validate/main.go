// Command validate checks encoded geomagnetic files against the fixed-width
// layout of their format: record widths, line endings, block structure, and
// timestamp continuity. It exits non-zero when any file fails.
//
// Usage:
//
//	go run ./cmd/validate -format iaga2002 data/ott20190102vmin.min
//	go run ./cmd/validate -format imfv122 data/JAN0219.OTT data/JAN0319.OTT
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/geomag-etl/internal/format"
)

// phase tracks pass/fail for one checked file.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	name := flag.String("format", "", "format of the files: iaga2002, imfv122 or internet")
	flag.Parse()

	if *name == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	f, err := format.Parse(*name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(f, flag.Args()))
}

func run(f format.Format, paths []string) int {
	fmt.Printf("=== %s Layout Validation ===\n\n", f)

	phases := make([]*phase, 0, len(paths))
	for _, path := range paths {
		phases = append(phases, checkFile(f, path))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("[%s] %s\n", status, p.name)
		for _, e := range p.errors {
			fmt.Printf("       %s\n", e)
		}
	}

	fmt.Println()
	if !allPassed {
		fmt.Println("RESULT: FAILED")
		return 1
	}
	fmt.Println("RESULT: ALL PASSED")
	return 0
}

func checkFile(f format.Format, path string) *phase {
	p := &phase{name: path}

	file, err := os.Open(path)
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer file.Close()

	issues, err := format.CheckLayout(file, f)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	for _, issue := range issues {
		p.errorf("%s", issue)
	}
	fmt.Printf("checked %s: %d issue(s)\n", path, len(issues))
	return p
}
