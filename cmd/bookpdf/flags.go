package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
)

// cliFlags holds all flags for the export command.
type cliFlags struct {
	output   string
	template string
	timeout  time.Duration
	workers  int
	minify   bool
	htmlOnly bool
	verbose  bool
}

// parseFlags parses command line flags and returns the positional job files.
func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("bookpdf", flag.ContinueOnError)
	f := &cliFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output file (single job) or directory")
	fs.StringVarP(&f.template, "template", "T", "", "style template, overriding the job file")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "per-render timeout (e.g., 30s, 2m)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.BoolVar(&f.minify, "minify", false, "minify the generated stylesheet")
	fs.BoolVar(&f.htmlOnly, "html-only", false, "output synchronized HTML only, skip PDF")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logging")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: bookpdf [flags] <book.yaml> [book2.yaml ...]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}
