package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alnah/go-bookpdf"
	"github.com/alnah/go-bookpdf/internal/fileutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	flags, jobs, err := parseFlags(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: bookpdf [flags] <book.yaml> [book2.yaml ...]")
		os.Exit(1)
	}

	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Configure GOMAXPROCS with conditional logging
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if flags.verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	if err := run(flags, jobs, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run exports every job file, sharing one renderer pool and one stylesheet
// cache across workers.
func run(flags *cliFlags, jobs []string, logger *slog.Logger) error {
	for _, jobPath := range jobs {
		if !fileutil.FileExists(jobPath) {
			return fmt.Errorf("%w: %s", ErrReadJob, jobPath)
		}
	}

	poolSize := bookpdf.ResolvePoolSize(flags.workers)
	if poolSize > len(jobs) {
		poolSize = len(jobs)
	}
	logger.Debug("renderer pool sized", "size", poolSize, "jobs", len(jobs))

	pool := bookpdf.NewRendererPool(poolSize, func() bookpdf.Renderer {
		return bookpdf.NewChromeRenderer(flags.timeout)
	})
	defer pool.Close()

	cache := bookpdf.NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, len(jobs))
	for i, jobPath := range jobs {
		wg.Add(1)
		go func(i int, jobPath string) {
			defer wg.Done()
			errs[i] = exportJob(ctx, flags, jobPath, len(jobs), pool, cache, logger)
		}(i, jobPath)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// exportJob runs the full pipeline for one job file and writes the result.
func exportJob(ctx context.Context, flags *cliFlags, jobPath string, jobCount int, pool *bookpdf.RendererPool, cache bookpdf.Cache, logger *slog.Logger) error {
	job, err := loadJob(jobPath)
	if err != nil {
		return err
	}

	template := job.Template
	if flags.template != "" {
		template = flags.template
	}

	cfg, err := bookpdf.Resolve(template, job.Overrides)
	if err != nil {
		return fmt.Errorf("%s: %w", jobPath, err)
	}
	cfg.Minify = job.Minify || flags.minify

	chapters, err := loadChapters(ctx, jobPath, job)
	if err != nil {
		return err
	}

	renderer := pool.Acquire()
	defer pool.Release(renderer)

	opts := []bookpdf.Option{
		bookpdf.WithRenderer(renderer),
		bookpdf.WithCache(cache),
		bookpdf.WithLogger(logger),
	}
	if flags.timeout > 0 {
		opts = append(opts, bookpdf.WithTimeout(flags.timeout))
	}
	if flags.htmlOnly {
		opts = append(opts, bookpdf.WithHTMLOnly())
	}

	gen := bookpdf.NewGenerator(opts...)
	result, err := gen.Generate(ctx, chapters, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", jobPath, err)
	}

	outPath := outputPath(flags, jobPath, job, jobCount)
	content := result.PDF
	if flags.htmlOnly {
		content = result.HTML
	}
	if err := os.WriteFile(outPath, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	if flags.htmlOnly {
		fmt.Printf("Created %s (%d pages)\n", outPath, result.Report.PageCount)
		return nil
	}
	printReport(os.Stdout, outPath, result.Report)
	return nil
}

// printReport writes a one-screen quality summary for an export.
func printReport(w *os.File, outPath string, report *bookpdf.QualityReport) {
	fmt.Fprintf(w, "Created %s (%d pages)\n", outPath, report.PageCount)
	if report.AllValid {
		fmt.Fprintln(w, "  quality: all checks passed")
		return
	}
	if n := len(report.BlankPages.Parasites); n > 0 {
		fmt.Fprintf(w, "  quality: %d parasitic blank page(s): %v\n", n, report.BlankPages.Parasites)
	}
	if n := report.TextRivers.RiverCount; n > 0 {
		fmt.Fprintf(w, "  quality: %d paragraph(s) at risk of text rivers\n", n)
	}
	if n := len(report.TOCSync.Mismatches); n > 0 {
		fmt.Fprintf(w, "  quality: %d TOC page number mismatch(es)\n", n)
	}
	if n := len(report.OrphanTitles.Orphans); n > 0 {
		fmt.Fprintf(w, "  quality: %d orphaned title(s)\n", n)
	}
	if d := report.PDFIntegrity.Detail; d != "" {
		fmt.Fprintf(w, "  quality: PDF integrity: %s\n", d)
	}
}
