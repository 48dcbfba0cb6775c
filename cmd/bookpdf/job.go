package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-bookpdf"
	"github.com/alnah/go-bookpdf/internal/mdconv"
	"github.com/alnah/go-bookpdf/internal/yamlutil"
)

// Sentinel errors for job file handling.
var (
	ErrReadJob     = errors.New("failed to read job file")
	ErrReadChapter = errors.New("failed to read chapter file")
	ErrJobChapters = errors.New("job file declares no chapters")
)

// bookJob is the YAML description of one export: which template to use and
// which Markdown files make up the manuscript, in order. Unknown keys are
// rejected so a typo in a job file fails loudly instead of silently
// styling with defaults.
type bookJob struct {
	Title     string         `yaml:"title"`
	Template  string         `yaml:"template"`
	Output    string         `yaml:"output"`
	Overrides map[string]any `yaml:"overrides"`
	Minify    bool           `yaml:"minify"`
	Chapters  []jobChapter   `yaml:"chapters"`
}

// jobChapter is one manuscript unit: a title plus a Markdown file path,
// relative to the job file.
type jobChapter struct {
	Title string `yaml:"title"`
	File  string `yaml:"file"`
}

// loadJob reads and strictly decodes a job file.
func loadJob(path string) (*bookJob, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the CLI user
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadJob, err)
	}

	var job bookJob
	if err := yamlutil.UnmarshalStrict(data, &job); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadJob, path, err)
	}
	if len(job.Chapters) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobChapters, path)
	}
	return &job, nil
}

// loadChapters converts each chapter's Markdown file into an HTML fragment.
// Chapter paths resolve relative to the job file's directory.
func loadChapters(ctx context.Context, jobPath string, job *bookJob) ([]bookpdf.Chapter, error) {
	baseDir := filepath.Dir(jobPath)
	conv := mdconv.New()

	chapters := make([]bookpdf.Chapter, 0, len(job.Chapters))
	for i, jc := range job.Chapters {
		path := jc.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}

		md, err := os.ReadFile(path) // #nosec G304 -- path comes from the job file
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReadChapter, err)
		}

		html, err := conv.ToHTML(ctx, string(md))
		if err != nil {
			return nil, err
		}

		title := jc.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(jc.File), filepath.Ext(jc.File))
		}

		chapters = append(chapters, bookpdf.Chapter{
			ID:       bookpdf.Slugify(title),
			Title:    title,
			Position: i + 1,
			Content:  html,
		})
	}
	return chapters, nil
}

// outputPath decides where one job's result lands. Precedence: an explicit
// -o file for a single job, then the job file's own output field (relative
// to the job file), then the job file's name with the proper extension, in
// -o (as a directory) or next to the job file.
func outputPath(flags *cliFlags, jobPath string, job *bookJob, jobCount int) string {
	ext := ".pdf"
	if flags.htmlOnly {
		ext = ".html"
	}

	if flags.output != "" {
		if jobCount == 1 && filepath.Ext(flags.output) != "" {
			return flags.output
		}
		base := strings.TrimSuffix(filepath.Base(jobPath), filepath.Ext(jobPath))
		return filepath.Join(flags.output, base+ext)
	}

	if job.Output != "" {
		if filepath.IsAbs(job.Output) {
			return job.Output
		}
		return filepath.Join(filepath.Dir(jobPath), job.Output)
	}

	return strings.TrimSuffix(jobPath, filepath.Ext(jobPath)) + ext
}
