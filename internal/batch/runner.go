// Package batch discovers report PDFs and runs the extraction pipeline
// over them with a bounded worker pool, persisting each bundle as it
// completes.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lucidhealth/cnsextract/internal/extract"
	"github.com/lucidhealth/cnsextract/internal/report"
	"github.com/lucidhealth/cnsextract/internal/store"
)

// DocumentResult is the outcome for one input file.
type DocumentResult struct {
	Path         string
	ReportID     int64
	PatientID    string
	Metrics      int
	Degradations int
	Err          error
}

// Runner drives extraction and storage for a set of files.
type Runner struct {
	svc     *extract.Service
	store   *store.Store
	workers int
	logger  *slog.Logger
}

// NewRunner creates a runner. workers below 1 is treated as 1.
func NewRunner(svc *extract.Service, st *store.Store, workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{svc: svc, store: st, workers: workers, logger: logger}
}

// Run processes every path and returns one result per input, in input
// order. A failed document never stops the batch; cancellation does.
func (r *Runner) Run(ctx context.Context, paths []string) []DocumentResult {
	results := make([]DocumentResult, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.processOne(ctx, paths[i])
			}
		}()
	}

	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(paths); j++ {
				results[j] = DocumentResult{Path: paths[j], Err: ctx.Err()}
			}
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (r *Runner) processOne(ctx context.Context, path string) DocumentResult {
	res := DocumentResult{Path: path}

	bundle, err := r.svc.ExtractFile(ctx, path)
	if err != nil {
		// Label the failure with the patient id the file name suggests, so
		// failure reports stay attributable. Never used to build a bundle.
		res.PatientID = patientIDFromFilename(path)
		r.logger.Error("extraction failed", "path", path, "patient_hint", res.PatientID, "error", err)
		res.Err = err
		return res
	}
	res.PatientID = bundle.Patient.ID
	res.Metrics = countExtracted(bundle)
	res.Degradations = len(bundle.Degradations)

	if r.store != nil {
		id, err := r.store.SaveBundle(ctx, bundle, path)
		if err != nil {
			r.logger.Error("persisting bundle failed", "path", path, "error", err)
			res.Err = fmt.Errorf("persisting %s: %w", path, err)
			return res
		}
		res.ReportID = id
	}
	return res
}

// patientIDFromFilename reads the leading digit run of the base name,
// the vendor's file naming convention.
func patientIDFromFilename(path string) string {
	base := filepath.Base(path)
	i := 0
	for i < len(base) && base[i] >= '0' && base[i] <= '9' {
		i++
	}
	return base[:i]
}

func countExtracted(b *report.Bundle) int {
	n := 0
	for _, m := range b.Metrics {
		if !m.Placeholder {
			n++
		}
	}
	return n
}

// Discover lists the PDF files under dir, sorted by path. Hidden files
// and, unless recursive is set, subdirectories are skipped.
func Discover(dir string, recursive bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("accessing directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var paths []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Keep walking past unreadable entries.
			return nil
		}
		name := info.Name()
		if info.IsDir() {
			if path != dir && (!recursive || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(name), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", dir, err)
	}

	sort.Strings(paths)
	return paths, nil
}
