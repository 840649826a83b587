package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/desertthunder/studyx/internal/formatter"
	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	"golang.org/x/time/rate"
)

// ProgressLister lists the progress records of one subject.
type ProgressLister interface {
	ListBySubject(ctx context.Context, subject string) ([]models.ProgressRecord, error)
}

// BulkExportOpts contains configuration for per-subject progress exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format: json, yaml, csv, markdown, text
	OutputDir  string           // Base output directory (default: progress_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 3)
	RateLimit  float64          // Requests per second (default: 5)
}

// ExportUpdate reports export progress.
type ExportUpdate struct {
	Step    int
	Total   int
	Message string
}

// SubjectExportResult is the outcome for one subject.
type SubjectExportResult struct {
	Subject string
	File    string
	Records int
	Hours   float64
	Success bool
	Error   error
}

// BulkExportResult summarizes an [ExportSubjects] run.
type BulkExportResult struct {
	TotalSubjects     int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []SubjectExportResult
}

type manifestEntry struct {
	Subject string  `json:"subject"`
	File    string  `json:"file,omitempty"`
	Records int     `json:"records"`
	Hours   float64 `json:"study_hours"`
	Error   string  `json:"error,omitempty"`
}

type manifest struct {
	ExportedAt time.Time       `json:"exported_at"`
	Format     string          `json:"format"`
	Subjects   []manifestEntry `json:"subjects"`
}

// ExportSubjects fetches the records of each subject with a rate-limited worker pool and writes one export
// file per subject plus export_manifest.json. A failed subject is reported in the result and the manifest;
// it does not abort the others.
func ExportSubjects(
	ctx context.Context,
	prog chan<- ExportUpdate,
	api ProgressLister,
	subjects []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: progress service not initialized", shared.ErrServiceUnavailable)
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: no subjects to export", shared.ErrMissingArgument)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("progress_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > len(subjects) {
		opts.NumWorkers = len(subjects)
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan string)
	results := make(chan SubjectExportResult, len(subjects))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, limiter, api, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for _, subject := range subjects {
			select {
			case jobs <- subject:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &BulkExportResult{
		TotalSubjects:   len(subjects),
		OutputDirectory: opts.OutputDir,
		Results:         make([]SubjectExportResult, 0, len(subjects)),
	}

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, ExportUpdate{completed, len(subjects), fmt.Sprintf("[%d/%d] ✓ %s (%d records)", completed, len(subjects), res.Subject, res.Records)})
		} else {
			result.FailedExports++
			sendProgress(prog, ExportUpdate{completed, len(subjects), fmt.Sprintf("[%d/%d] ✗ %s: %v", completed, len(subjects), res.Subject, res.Error)})
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	order := make(map[string]int, len(subjects))
	for i, s := range subjects {
		order[s] = i
	}
	sort.Slice(result.Results, func(i, j int) bool {
		return order[result.Results[i].Subject] < order[result.Results[j].Subject]
	})

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := writeManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	api ProgressLister,
	jobs <-chan string,
	results chan<- SubjectExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for subject := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- SubjectExportResult{Subject: subject, Error: err}
			continue
		}
		results <- exportSubject(ctx, api, subject, opts)
	}
}

func exportSubject(ctx context.Context, api ProgressLister, subject string, opts BulkExportOpts) SubjectExportResult {
	result := SubjectExportResult{Subject: subject}

	records, err := api.ListBySubject(ctx, subject)
	if err != nil {
		result.Error = fmt.Errorf("failed to fetch records: %w", err)
		return result
	}

	path := filepath.Join(opts.OutputDir, fileSlug(subject)+"."+formatter.Extension(opts.Format))
	file, err := formatter.WriteExport(records, opts.Format, path)
	if err != nil {
		result.Error = err
		return result
	}

	result.File = file
	result.Records = len(records)
	for _, r := range records {
		result.Hours += r.StudyHours
	}
	result.Success = true
	return result
}

func writeManifest(result *BulkExportResult, format formatter.Format, path string) error {
	m := manifest{ExportedAt: time.Now().UTC(), Format: string(format)}
	for _, r := range result.Results {
		entry := manifestEntry{Subject: r.Subject, File: filepath.Base(r.File), Records: r.Records, Hours: r.Hours}
		if r.Error != nil {
			entry.File = ""
			entry.Error = r.Error.Error()
		}
		m.Subjects = append(m.Subjects, entry)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// fileSlug lowercases subject and replaces every run of non-alphanumerics with one underscore.
func fileSlug(subject string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(subject)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "_")
	if slug == "" {
		return "subject"
	}
	return slug
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ExportUpdate, update ExportUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
