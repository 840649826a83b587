// package formatter provides clock and duration helpers for the timer and exports study progress
// records to various formats (JSON, YAML, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/studyx/internal/models"
	"gopkg.in/yaml.v3"
)

// Format names an export format accepted by [Export].
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Export renders records in the named format.
func Export(records []models.ProgressRecord, format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return ExportToJSON(records)
	case FormatYAML, "yml":
		return ExportToYAML(records)
	case FormatCSV:
		return ExportToCSV(records)
	case FormatMarkdown, "md":
		return ExportToMarkdown(records)
	case FormatText, "txt":
		return ExportToText(records)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// ExportToJSON converts records to indented JSON.
func ExportToJSON(records []models.ProgressRecord) ([]byte, error) {
	if records == nil {
		records = []models.ProgressRecord{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// ExportToYAML converts records to a YAML sequence.
func ExportToYAML(records []models.ProgressRecord) ([]byte, error) {
	if records == nil {
		records = []models.ProgressRecord{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToCSV converts records to CSV with columns: ID, Subject, Topic, Progress, Hours, Created, Notes
func ExportToCSV(records []models.ProgressRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Subject", "Topic", "Progress", "Hours", "Created", "Notes"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.Subject,
			r.Topic,
			strconv.FormatFloat(r.ProgressPercent, 'f', -1, 64),
			strconv.FormatFloat(r.StudyHours, 'f', 2, 64),
			r.CreatedAt.Format(time.RFC3339),
			notes(r),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown groups records by subject under a heading with per-subject hour totals.
func ExportToMarkdown(records []models.ProgressRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Study Progress\n\n")
	buf.WriteString(fmt.Sprintf("**Records**: %d\n", len(records)))
	buf.WriteString(fmt.Sprintf("**Total**: %s\n", FormatHours(totalHours(records))))

	for _, subject := range subjects(records) {
		buf.WriteString(fmt.Sprintf("\n## %s\n\n", subject))
		for _, r := range records {
			if r.Subject != subject {
				continue
			}
			line := fmt.Sprintf("- %s: %s (%s, %.0f%%)", r.CreatedAt.Format("2006-01-02"), r.Topic, FormatHours(r.StudyHours), r.ProgressPercent)
			if n := notes(r); n != "" {
				line += " - " + n
			}
			buf.WriteString(line + "\n")
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts records to plain text format
func ExportToText(records []models.ProgressRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Records: %d\n", len(records)))
	buf.WriteString(fmt.Sprintf("Total: %s\n\n", FormatHours(totalHours(records))))

	for i, r := range records {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s - %s (%s)\n", i+1, r.CreatedAt.Format("2006-01-02"), r.Subject, r.Topic, FormatHours(r.StudyHours)))
	}

	return buf.Bytes(), nil
}

// WriteExport renders records and writes them to path, defaulting to progress.{ext}.
func WriteExport(records []models.ProgressRecord, format Format, path string) (string, error) {
	data, err := Export(records, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "progress." + Extension(format)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// Extension is the file extension written for format.
func Extension(format Format) string {
	switch format {
	case FormatYAML, "yml":
		return "yaml"
	case FormatCSV:
		return "csv"
	case FormatMarkdown, "md":
		return "md"
	case FormatText, "txt":
		return "txt"
	default:
		return "json"
	}
}

func notes(r models.ProgressRecord) string {
	if r.Notes == nil {
		return ""
	}
	return *r.Notes
}

func totalHours(records []models.ProgressRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.StudyHours
	}
	return total
}

// subjects returns subject names in order of first appearance.
func subjects(records []models.ProgressRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if !seen[r.Subject] {
			seen[r.Subject] = true
			out = append(out, r.Subject)
		}
	}
	return out
}
