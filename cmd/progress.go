package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/studyx/internal/formatter"
	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/services"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Summary prints the server totals for a day and its Monday-start week.
func (r *Runner) Summary(ctx context.Context, cmd *cli.Command) error {
	dateKey := cmd.String("date")
	if dateKey == "" {
		dateKey = shared.LocalDateKey(time.Now())
	} else if _, err := shared.ParseDateKey(dateKey); err != nil {
		return fmt.Errorf("%w: --date must be YYYY-MM-DD", shared.ErrInvalidArgument)
	}

	summary, err := services.NewStudyTimeService(r.api).Summary(ctx, r.config.API.UserID, dateKey)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}

	r.writePlainHeader("Study Time " + summary.DateKey)
	r.writePlain("Today: %s\n", formatMs(summary.TodayTotalMs))
	r.writePlain("Week:  %s\n", formatMs(summary.WeekTotalMs))
	return nil
}

// ProgressList prints progress records in the chosen format.
func (r *Runner) ProgressList(ctx context.Context, cmd *cli.Command) error {
	svc := services.NewProgressService(r.api)

	var (
		records []models.ProgressRecord
		err     error
	)
	if subject := cmd.String("subject"); subject != "" {
		records, err = svc.ListBySubject(ctx, subject)
	} else {
		records, err = svc.List(ctx, cmd.Int("skip"), cmd.Int("limit"))
	}
	if err != nil {
		return err
	}

	data, err := formatter.Export(records, formatter.Format(cmd.String("format")))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	_, err = r.output.Write(data)
	return err
}

// ProgressSummary prints per-subject record counts and hours.
func (r *Runner) ProgressSummary(ctx context.Context, cmd *cli.Command) error {
	summaries, err := services.NewProgressService(r.api).Subjects(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, true)
	}

	r.writePlainHeader("Progress by Subject")
	if len(summaries) == 0 {
		r.writePlain("No progress records yet.\n")
		return nil
	}
	for _, s := range summaries {
		r.writePlain("%-28s %3d records  %8s  %5.1f%%\n", s.Subject, s.Count, formatter.FormatHours(s.TotalHours), s.AvgProgress)
	}
	return nil
}

// ProgressRename moves every record of one subject to another name.
func (r *Runner) ProgressRename(ctx context.Context, cmd *cli.Command) error {
	oldName, newName := cmd.StringArg("old"), cmd.StringArg("new")
	if oldName == "" || newName == "" {
		return fmt.Errorf("%w: old and new subject names", shared.ErrMissingArgument)
	}
	if oldName == newName {
		return fmt.Errorf("%w: new name must differ from the old one", shared.ErrInvalidArgument)
	}

	n, err := services.NewProgressService(r.api).RenameSubject(ctx, oldName, newName)
	if err != nil {
		return err
	}

	r.logger.Info("subject renamed", "from", oldName, "to", newName, "records", n)
	r.writePlain("Renamed %d record(s) from %s to %s.\n", n, oldName, newName)
	return nil
}

// ProgressExport writes one export file per subject plus a manifest.
func (r *Runner) ProgressExport(ctx context.Context, cmd *cli.Command) error {
	svc := services.NewProgressService(r.api)

	subjects := cmd.StringSlice("subject")
	if len(subjects) == 0 {
		summaries, err := svc.Subjects(ctx)
		if err != nil {
			return fmt.Errorf("failed to list subjects: %w", err)
		}
		for _, s := range summaries {
			subjects = append(subjects, s.Subject)
		}
	}
	if len(subjects) == 0 {
		r.writePlain("No progress records to export.\n")
		return nil
	}

	opts := tasks.BulkExportOpts{
		Format:     formatter.Format(cmd.String("format")),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	}
	if _, err := formatter.Export(nil, opts.Format); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	r.logger.Info("exporting progress", "subjects", len(subjects), "format", opts.Format)

	progressCh := make(chan tasks.ExportUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()

	result, err := tasks.ExportSubjects(ctx, progressCh, svc, subjects, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest:  %s\n", result.ManifestPath)
	r.writePlain("Subjects:  %d/%d exported\n", result.SuccessfulExports, result.TotalSubjects)

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d subjects:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  • %s: %v\n", res.Subject, res.Error)
			}
		}
	}
	return nil
}
