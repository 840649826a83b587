package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/studyx/internal/formatter"
	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/timer"
)

// RecordResult is the outcome of [TimerController.SaveRecord].
type RecordResult struct {
	Success bool
	Message string // Human-readable message for display
	Hours   float64
	Record  *models.ProgressRecord
}

// SaveRecord commits the session to today's progress record for the selected subject.
//
// A running timer is stopped first. The record is matched by subject, the configured topic and the local
// day of its creation; a match gets the hours added, otherwise a record is created with a note describing
// the session. On success the timer is reset and refresh (if any) is called. On failure the timer keeps its
// progress so the commit can be retried.
func (c *TimerController) SaveRecord(ctx context.Context, refresh func()) (RecordResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return RecordResult{Message: "Timer is closed."}, shared.ErrControllerClosed
	}

	nowMs := c.nowMs()
	if c.state.IsRunning {
		c.applyLocked(nowMs, timer.Stop)
	}
	s := c.state
	today := shared.LocalDateKey(time.UnixMilli(nowMs))
	c.mu.Unlock()

	if s.SelectedSubject == "" {
		return RecordResult{Message: "Select a subject before saving a record."}, shared.ErrNoSubject
	}

	hours := timer.RecordHours(s)
	if hours <= 0 {
		return RecordResult{Message: "There is no study time to record yet."}, shared.ErrNothingToRecord
	}

	record, err := c.commitRecord(ctx, s, today, hours)
	if err != nil {
		c.logger.Warn("failed to save study record", "subject", s.SelectedSubject, "hours", hours, "err", err)
		return RecordResult{Hours: hours, Message: fmt.Sprintf("Failed to save record: %v", err)}, err
	}

	msg := fmt.Sprintf("Recorded %s of %s.", formatter.FormatHours(hours), s.SelectedSubject)
	c.logger.Info("study record saved", "subject", s.SelectedSubject, "hours", hours, "record_id", record.ID)

	c.mu.Lock()
	if !c.closed {
		c.applyLocked(c.nowMs(), func(s timer.State, _ int64) timer.State { return timer.Reset(s) })
		c.emitLocked(Recorded, msg, nil)
	}
	c.mu.Unlock()

	if refresh != nil {
		refresh()
	}
	return RecordResult{Success: true, Message: msg, Hours: hours, Record: record}, nil
}

func (c *TimerController) commitRecord(ctx context.Context, s timer.State, today string, hours float64) (*models.ProgressRecord, error) {
	records, err := c.progress.ListBySubject(ctx, s.SelectedSubject)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress records: %w", err)
	}

	for _, r := range records {
		if r.Topic != c.cfg.RecordTopic || shared.LocalDateKey(r.CreatedAt) != today {
			continue
		}
		total := r.StudyHours + hours
		updated, err := c.progress.Update(ctx, r.ID, models.ProgressUpdate{StudyHours: &total})
		if err != nil {
			return nil, fmt.Errorf("failed to update progress record %d: %w", r.ID, err)
		}
		return updated, nil
	}

	note := fmt.Sprintf("%s session: %s", modeLabel(s.Mode), formatter.FormatHours(hours))
	created, err := c.progress.Create(ctx, models.ProgressCreate{
		Subject:    s.SelectedSubject,
		Topic:      c.cfg.RecordTopic,
		StudyHours: hours,
		Notes:      &note,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create progress record: %w", err)
	}
	return created, nil
}

func modeLabel(m timer.Mode) string {
	switch m {
	case timer.ModePomodoro:
		return "Pomodoro"
	case timer.ModeManual:
		return "Manual"
	default:
		return "Stopwatch"
	}
}
