package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/studyx/internal/formatter"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/tasks"
	"github.com/desertthunder/studyx/internal/timer"
	"github.com/urfave/cli/v3"
)

// timerStatus is the JSON shape of `timer status --json`.
type timerStatus struct {
	Mode           timer.Mode `json:"mode"`
	Subject        string     `json:"subject"`
	Running        bool       `json:"running"`
	Clock          string     `json:"clock"`
	DisplaySeconds int64      `json:"display_seconds"`
	PomodoroSet    int        `json:"pomodoro_set,omitempty"`
	PomodoroPhase  string     `json:"pomodoro_phase,omitempty"`
	UnsyncedMs     int64      `json:"unsynced_ms"`
	TodayTotalMs   int64      `json:"today_total_ms"`
	WeekTotalMs    int64      `json:"week_total_ms"`
	SummaryLoaded  bool       `json:"summary_loaded"`
}

// withTimer runs fn against an initialized controller and closes it afterwards.
func (r *Runner) withTimer(ctx context.Context, fn func(c *tasks.TimerController) error) error {
	c, closeFn, err := r.openTimer(ctx, r.logger)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(c)
}

// TimerStatus prints the timer state and the day/week totals.
func (r *Runner) TimerStatus(ctx context.Context, cmd *cli.Command) error {
	return r.withTimer(ctx, func(c *tasks.TimerController) error {
		snap := c.Snapshot()
		if cmd.Bool("json") {
			return r.writeJSON(newTimerStatus(snap), true)
		}
		r.printSnapshot(snap)
		return nil
	})
}

// TimerStart optionally selects a subject and mode, then starts the timer.
func (r *Runner) TimerStart(ctx context.Context, cmd *cli.Command) error {
	return r.withTimer(ctx, func(c *tasks.TimerController) error {
		if mode := cmd.String("mode"); mode != "" {
			m, err := parseMode(mode)
			if err != nil {
				return err
			}
			c.SetMode(m)
		}
		if subject := cmd.String("subject"); subject != "" {
			c.SetSubject(subject)
		}

		snap := c.Snapshot()
		switch {
		case snap.State.IsRunning:
			r.writePlain("Timer is already running.\n")
		case snap.State.SelectedSubject == "":
			return fmt.Errorf("select a subject with --subject: %w", shared.ErrNoSubject)
		case !snap.CanStart:
			return fmt.Errorf("%w: the timer cannot start in %s mode", shared.ErrInvalidArgument, snap.State.Mode)
		default:
			c.Start()
		}

		r.printSnapshot(c.Snapshot())
		return nil
	})
}

// TimerStop stops the timer. Stopping sends the session total to the server.
func (r *Runner) TimerStop(ctx context.Context, cmd *cli.Command) error {
	return r.withTimer(ctx, func(c *tasks.TimerController) error {
		c.Stop()
		r.printSnapshot(c.Snapshot())
		return nil
	})
}

// TimerReset clears the progress of the current mode.
func (r *Runner) TimerReset(ctx context.Context, cmd *cli.Command) error {
	return r.withTimer(ctx, func(c *tasks.TimerController) error {
		c.Reset()
		r.printSnapshot(c.Snapshot())
		return nil
	})
}

// TimerMode switches modes. Switching stops a running timer.
func (r *Runner) TimerMode(ctx context.Context, cmd *cli.Command) error {
	mode, err := parseMode(cmd.StringArg("mode"))
	if err != nil {
		return err
	}
	return r.withTimer(ctx, func(c *tasks.TimerController) error {
		c.SetMode(mode)
		r.printSnapshot(c.Snapshot())
		return nil
	})
}

// TimerSubject selects the subject. The subject is locked while the timer runs.
func (r *Runner) TimerSubject(ctx context.Context, cmd *cli.Command) error {
	subject := strings.TrimSpace(cmd.StringArg("subject"))
	if subject == "" {
		return fmt.Errorf("%w: subject", shared.ErrMissingArgument)
	}
	return r.withTimer(ctx, func(c *tasks.TimerController) error {
		c.SetSubject(subject)
		snap := c.Snapshot()
		if snap.State.SelectedSubject != subject {
			return fmt.Errorf("%w: stop the timer before changing the subject", shared.ErrInvalidArgument)
		}
		r.printSnapshot(snap)
		return nil
	})
}

// TimerManual sets the manual duration fields that were passed.
func (r *Runner) TimerManual(ctx context.Context, cmd *cli.Command) error {
	if !cmd.IsSet("hours") && !cmd.IsSet("minutes") {
		return fmt.Errorf("%w: --hours or --minutes", shared.ErrMissingArgument)
	}
	return r.withTimer(ctx, func(c *tasks.TimerController) error {
		if cmd.IsSet("hours") {
			c.SetManualHours(cmd.Int("hours"))
		}
		if cmd.IsSet("minutes") {
			c.SetManualMinutes(cmd.Int("minutes"))
		}
		r.printSnapshot(c.Snapshot())
		return nil
	})
}

// TimerPomodoro changes the pomodoro settings. Values are clamped to the configured ranges.
func (r *Runner) TimerPomodoro(ctx context.Context, cmd *cli.Command) error {
	return r.withTimer(ctx, func(c *tasks.TimerController) error {
		if !c.Snapshot().CanEditPomodoro {
			return fmt.Errorf("%w: pomodoro settings can only change before a run starts", shared.ErrInvalidArgument)
		}
		if cmd.IsSet("focus") {
			c.SetPomodoroFocusMinutes(cmd.Int("focus"))
		}
		if cmd.IsSet("break") {
			c.SetPomodoroBreakMinutes(cmd.Int("break"))
		}
		if cmd.IsSet("sets") {
			c.SetPomodoroSets(cmd.Int("sets"))
		}
		r.printSnapshot(c.Snapshot())
		return nil
	})
}

// TimerRecord saves the session as a progress record.
func (r *Runner) TimerRecord(ctx context.Context, cmd *cli.Command) error {
	return r.withTimer(ctx, func(c *tasks.TimerController) error {
		result, err := c.SaveRecord(ctx, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", result.Message, err)
		}
		r.writePlain("✓ %s\n", result.Message)
		return nil
	})
}

// TimerSync sends the unsynced total immediately.
func (r *Runner) TimerSync(ctx context.Context, cmd *cli.Command) error {
	return r.withTimer(ctx, func(c *tasks.TimerController) error {
		sent, err := c.SyncNow(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		if !sent {
			r.writePlain("Nothing to sync.\n")
			return nil
		}
		snap := c.Snapshot()
		r.writePlain("✓ Synced. Today %s, week %s\n", formatMs(snap.TodayTotalMs), formatMs(snap.WeekTotalMs))
		return nil
	})
}

func (r *Runner) printSnapshot(snap tasks.Snapshot) {
	s := snap.State

	r.writePlainHeader("Study Timer")
	r.writePlain("Mode:     %s\n", s.Mode)
	subject := s.SelectedSubject
	if subject == "" {
		subject = "(none)"
	}
	r.writePlain("Subject:  %s\n", subject)

	state := "stopped"
	if s.IsRunning {
		state = "running"
	}
	r.writePlain("Clock:    %s (%s)\n", snap.Clock, state)

	switch s.Mode {
	case timer.ModePomodoro:
		p := s.Pomodoro
		if p.Completed {
			r.writePlain("Pomodoro: all %d sets complete\n", p.Sets)
		} else {
			r.writePlain("Pomodoro: set %d/%d, %s (focus %dm, break %dm)\n",
				p.CurrentSet, p.Sets, p.Phase, p.FocusMinutes, p.BreakMinutes)
		}
	case timer.ModeManual:
		r.writePlain("Manual:   %dh %dm\n", s.Manual.Hours, s.Manual.Minutes)
	}

	if snap.SummaryLoaded {
		r.writePlain("Today:    %s\n", formatMs(snap.TodayTotalMs))
		r.writePlain("Week:     %s\n", formatMs(snap.WeekTotalMs))
	} else {
		r.writePlain("Totals:   unavailable\n")
	}
	if snap.UnsyncedMs > 0 {
		r.writePlain("Unsynced: %s\n", formatMs(snap.UnsyncedMs))
	}
}

func newTimerStatus(snap tasks.Snapshot) timerStatus {
	s := snap.State
	status := timerStatus{
		Mode:           s.Mode,
		Subject:        s.SelectedSubject,
		Running:        s.IsRunning,
		Clock:          snap.Clock,
		DisplaySeconds: snap.DisplaySeconds,
		UnsyncedMs:     snap.UnsyncedMs,
		TodayTotalMs:   snap.TodayTotalMs,
		WeekTotalMs:    snap.WeekTotalMs,
		SummaryLoaded:  snap.SummaryLoaded,
	}
	if s.Mode == timer.ModePomodoro {
		status.PomodoroSet = s.Pomodoro.CurrentSet
		status.PomodoroPhase = string(s.Pomodoro.Phase)
	}
	return status
}

func parseMode(raw string) (timer.Mode, error) {
	mode := timer.Mode(strings.ToLower(strings.TrimSpace(raw)))
	if !mode.Valid() {
		return "", fmt.Errorf("%w: unknown mode %q (want stopwatch, pomodoro or manual)", shared.ErrInvalidArgument, raw)
	}
	return mode, nil
}

func formatMs(ms int64) string {
	return formatter.FormatHours(float64(ms) / 3_600_000)
}
