package tasks

import (
	"github.com/desertthunder/studyx/internal/formatter"
	"github.com/desertthunder/studyx/internal/timer"
)

// Event is sent to subscribers after every observable change.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Message  string // Human-readable message for display
	Err      error  // Set for SyncFailed
}

// EventKind enumerates controller events.
type EventKind int

const (
	StateChanged EventKind = iota
	Synced
	SyncFailed
	Recorded
)

func (k EventKind) String() string {
	switch k {
	case StateChanged:
		return "state_changed"
	case Synced:
		return "synced"
	case SyncFailed:
		return "sync_failed"
	case Recorded:
		return "recorded"
	default:
		return ""
	}
}

// Snapshot is a read-only view of the controller at one instant.
type Snapshot struct {
	State timer.State
	NowMs int64

	// DisplaySeconds is what the clock face shows: elapsed for the stopwatch, the countdown for a
	// pomodoro and the entered duration in manual mode.
	DisplaySeconds int64
	Clock          string
	RemainingRatio float64

	CanStart        bool
	CanEditPomodoro bool
	AwaitingPhase   bool

	UnsyncedMs    int64
	TodayTotalMs  int64
	WeekTotalMs   int64
	SummaryLoaded bool

	TickArmed bool
	SyncArmed bool
}

func displaySeconds(s timer.State) int64 {
	switch s.Mode {
	case timer.ModePomodoro:
		return timer.PomodoroRemainingSeconds(s)
	case timer.ModeManual:
		return int64(s.Manual.Hours)*3600 + int64(s.Manual.Minutes)*60
	default:
		return s.Stopwatch.ElapsedSeconds
	}
}

func buildSnapshot(s timer.State, nowMs int64) Snapshot {
	display := displaySeconds(s)
	return Snapshot{
		State:           s,
		NowMs:           nowMs,
		DisplaySeconds:  display,
		Clock:           formatter.FormatClockFromSeconds(float64(display)),
		RemainingRatio:  timer.PomodoroRemainingRatio(s),
		CanStart:        timer.CanStart(s),
		CanEditPomodoro: timer.CanEditPomodoroSettings(s),
		AwaitingPhase:   timer.IsPomodoroAwaitingPhaseStart(s),
	}
}
