package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/timer"
)

// TimerStateKey is the storage key of the persisted timer state.
const TimerStateKey = "studyTimerState"

// StudyTimeAPI is the idempotent study-time endpoint pair.
type StudyTimeAPI interface {
	Sync(ctx context.Context, req models.SyncRequest) (*models.SyncResponse, error)
	Summary(ctx context.Context, userID, dateKey string) (*models.Summary, error)
}

// ProgressAPI is the subset of the progress endpoints used to commit records.
type ProgressAPI interface {
	ListBySubject(ctx context.Context, subject string) ([]models.ProgressRecord, error)
	Create(ctx context.Context, p models.ProgressCreate) (*models.ProgressRecord, error)
	Update(ctx context.Context, id int64, u models.ProgressUpdate) (*models.ProgressRecord, error)
}

// Storage is a durable string key/value store.
type Storage interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ControllerConfig holds the timer defaults, editable ranges and scheduling intervals.
type ControllerConfig struct {
	Defaults timer.Defaults
	Ranges   timer.Ranges

	TickInterval  time.Duration
	SyncInterval  time.Duration
	UnloadTimeout time.Duration

	FocusStepMinutes int
	BreakStepMinutes int

	RecordTopic string
	UserID      string
}

// NewControllerConfig translates the [timer] and [api] sections of cfg.
func NewControllerConfig(cfg *shared.Config) ControllerConfig {
	t := cfg.Timer
	r := t.Ranges
	return ControllerConfig{
		Defaults: timer.Defaults{
			FocusMinutes: t.Pomodoro.FocusMinutes,
			BreakMinutes: t.Pomodoro.BreakMinutes,
			Sets:         t.Pomodoro.Sets,
		},
		Ranges: timer.Ranges{
			FocusMinutes:  timer.Range{Min: r.FocusMinutes.Min, Max: r.FocusMinutes.Max},
			BreakMinutes:  timer.Range{Min: r.BreakMinutes.Min, Max: r.BreakMinutes.Max},
			Sets:          timer.Range{Min: r.Sets.Min, Max: r.Sets.Max},
			ManualHours:   timer.Range{Min: r.ManualHours.Min, Max: r.ManualHours.Max},
			ManualMinutes: timer.Range{Min: r.ManualMinutes.Min, Max: r.ManualMinutes.Max},
		},
		TickInterval:     time.Duration(t.TickIntervalMs) * time.Millisecond,
		SyncInterval:     time.Duration(t.SyncIntervalSeconds) * time.Second,
		UnloadTimeout:    time.Duration(t.UnloadTimeoutMs) * time.Millisecond,
		FocusStepMinutes: t.FocusStepMinutes,
		BreakStepMinutes: t.BreakStepMinutes,
		RecordTopic:      t.RecordTopic,
		UserID:           cfg.API.UserID,
	}
}

// withDefaults fills zero intervals so a hand-built config cannot arm a zero-period ticker.
func (c ControllerConfig) withDefaults() ControllerConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = 60 * time.Second
	}
	if c.UnloadTimeout <= 0 {
		c.UnloadTimeout = 2 * time.Second
	}
	if c.RecordTopic == "" {
		c.RecordTopic = "Timer"
	}
	return c
}
