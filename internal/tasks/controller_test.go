package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/syncstate"
	th "github.com/desertthunder/studyx/internal/testing"
	"github.com/desertthunder/studyx/internal/timer"
)

var t0 = time.Date(2026, time.October, 19, 10, 0, 0, 0, time.Local)

func testConfig() ControllerConfig {
	return ControllerConfig{
		Defaults: timer.Defaults{FocusMinutes: 25, BreakMinutes: 5, Sets: 4},
		Ranges: timer.Ranges{
			FocusMinutes:  timer.Range{Min: 1, Max: 120},
			BreakMinutes:  timer.Range{Min: 1, Max: 60},
			Sets:          timer.Range{Min: 1, Max: 12},
			ManualHours:   timer.Range{Min: 0, Max: 24},
			ManualMinutes: timer.Range{Min: 0, Max: 59},
		},
		TickInterval:     time.Hour,
		SyncInterval:     time.Hour,
		UnloadTimeout:    time.Second,
		FocusStepMinutes: 5,
		BreakStepMinutes: 1,
		RecordTopic:      "Timer",
		UserID:           "u1",
	}
}

type fixture struct {
	cfg      ControllerConfig
	store    *th.MemoryStore
	clock    *th.FakeClock
	api      *th.FakeStudyTimeAPI
	progress *th.FakeProgressAPI
	c        *TimerController
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cfg:      testConfig(),
		store:    th.NewMemoryStore(),
		clock:    th.NewFakeClock(t0),
		api:      &th.FakeStudyTimeAPI{},
		progress: &th.FakeProgressAPI{},
	}
	f.c = f.open(t)
	return f
}

func (f *fixture) open(t *testing.T) *TimerController {
	t.Helper()
	c := NewTimerController(f.cfg, f.store, f.api, f.progress, nil, WithClock(f.clock))
	t.Cleanup(c.Close)
	return c
}

// startStopwatch selects subject and starts a stopwatch at the current fake time.
func (f *fixture) startStopwatch(subject string) {
	f.c.SetSubject(subject)
	f.c.Start()
}

func lastSync(t *testing.T, api *th.FakeStudyTimeAPI) models.SyncRequest {
	t.Helper()
	calls := api.SyncCalls()
	if len(calls) == 0 {
		t.Fatal("expected at least one sync call")
	}
	return calls[len(calls)-1]
}

func TestTimerControllerPersistence(t *testing.T) {
	t.Run("Reload Resumes Running Stopwatch", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(90 * time.Second)
		f.c.Tick()
		f.c.Close()

		f.clock.Advance(30 * time.Second)
		reopened := f.open(t)
		snap := reopened.Snapshot()

		if !snap.State.IsRunning {
			t.Fatal("expected restored timer to be running")
		}
		if snap.State.Stopwatch.ElapsedSeconds != 120 {
			t.Errorf("expected 120s elapsed after reload, got %d", snap.State.Stopwatch.ElapsedSeconds)
		}
		if snap.State.SelectedSubject != "Auditing" {
			t.Errorf("expected subject to survive reload, got %q", snap.State.SelectedSubject)
		}
	})

	t.Run("Writes Through On Every Command", func(t *testing.T) {
		f := newFixture(t)
		f.c.SetManualHours(2)

		raw, err := f.store.GetItem(TimerStateKey)
		if err != nil {
			t.Fatalf("expected persisted timer state: %v", err)
		}
		s := timer.Decode([]byte(raw), t0.UnixMilli(), f.cfg.Defaults, f.cfg.Ranges)
		if s.Manual.Hours != 2 {
			t.Errorf("expected persisted manual hours 2, got %d", s.Manual.Hours)
		}
	})

	t.Run("Storage Failure Does Not Interrupt", func(t *testing.T) {
		f := newFixture(t)
		f.store.FailWrites = true
		f.startStopwatch("Auditing")
		f.clock.Advance(5 * time.Second)
		f.c.Stop()

		if got := f.c.Snapshot().State.Stopwatch.ElapsedSeconds; got != 5 {
			t.Errorf("expected in-memory state to advance, got %d", got)
		}
	})
}

func TestTimerControllerSync(t *testing.T) {
	t.Run("Stop Triggers One Sync", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(10 * time.Second)
		f.c.Stop()
		f.c.Wait()

		calls := f.api.SyncCalls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 sync call, got %d", len(calls))
		}
		want := models.SyncRequest{UserID: "u1", DateKey: "2026-10-19", Subject: "Auditing", TotalMs: 10_000}
		got := calls[0]
		if got.UserID != want.UserID || got.DateKey != want.DateKey || got.Subject != want.Subject || got.TotalMs != want.TotalMs {
			t.Errorf("expected %+v, got %+v", want, got)
		}
		if got.ClientSessionID == "" {
			t.Error("expected a client session id")
		}
	})

	t.Run("Unchanged Total Is Sent Once", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(10 * time.Second)

		sent, err := f.c.SyncNow(context.Background())
		if err != nil || !sent {
			t.Fatalf("expected first sync to send, got %v, %v", sent, err)
		}
		sent, err = f.c.SyncNow(context.Background())
		if err != nil || sent {
			t.Fatalf("expected second sync to be skipped, got %v, %v", sent, err)
		}
		if n := len(f.api.SyncCalls()); n != 1 {
			t.Errorf("expected exactly 1 network call, got %d", n)
		}
	})

	t.Run("Growth Reuses Session", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(10 * time.Second)
		f.c.SyncNow(context.Background())
		f.clock.Advance(5 * time.Second)
		f.c.SyncNow(context.Background())

		calls := f.api.SyncCalls()
		if len(calls) != 2 {
			t.Fatalf("expected 2 sync calls, got %d", len(calls))
		}
		if calls[0].ClientSessionID != calls[1].ClientSessionID {
			t.Error("expected both totals to share a session")
		}
		if calls[1].TotalMs != 15_000 {
			t.Errorf("expected cumulative total 15000, got %d", calls[1].TotalMs)
		}
	})

	t.Run("Skipped Without Subject Or In Manual Mode", func(t *testing.T) {
		f := newFixture(t)
		if sent, _ := f.c.SyncNow(context.Background()); sent {
			t.Error("expected no sync without a subject")
		}

		f.c.SetSubject("Auditing")
		f.c.SetMode(timer.ModeManual)
		f.c.SetManualHours(1)
		if sent, _ := f.c.SyncNow(context.Background()); sent {
			t.Error("expected no sync in manual mode")
		}

		f.c.SetMode(timer.ModeStopwatch)
		if sent, _ := f.c.SyncNow(context.Background()); sent {
			t.Error("expected no sync with zero elapsed")
		}
		if n := len(f.api.SyncCalls()); n != 0 {
			t.Errorf("expected no network calls, got %d", n)
		}
	})

	t.Run("Success Caches Server Totals", func(t *testing.T) {
		f := newFixture(t)
		f.api.Response = models.SyncResponse{AppliedDeltaMs: 10_000, ServerTodayTotalMs: 70_000, ServerWeekTotalMs: 200_000}
		f.startStopwatch("Auditing")
		f.clock.Advance(10 * time.Second)
		f.c.SyncNow(context.Background())

		if got := f.c.UnsyncedElapsedMs(); got != 0 {
			t.Errorf("expected nothing unsynced, got %d", got)
		}
		if got := f.c.TodayTotalMs(); got != 70_000 {
			t.Errorf("expected today total 70000, got %d", got)
		}

		f.clock.Advance(3 * time.Second)
		if got := f.c.UnsyncedElapsedMs(); got != 3_000 {
			t.Errorf("expected 3000 unsynced, got %d", got)
		}
		if got := f.c.WeekTotalMs(); got != 203_000 {
			t.Errorf("expected week total 203000, got %d", got)
		}
	})

	t.Run("Failure Changes Nothing", func(t *testing.T) {
		f := newFixture(t)
		f.api.SyncErr = errors.New("connection refused")
		events := f.c.Subscribe(16)
		f.startStopwatch("Auditing")
		f.clock.Advance(10 * time.Second)

		sent, err := f.c.SyncNow(context.Background())
		if err == nil || sent {
			t.Fatalf("expected failed sync, got %v, %v", sent, err)
		}
		if got := f.c.UnsyncedElapsedMs(); got != 10_000 {
			t.Errorf("expected all 10000ms still unsynced, got %d", got)
		}
		if got := f.c.Snapshot().State.Stopwatch.ElapsedSeconds; got != 10 {
			t.Errorf("expected timer untouched, got %d", got)
		}

		sawFailure := false
		for len(events) > 0 {
			if ev := <-events; ev.Kind == SyncFailed {
				sawFailure = ev.Err != nil
			}
		}
		if !sawFailure {
			t.Error("expected a sync_failed event carrying the error")
		}
	})

	t.Run("Reset Starts New Session", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(10 * time.Second)
		f.c.SyncNow(context.Background())
		first := lastSync(t, f.api)

		f.c.Reset()
		f.c.Start()
		f.clock.Advance(5 * time.Second)
		f.c.SyncNow(context.Background())
		f.c.Wait()

		second := lastSync(t, f.api)
		if second.ClientSessionID == first.ClientSessionID {
			t.Error("expected a new session after reset")
		}
		if second.TotalMs != 5_000 {
			t.Errorf("expected new lineage total 5000, got %d", second.TotalMs)
		}
	})

	t.Run("Mode Switch Flushes Final Total", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(10 * time.Second)
		f.c.SyncNow(context.Background())
		first := lastSync(t, f.api)

		f.clock.Advance(5 * time.Second)
		f.c.SetMode(timer.ModePomodoro)
		f.c.Wait()

		final := lastSync(t, f.api)
		if final.ClientSessionID != first.ClientSessionID || final.TotalMs != 15_000 {
			t.Errorf("expected final total 15000 on the old session, got %+v", final)
		}
		if got := f.c.UnsyncedElapsedMs(); got != 0 {
			t.Errorf("expected nothing unsynced after switch, got %d", got)
		}
	})

	t.Run("Day Change Carries Synced Total", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(10 * time.Second)
		f.c.Stop()
		f.c.Wait()
		first := lastSync(t, f.api)

		f.clock.Set(t0.AddDate(0, 0, 1))
		snap := f.c.Snapshot()
		if snap.State.Stopwatch.ElapsedSeconds != 10 || snap.State.IsRunning {
			t.Errorf("expected timer unchanged by the day change, got %+v", snap.State.Stopwatch)
		}
		if snap.UnsyncedMs != 0 {
			t.Errorf("time acknowledged yesterday must not be unsynced today, got %d", snap.UnsyncedMs)
		}

		if sent, err := f.c.SyncNow(context.Background()); sent || err != nil {
			t.Errorf("expected nothing to send, got sent=%v err=%v", sent, err)
		}
		if got := len(f.api.SyncCalls()); got != 1 {
			t.Fatalf("expected 1 sync call, got %d", got)
		}

		f.c.Start()
		f.clock.Advance(5 * time.Second)
		f.c.SyncNow(context.Background())
		second := lastSync(t, f.api)
		if second.DateKey != "2026-10-20" || second.ClientSessionID == first.ClientSessionID || second.TotalMs != 5_000 {
			t.Errorf("expected only today's 5000 on a new session, got %+v", second)
		}

		stored := syncstate.Load(f.store, f.clock.Now())
		if stored.DateKey != "2026-10-20" || len(stored.Sessions) != 1 || syncstate.CarriedMs(stored, "Auditing") != 10_000 {
			t.Errorf("expected persisted sync state for the new day, got %+v", stored)
		}
	})

	t.Run("Reopening Next Day Does Not Resend", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(10 * time.Second)
		f.c.Stop()
		f.c.Wait()
		f.c.Close()

		f.clock.Set(t0.AddDate(0, 0, 1))
		c := f.open(t)
		if err := c.Init(context.Background()); err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		c.Wait()

		calls := f.api.SyncCalls()
		if len(calls) != 1 || calls[0].DateKey != "2026-10-19" || calls[0].TotalMs != 10_000 {
			t.Errorf("expected the 10s credited to 2026-10-19 only, got %+v", calls)
		}
		if got := c.UnsyncedElapsedMs(); got != 0 {
			t.Errorf("expected nothing unsynced, got %d", got)
		}
	})

	t.Run("Run Spanning Midnight Splits Days", func(t *testing.T) {
		f := newFixture(t)
		f.clock.Set(time.Date(2026, time.October, 19, 23, 59, 50, 0, time.Local))
		f.startStopwatch("Auditing")

		f.clock.Advance(5 * time.Second)
		f.c.SyncNow(context.Background())

		f.clock.Advance(15 * time.Second)
		f.c.SyncNow(context.Background())
		f.c.Stop()
		f.c.Wait()

		calls := f.api.SyncCalls()
		if len(calls) != 2 {
			t.Fatalf("expected 2 sync calls, got %+v", calls)
		}
		if calls[0].DateKey != "2026-10-19" || calls[0].TotalMs != 5_000 {
			t.Errorf("unexpected first day sync %+v", calls[0])
		}
		if calls[1].DateKey != "2026-10-20" || calls[1].TotalMs != 15_000 {
			t.Errorf("expected the remaining 15000 on the new day, got %+v", calls[1])
		}
		if calls[0].TotalMs+calls[1].TotalMs != 20_000 {
			t.Error("the run should be credited exactly once across both days")
		}
	})

	t.Run("Reset After Day Change Drops Carried Total", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(10 * time.Second)
		f.c.Stop()
		f.c.Wait()

		f.clock.Set(t0.AddDate(0, 0, 1))
		f.c.Reset()
		f.c.Start()
		f.clock.Advance(3 * time.Second)
		f.c.SyncNow(context.Background())

		if got := lastSync(t, f.api); got.DateKey != "2026-10-20" || got.TotalMs != 3_000 {
			t.Errorf("expected a fresh 3000 run, got %+v", got)
		}
	})

	t.Run("Visibility Hidden Flushes", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(7 * time.Second)
		f.c.HandleVisibilityChange(true)
		f.c.Wait()

		if got := lastSync(t, f.api).TotalMs; got != 7_000 {
			t.Errorf("expected hidden flush of 7000, got %d", got)
		}
	})

	t.Run("Unload Syncs Synchronously", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.clock.Advance(4 * time.Second)
		f.c.HandleUnload()

		if got := lastSync(t, f.api).TotalMs; got != 4_000 {
			t.Errorf("expected unload sync of 4000, got %d", got)
		}
	})

	t.Run("Unload Gives Up After Timeout", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.UnloadTimeout = 20 * time.Millisecond
		f.api.Gate = make(chan struct{})
		c := f.open(t)
		c.SetSubject("Auditing")
		c.Start()
		f.clock.Advance(4 * time.Second)

		done := make(chan struct{})
		go func() {
			c.HandleUnload()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("expected unload to return after its timeout")
		}
		if got := c.UnsyncedElapsedMs(); got != 4_000 {
			t.Errorf("expected time to stay unsynced, got %d", got)
		}
	})

	t.Run("Pomodoro Completion Syncs", func(t *testing.T) {
		f := newFixture(t)
		f.c.SetMode(timer.ModePomodoro)
		f.c.SetPomodoroSets(1)
		f.c.SetPomodoroFocusMinutes(1)
		f.c.SetSubject("Auditing")
		f.c.Start()

		f.clock.Advance(61 * time.Second)
		f.c.Tick()
		f.c.Wait()

		snap := f.c.Snapshot()
		if snap.State.IsRunning || !snap.State.Pomodoro.Completed {
			t.Fatalf("expected completed pomodoro, got %+v", snap.State.Pomodoro)
		}
		if got := lastSync(t, f.api).TotalMs; got != 60_000 {
			t.Errorf("expected completed focus total 60000, got %d", got)
		}
	})
}

func TestTimerControllerLoops(t *testing.T) {
	tc := []struct {
		name      string
		setup     func(c *TimerController)
		wantTick  bool
		wantSync  bool
		wantStart bool
	}{
		{name: "fresh", setup: func(c *TimerController) {}},
		{name: "start without subject", setup: func(c *TimerController) { c.Start() }},
		{
			name:     "running stopwatch",
			setup:    func(c *TimerController) { c.SetSubject("Auditing"); c.Start() },
			wantTick: true, wantSync: true, wantStart: true,
		},
		{
			name:     "running pomodoro",
			setup:    func(c *TimerController) { c.SetMode(timer.ModePomodoro); c.SetSubject("Auditing"); c.Start() },
			wantTick: true, wantSync: true, wantStart: true,
		},
		{
			name:  "stopped",
			setup: func(c *TimerController) { c.SetSubject("Auditing"); c.Start(); c.Stop() },
		},
		{
			name:  "manual never runs",
			setup: func(c *TimerController) { c.SetMode(timer.ModeManual); c.SetSubject("Auditing"); c.Start() },
		},
		{
			name:  "reset",
			setup: func(c *TimerController) { c.SetSubject("Auditing"); c.Start(); c.Reset() },
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f.c)
			snap := f.c.Snapshot()

			if snap.TickArmed != tt.wantTick {
				t.Errorf("expected tick armed %v, got %v", tt.wantTick, snap.TickArmed)
			}
			if snap.SyncArmed != tt.wantSync {
				t.Errorf("expected sync armed %v, got %v", tt.wantSync, snap.SyncArmed)
			}
			if snap.State.IsRunning != tt.wantStart {
				t.Errorf("expected running %v, got %v", tt.wantStart, snap.State.IsRunning)
			}
		})
	}

	t.Run("Tick Loop Emits", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.TickInterval = 5 * time.Millisecond
		c := f.open(t)
		events := c.Subscribe(64)
		c.SetSubject("Auditing")
		c.Start()
		f.clock.Advance(3 * time.Second)

		deadline := time.After(2 * time.Second)
		for {
			select {
			case ev := <-events:
				if ev.Snapshot.State.Stopwatch.ElapsedSeconds == 3 {
					return
				}
			case <-deadline:
				t.Fatal("expected the tick loop to publish the advanced time")
			}
		}
	})

	t.Run("Init Arms Restored Run", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.c.Close()

		c := f.open(t)
		if c.Snapshot().TickArmed {
			t.Fatal("expected no loops before Init")
		}
		if err := c.Init(context.Background()); err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		snap := c.Snapshot()
		if !snap.TickArmed || !snap.SyncArmed {
			t.Errorf("expected both loops armed after Init, got %+v", snap)
		}
	})
}

func TestTimerControllerInit(t *testing.T) {
	t.Run("Loads Summary", func(t *testing.T) {
		f := newFixture(t)
		f.api.SummaryResponse = models.Summary{TodayTotalMs: 1_000, WeekTotalMs: 9_000}
		if err := f.c.Init(context.Background()); err != nil {
			t.Fatalf("Init failed: %v", err)
		}

		snap := f.c.Snapshot()
		if !snap.SummaryLoaded || snap.TodayTotalMs != 1_000 || snap.WeekTotalMs != 9_000 {
			t.Errorf("expected cached summary, got %+v", snap)
		}
		if n := f.api.SummaryCalls(); n != 1 {
			t.Errorf("expected 1 summary call, got %d", n)
		}
	})

	t.Run("Summary Failure Is Not Fatal", func(t *testing.T) {
		f := newFixture(t)
		f.api.SummaryErr = shared.ErrServiceUnavailable
		if err := f.c.Init(context.Background()); err != nil {
			t.Fatalf("expected Init to tolerate summary failure, got %v", err)
		}
		if f.c.Snapshot().SummaryLoaded {
			t.Error("expected summary to stay unloaded")
		}
	})

	t.Run("Closed", func(t *testing.T) {
		f := newFixture(t)
		f.c.Close()
		if err := f.c.Init(context.Background()); !errors.Is(err, shared.ErrControllerClosed) {
			t.Errorf("expected ErrControllerClosed, got %v", err)
		}
	})
}

func TestTimerControllerCommands(t *testing.T) {
	t.Run("Subject Locked While Running", func(t *testing.T) {
		f := newFixture(t)
		f.startStopwatch("Auditing")
		f.c.SetSubject("Tax Law")
		if got := f.c.Snapshot().State.SelectedSubject; got != "Auditing" {
			t.Errorf("expected subject change to be refused, got %q", got)
		}
	})

	t.Run("Pomodoro Settings Ignored While Running", func(t *testing.T) {
		f := newFixture(t)
		f.c.SetMode(timer.ModePomodoro)
		f.c.SetSubject("Auditing")
		f.c.Start()
		f.c.SetPomodoroFocusMinutes(50)
		f.c.AdjustPomodoroBreak(3)
		f.c.SetPomodoroSets(8)

		p := f.c.Snapshot().State.Pomodoro
		if p.FocusMinutes != 25 || p.BreakMinutes != 5 || p.Sets != 4 {
			t.Errorf("expected settings unchanged while running, got %+v", p)
		}
	})

	t.Run("Adjusters Step And Clamp", func(t *testing.T) {
		f := newFixture(t)
		f.c.AdjustPomodoroFocus(1)
		f.c.AdjustPomodoroBreak(-10)
		f.c.AdjustManualMinutes(70)
		f.c.AdjustManualHours(-1)

		s := f.c.Snapshot().State
		if s.Pomodoro.FocusMinutes != 30 {
			t.Errorf("expected focus 30, got %d", s.Pomodoro.FocusMinutes)
		}
		if s.Pomodoro.BreakMinutes != 1 {
			t.Errorf("expected break clamped to 1, got %d", s.Pomodoro.BreakMinutes)
		}
		if s.Manual.Minutes != 59 || s.Manual.Hours != 0 {
			t.Errorf("expected manual 0h 59m, got %+v", s.Manual)
		}
	})

	t.Run("Snapshot Display", func(t *testing.T) {
		f := newFixture(t)
		f.c.SetMode(timer.ModePomodoro)
		snap := f.c.Snapshot()
		if snap.Clock != "25:00" || snap.RemainingRatio != 1 || !snap.AwaitingPhase {
			t.Errorf("expected awaiting 25:00 pomodoro, got %+v", snap)
		}

		f.c.SetMode(timer.ModeManual)
		f.c.SetManualHours(1)
		f.c.SetManualMinutes(5)
		if got := f.c.Snapshot().Clock; got != "01:05:00" {
			t.Errorf("expected manual clock 01:05:00, got %q", got)
		}
	})
}

func TestTimerControllerClose(t *testing.T) {
	t.Run("No Events After Close", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.TickInterval = time.Millisecond
		c := f.open(t)
		events := c.Subscribe(8)
		c.SetSubject("Auditing")
		c.Start()
		c.Close()

		for range events {
		}

		c.Stop()
		c.SetManualHours(3)
		if snap := c.Snapshot(); snap.TickArmed || snap.SyncArmed {
			t.Errorf("expected loops stopped, got %+v", snap)
		}
		if _, err := c.SyncNow(context.Background()); !errors.Is(err, shared.ErrControllerClosed) {
			t.Errorf("expected ErrControllerClosed, got %v", err)
		}
	})

	t.Run("Cancels In Flight Sync", func(t *testing.T) {
		f := newFixture(t)
		f.api.Gate = make(chan struct{})
		f.startStopwatch("Auditing")
		f.clock.Advance(time.Second)
		f.c.Stop()

		done := make(chan struct{})
		go func() {
			f.c.Close()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("expected Close to cancel the blocked request")
		}
	})

	t.Run("Subscribe After Close", func(t *testing.T) {
		f := newFixture(t)
		f.c.Close()
		if _, ok := <-f.c.Subscribe(1); ok {
			t.Error("expected a closed channel")
		}
	})
}
