package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/studyx/internal/formatter"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/syncstate"
	"github.com/desertthunder/studyx/internal/timer"
)

// TimerController owns the timer and sync states, schedules the tick and sync loops and
// persists both states after every change.
type TimerController struct {
	cfg       ControllerConfig
	store     Storage
	studyTime StudyTimeAPI
	progress  ProgressAPI
	clock     Clock
	logger    *log.Logger

	mu            sync.Mutex
	state         timer.State
	syncState     syncstate.State
	serverTodayMs int64
	serverWeekMs  int64
	summaryLoaded bool
	subscribers   []chan Event
	tickStop      chan struct{}
	syncStop      chan struct{}
	closed        bool

	// syncMu serializes sync steps so back-to-back triggers never send the same total twice.
	syncMu sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	loops  sync.WaitGroup
	jobs   sync.WaitGroup
}

// Option configures a [TimerController].
type Option func(*TimerController)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *TimerController) { c.clock = clock }
}

// NewTimerController loads the persisted timer and sync states from store.
// Nothing is scheduled until [TimerController.Init].
func NewTimerController(
	cfg ControllerConfig,
	store Storage,
	studyTime StudyTimeAPI,
	progress ProgressAPI,
	logger *log.Logger,
	opts ...Option,
) *TimerController {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	c := &TimerController{
		cfg:       cfg.withDefaults(),
		store:     store,
		studyTime: studyTime,
		progress:  progress,
		clock:     systemClock{},
		logger:    shared.WithLogger(logger, "component", "timer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	now := c.clock.Now()
	c.state = c.loadTimer(now.UnixMilli())
	c.syncState = c.pruneCarried(syncstate.Load(store, now), now.UnixMilli())
	return c
}

func (c *TimerController) loadTimer(nowMs int64) timer.State {
	raw, err := c.store.GetItem(TimerStateKey)
	if err != nil {
		if !errors.Is(err, shared.ErrKeyNotFound) {
			c.logger.Debug("failed to read timer state", "err", err)
		}
		return timer.NewState(c.cfg.Defaults, c.cfg.Ranges)
	}
	return timer.Decode([]byte(raw), nowMs, c.cfg.Defaults, c.cfg.Ranges)
}

// Init fetches the server summary once, sends any time left unsynced by a previous process and arms the loops
// a restored running timer needs. A failed summary fetch is logged and not returned.
func (c *TimerController) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrControllerClosed
	}
	c.rolloverLocked(c.clock.Now())
	dateKey := c.syncState.DateKey
	c.mu.Unlock()

	summary, err := c.studyTime.Summary(ctx, c.cfg.UserID, dateKey)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return shared.ErrControllerClosed
	}

	switch {
	case err != nil:
		c.logger.Warn("failed to load study summary", "date", dateKey, "err", err)
	case !c.summaryLoaded && dateKey == c.syncState.DateKey:
		c.serverTodayMs = summary.TodayTotalMs
		c.serverWeekMs = summary.WeekTotalMs
		c.summaryLoaded = true
	}

	c.persistTimerLocked()
	c.flushLocked(c.nowMs())
	c.reconcileLoopsLocked()
	c.emitLocked(StateChanged, "", nil)
	return nil
}

// Close stops both loops, cancels in-flight requests and closes subscriber channels.
// No event is delivered after Close returns.
func (c *TimerController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.tickStop != nil {
		close(c.tickStop)
		c.tickStop = nil
	}
	if c.syncStop != nil {
		close(c.syncStop)
		c.syncStop = nil
	}
	subs := c.subscribers
	c.subscribers = nil
	c.mu.Unlock()

	c.cancel()
	c.loops.Wait()
	c.jobs.Wait()

	for _, ch := range subs {
		close(ch)
	}
}

// Wait blocks until background sync requests started so far have returned.
func (c *TimerController) Wait() {
	c.jobs.Wait()
}

// Subscribe returns a channel receiving every subsequent [Event]. Events that do not fit in the buffer are dropped.
func (c *TimerController) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch
	}
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// Snapshot returns the current view, recomputed from the anchor.
func (c *TimerController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(c.nowMs())
}

// UnsyncedElapsedMs is the study time of the current run not yet acknowledged by the server.
func (c *TimerController) UnsyncedElapsedMs() int64 {
	return c.Snapshot().UnsyncedMs
}

// TodayTotalMs is the server's total for today plus the unsynced time.
func (c *TimerController) TodayTotalMs() int64 {
	return c.Snapshot().TodayTotalMs
}

// WeekTotalMs is the server's total for the week plus the unsynced time.
func (c *TimerController) WeekTotalMs() int64 {
	return c.Snapshot().WeekTotalMs
}

func (c *TimerController) SetMode(mode timer.Mode) {
	c.apply(func(s timer.State, _ int64) timer.State { return timer.SetMode(s, mode) })
}

// SetSubject selects the subject. It is ignored while running.
func (c *TimerController) SetSubject(subject string) {
	subject = strings.TrimSpace(subject)
	c.apply(func(s timer.State, _ int64) timer.State { return timer.SetSubject(s, subject) })
}

func (c *TimerController) Start() {
	c.apply(timer.Start)
}

func (c *TimerController) Stop() {
	c.apply(timer.Stop)
}

func (c *TimerController) Reset() {
	c.apply(func(s timer.State, _ int64) timer.State { return timer.Reset(s) })
}

// Tick recomputes the running timer. The tick loop calls it on every interval.
func (c *TimerController) Tick() {
	c.apply(func(s timer.State, _ int64) timer.State { return s })
}

func (c *TimerController) SetManualHours(hours int) {
	c.apply(func(s timer.State, _ int64) timer.State { return timer.SetManualHours(s, hours, c.cfg.Ranges) })
}

func (c *TimerController) SetManualMinutes(minutes int) {
	c.apply(func(s timer.State, _ int64) timer.State { return timer.SetManualMinutes(s, minutes, c.cfg.Ranges) })
}

// AdjustManualHours moves the manual hours by deltaSteps within range.
func (c *TimerController) AdjustManualHours(deltaSteps int) {
	r := c.cfg.Ranges.ManualHours
	c.apply(func(s timer.State, _ int64) timer.State {
		return timer.SetManualHours(s, formatter.AdjustByStep(s.Manual.Hours, deltaSteps, r.Min, r.Max), c.cfg.Ranges)
	})
}

// AdjustManualMinutes moves the manual minutes by deltaSteps within range.
func (c *TimerController) AdjustManualMinutes(deltaSteps int) {
	r := c.cfg.Ranges.ManualMinutes
	c.apply(func(s timer.State, _ int64) timer.State {
		return timer.SetManualMinutes(s, formatter.AdjustByStep(s.Manual.Minutes, deltaSteps, r.Min, r.Max), c.cfg.Ranges)
	})
}

// SetPomodoroFocusMinutes is ignored while running, as are the other pomodoro setters.
func (c *TimerController) SetPomodoroFocusMinutes(minutes int) {
	c.applyPomodoro(func(s timer.State) timer.State { return timer.SetPomodoroFocusMinutes(s, minutes, c.cfg.Ranges) })
}

func (c *TimerController) SetPomodoroBreakMinutes(minutes int) {
	c.applyPomodoro(func(s timer.State) timer.State { return timer.SetPomodoroBreakMinutes(s, minutes, c.cfg.Ranges) })
}

func (c *TimerController) SetPomodoroSets(sets int) {
	c.applyPomodoro(func(s timer.State) timer.State { return timer.SetPomodoroSets(s, sets, c.cfg.Ranges) })
}

// AdjustPomodoroFocus moves the focus length by deltaSteps focus steps.
func (c *TimerController) AdjustPomodoroFocus(deltaSteps int) {
	r := c.cfg.Ranges.FocusMinutes
	c.applyPomodoro(func(s timer.State) timer.State {
		m := formatter.AdjustPomodoroMinutes(s.Pomodoro.FocusMinutes, deltaSteps, c.cfg.FocusStepMinutes, r.Min, r.Max)
		return timer.SetPomodoroFocusMinutes(s, m, c.cfg.Ranges)
	})
}

// AdjustPomodoroBreak moves the break length by deltaSteps break steps.
func (c *TimerController) AdjustPomodoroBreak(deltaSteps int) {
	r := c.cfg.Ranges.BreakMinutes
	c.applyPomodoro(func(s timer.State) timer.State {
		m := formatter.AdjustPomodoroMinutes(s.Pomodoro.BreakMinutes, deltaSteps, c.cfg.BreakStepMinutes, r.Min, r.Max)
		return timer.SetPomodoroBreakMinutes(s, m, c.cfg.Ranges)
	})
}

// HandleVisibilityChange syncs when the view is hidden and refreshes the display when it returns.
func (c *TimerController) HandleVisibilityChange(hidden bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	nowMs := c.nowMs()
	if hidden {
		c.flushLocked(nowMs)
		return
	}
	c.applyLocked(nowMs, func(s timer.State, _ int64) timer.State { return s })
}

// HandleUnload makes one bounded, best-effort sync attempt. Errors are logged.
func (c *TimerController) HandleUnload() {
	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.UnloadTimeout)
	defer cancel()

	if _, err := c.SyncNow(ctx); err != nil && !errors.Is(err, shared.ErrControllerClosed) {
		c.logger.Debug("unload sync failed", "err", err)
	}
}

func (c *TimerController) applyPomodoro(fn func(timer.State) timer.State) {
	c.apply(func(s timer.State, _ int64) timer.State {
		if !timer.CanEditPomodoroSettings(s) {
			return s
		}
		return fn(s)
	})
}

func (c *TimerController) apply(fn func(timer.State, int64) timer.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.applyLocked(c.nowMs(), fn)
}

// applyLocked brings the timer up to date, applies fn and handles the side effects of the transition:
// a run that stops is synced, and a run whose progress is discarded is synced one last time before its
// session is retired.
func (c *TimerController) applyLocked(nowMs int64, fn func(timer.State, int64) timer.State) {
	before := c.state
	current := timer.Tick(before, nowMs)
	next := fn(current, nowMs)

	switch {
	case lineageEnded(current, next, nowMs):
		c.state = current
		c.flushLocked(nowMs)
		c.syncState = syncstate.RetireSession(c.syncState, current.SelectedSubject)
		c.saveSyncLocked()
	case before.IsRunning && !next.IsRunning:
		c.state = next
		c.flushLocked(nowMs)
	}

	c.state = next
	if next != before {
		c.persistTimerLocked()
	}
	c.reconcileLoopsLocked()
	c.emitLocked(StateChanged, "", nil)
}

// lineageEnded reports whether the transition from a to b discards the study time a has accrued.
func lineageEnded(a, b timer.State, nowMs int64) bool {
	if a.SelectedSubject == "" {
		return false
	}
	return a.SelectedSubject != b.SelectedSubject ||
		a.Mode != b.Mode ||
		timer.StudyElapsedMs(b, nowMs) < timer.StudyElapsedMs(a, nowMs)
}

// reconcileLoopsLocked arms or stops the tick and sync loops to match the current state.
func (c *TimerController) reconcileLoopsLocked() {
	if c.closed {
		return
	}

	s := c.state
	ticking := s.IsRunning && (s.Mode == timer.ModeStopwatch || s.Mode == timer.ModePomodoro)
	syncing := ticking && s.SelectedSubject != ""

	c.tickStop = c.armLocked(c.tickStop, ticking, c.cfg.TickInterval, c.Tick)
	c.syncStop = c.armLocked(c.syncStop, syncing, c.cfg.SyncInterval, c.periodicSync)
}

func (c *TimerController) armLocked(stop chan struct{}, want bool, every time.Duration, fn func()) chan struct{} {
	switch {
	case want && stop == nil:
		stop = make(chan struct{})
		c.loops.Add(1)
		go c.loop(stop, every, fn)
	case !want && stop != nil:
		close(stop)
		stop = nil
	}
	return stop
}

func (c *TimerController) loop(stop <-chan struct{}, every time.Duration, fn func()) {
	defer c.loops.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (c *TimerController) periodicSync() {
	_, _ = c.SyncNow(c.ctx)
}

// emitLocked sends an event to every subscriber without blocking.
func (c *TimerController) emitLocked(kind EventKind, msg string, err error) {
	if c.closed || len(c.subscribers) == 0 {
		return
	}

	ev := Event{Kind: kind, Snapshot: c.snapshotLocked(c.nowMs()), Message: msg, Err: err}
	for _, ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (c *TimerController) snapshotLocked(nowMs int64) Snapshot {
	s := timer.Tick(c.state, nowMs)
	snap := buildSnapshot(s, nowMs)

	today, week := c.serverTodayMs, c.serverWeekMs
	view := syncstate.Rollover(c.syncState, time.UnixMilli(nowMs))
	if view.DateKey != c.syncState.DateKey {
		today = 0
		if !sameWeek(view.DateKey, c.syncState.DateKey) {
			week = 0
		}
	}

	if s.Mode != timer.ModeManual && s.SelectedSubject != "" {
		snap.UnsyncedMs = syncstate.Unsynced(view, s.SelectedSubject, timer.StudyElapsedMs(s, nowMs))
	}
	snap.TodayTotalMs = today + snap.UnsyncedMs
	snap.WeekTotalMs = week + snap.UnsyncedMs
	snap.SummaryLoaded = c.summaryLoaded
	snap.TickArmed = c.tickStop != nil
	snap.SyncArmed = c.syncStop != nil
	return snap
}

// rolloverLocked starts a new sync day when the local date has changed. Cached server totals for the
// previous day (and week, when it changed too) no longer apply.
func (c *TimerController) rolloverLocked(now time.Time) {
	rolled := syncstate.Rollover(c.syncState, now)
	if rolled.DateKey == c.syncState.DateKey {
		return
	}

	c.serverTodayMs = 0
	if !sameWeek(rolled.DateKey, c.syncState.DateKey) {
		c.serverWeekMs = 0
	}
	c.syncState = c.pruneCarried(rolled, now.UnixMilli())
	c.saveSyncLocked()
}

// pruneCarried drops carried totals that cannot belong to the current run: those of other subjects and
// those larger than the run itself, left behind when the timer state was lost.
func (c *TimerController) pruneCarried(s syncstate.State, nowMs int64) syncstate.State {
	run := timer.StudyElapsedMs(timer.Tick(c.state, nowMs), nowMs)
	for subject, ms := range s.Carried {
		if subject != c.state.SelectedSubject || ms > run {
			s = syncstate.RetireSession(s, subject)
		}
	}
	return s
}

func sameWeek(a, b string) bool {
	wa, err := shared.WeekStartKey(a)
	if err != nil {
		return false
	}
	wb, err := shared.WeekStartKey(b)
	return err == nil && wa == wb
}

func (c *TimerController) persistTimerLocked() {
	data, err := json.Marshal(timer.Serialize(c.state))
	if err != nil {
		c.logger.Debug("failed to encode timer state", "err", err)
		return
	}
	if err := c.store.SetItem(TimerStateKey, string(data)); err != nil {
		c.logger.Debug("failed to persist timer state", "err", err)
	}
}

func (c *TimerController) saveSyncLocked() {
	if err := syncstate.Save(c.store, c.syncState); err != nil {
		c.logger.Debug("failed to persist sync state", "err", err)
	}
}

func (c *TimerController) nowMs() int64 {
	return c.clock.Now().UnixMilli()
}
