package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/studyx/internal/formatter"
	"github.com/desertthunder/studyx/internal/tasks"
	"github.com/desertthunder/studyx/internal/timer"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TimerView ViewState = iota
	SubjectView
	ConfirmView
)

var modes = []timer.Mode{timer.ModeStopwatch, timer.ModePomodoro, timer.ModeManual}

const barWidth = 30

// Timer is the controller surface the TUI drives. [tasks.TimerController] implements it.
type Timer interface {
	Snapshot() tasks.Snapshot
	Subscribe(buffer int) <-chan tasks.Event

	SetMode(mode timer.Mode)
	SetSubject(subject string)
	Start()
	Stop()
	Reset()

	AdjustManualHours(deltaSteps int)
	AdjustManualMinutes(deltaSteps int)
	AdjustPomodoroFocus(deltaSteps int)
	AdjustPomodoroBreak(deltaSteps int)
	SetPomodoroSets(sets int)

	HandleVisibilityChange(hidden bool)
	SyncNow(ctx context.Context) (bool, error)
	SaveRecord(ctx context.Context, refresh func()) (tasks.RecordResult, error)
}

var _ Timer = (*tasks.TimerController)(nil)

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	timer       Timer
	events      <-chan tasks.Event
	snapshot    tasks.Snapshot
	subjects    []string
	subjectList list.Model
	width       int
	height      int
	status      string
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model for t offering subjects in the subject picker.
func NewModel(ctx context.Context, t Timer, subjects []string) *Model {
	return &Model{
		ctx:      ctx,
		view:     TimerView,
		timer:    t,
		events:   t.Subscribe(32),
		snapshot: t.Snapshot(),
		subjects: subjects,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts listening for controller events.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.view == SubjectView {
			m.subjectList.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case tea.BlurMsg:
		m.timer.HandleVisibilityChange(true)
		return m, nil

	case tea.FocusMsg:
		m.timer.HandleVisibilityChange(false)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TimerView:
			return m.handleTimerKeys(msg)
		case SubjectView:
			return m.handleSubjectKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == SubjectView {
		var cmd tea.Cmd
		m.subjectList, cmd = m.subjectList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgControllerEvent:
		e := msg.data.(tasks.Event)
		m.snapshot = e.Snapshot
		switch e.Kind {
		case tasks.SyncFailed:
			m.err = e.Err
		case tasks.Synced:
			m.err = nil
		case tasks.Recorded:
			m.status = e.Message
			m.err = nil
		}
		return m, m.waitForEvent()

	case MsgEventsClosed:
		m.events = nil
		return m, nil

	case MsgRecordSaved:
		data := msg.data.(struct {
			result tasks.RecordResult
			err    error
		})
		m.status = data.result.Message
		m.err = data.err
		m.snapshot = m.timer.Snapshot()
		return m, nil

	case MsgSyncDone:
		data := msg.data.(struct {
			sent bool
			err  error
		})
		switch {
		case data.err != nil:
			m.err = data.err
		case data.sent:
			m.status = "Synced."
			m.err = nil
		default:
			m.status = "Nothing to sync."
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SubjectView:
		return m.renderSubjects()
	case ConfirmView:
		return m.renderConfirm()
	default:
		return m.renderTimer()
	}
}

func (m *Model) handleTimerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.snapshot.State
	k := m.keys

	switch {
	case key.Matches(msg, k.quit):
		return m, tea.Quit
	case key.Matches(msg, k.toggle):
		if s.IsRunning {
			m.timer.Stop()
		} else {
			m.timer.Start()
		}
	case key.Matches(msg, k.reset):
		m.timer.Reset()
	case key.Matches(msg, k.mode):
		m.timer.SetMode(nextMode(s.Mode))
	case key.Matches(msg, k.subject):
		if s.IsRunning {
			m.status = "Stop the timer before changing the subject."
			return m, nil
		}
		m.openSubjects()
	case key.Matches(msg, k.record):
		m.view = ConfirmView
	case key.Matches(msg, k.sync):
		return m, m.syncNow()
	case key.Matches(msg, k.more):
		m.adjustPrimary(s.Mode, 1)
	case key.Matches(msg, k.less):
		m.adjustPrimary(s.Mode, -1)
	case key.Matches(msg, k.moreAlt):
		m.adjustSecondary(s.Mode, 1)
	case key.Matches(msg, k.lessAlt):
		m.adjustSecondary(s.Mode, -1)
	case key.Matches(msg, k.moreSets):
		m.timer.SetPomodoroSets(s.Pomodoro.Sets + 1)
	case key.Matches(msg, k.lessSets):
		m.timer.SetPomodoroSets(s.Pomodoro.Sets - 1)
	case key.Matches(msg, k.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	default:
		return m, nil
	}

	m.snapshot = m.timer.Snapshot()
	return m, nil
}

func (m *Model) adjustPrimary(mode timer.Mode, delta int) {
	switch mode {
	case timer.ModeManual:
		m.timer.AdjustManualHours(delta)
	case timer.ModePomodoro:
		m.timer.AdjustPomodoroFocus(delta)
	}
}

func (m *Model) adjustSecondary(mode timer.Mode, delta int) {
	switch mode {
	case timer.ModeManual:
		m.timer.AdjustManualMinutes(delta)
	case timer.ModePomodoro:
		m.timer.AdjustPomodoroBreak(delta)
	}
}

func (m *Model) openSubjects() {
	m.subjectList = list.New(subjectItems(m.subjects, m.snapshot.State.SelectedSubject), list.NewDefaultDelegate(), 0, 0)
	m.subjectList.Title = "Subjects"
	m.subjectList.SetSize(m.width-4, m.height-6)
	m.view = SubjectView
}

func (m *Model) handleSubjectKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.subjectList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.subjectList, cmd = m.subjectList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = TimerView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.subjectList.SelectedItem().(subjectItem); ok {
			m.timer.SetSubject(item.name)
			m.snapshot = m.timer.Snapshot()
		}
		m.view = TimerView
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.subjectList, cmd = m.subjectList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = TimerView
		m.status = "Saving record..."
		return m, m.saveRecord()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = TimerView
	}
	return m, nil
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg()
		}
		return controllerEventMsg(e)
	}
}

func (m *Model) saveRecord() tea.Cmd {
	return func() tea.Msg {
		result, err := m.timer.SaveRecord(m.ctx, nil)
		return recordSavedMsg(result, err)
	}
}

func (m *Model) syncNow() tea.Cmd {
	return func() tea.Msg {
		sent, err := m.timer.SyncNow(m.ctx)
		return syncDoneMsg(sent, err)
	}
}

func (m *Model) renderTimer() string {
	snap := m.snapshot
	s := snap.State

	var b strings.Builder
	b.WriteString(styles.title.Render("Study Timer"))
	b.WriteString("\n")
	b.WriteString(renderModes(s.Mode))
	b.WriteString("\n\n")

	subject := s.SelectedSubject
	if subject == "" {
		subject = styles.warn.Render("no subject (press s)")
	}
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	b.WriteString(styles.clock.Render(snap.Clock))
	b.WriteString("\n")

	switch s.Mode {
	case timer.ModePomodoro:
		b.WriteString(renderPomodoro(snap))
	case timer.ModeManual:
		fmt.Fprintf(&b, "Manual entry: %dh %dm\n", s.Manual.Hours, s.Manual.Minutes)
	default:
		if s.IsRunning {
			b.WriteString(styles.ok.Render("running") + "\n")
		} else {
			b.WriteString(styles.help.Render("stopped") + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderTotals())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(styles.ok.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func renderModes(current timer.Mode) string {
	labels := make([]string, len(modes))
	for i, mode := range modes {
		label := string(mode)
		if mode == current {
			labels[i] = styles.active.Render(label)
		} else {
			labels[i] = styles.help.Render(label)
		}
	}
	return strings.Join(labels, "  ")
}

func renderPomodoro(snap tasks.Snapshot) string {
	p := snap.State.Pomodoro
	if p.Completed {
		return styles.ok.Render(fmt.Sprintf("All %d sets complete", p.Sets)) + "\n"
	}

	filled := min(max(int(snap.RemainingRatio*barWidth), 0), barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	status := fmt.Sprintf("Set %d/%d • %s • focus %dm / break %dm", p.CurrentSet, p.Sets, p.Phase, p.FocusMinutes, p.BreakMinutes)
	if snap.AwaitingPhase {
		status += " • " + styles.warn.Render("press space to begin")
	}
	return fmt.Sprintf("%s\n%s\n", bar, status)
}

func (m *Model) renderTotals() string {
	snap := m.snapshot
	if !snap.SummaryLoaded {
		return styles.help.Render("Today and week totals unavailable") + "\n"
	}
	today := formatter.FormatHours(msToHours(snap.TodayTotalMs))
	week := formatter.FormatHours(msToHours(snap.WeekTotalMs))
	line := fmt.Sprintf("Today %s • Week %s", today, week)
	if snap.UnsyncedMs > 0 {
		line += styles.help.Render(fmt.Sprintf(" (%s unsynced)", formatter.FormatHours(msToHours(snap.UnsyncedMs))))
	}
	return line + "\n"
}

func (m *Model) renderSubjects() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.back}
	return fmt.Sprintf("%s\n\n%s", m.subjectList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	s := m.snapshot.State
	title := styles.title.Render("Save this session as a progress record?")

	subject := s.SelectedSubject
	if subject == "" {
		subject = "(none)"
	}
	info := fmt.Sprintf("\nSubject: %s\nTime: %s\n", subject, formatter.FormatHours(timer.RecordHours(s)))
	if s.IsRunning {
		info += styles.warn.Render("The timer will be stopped.") + "\n"
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func nextMode(current timer.Mode) timer.Mode {
	for i, mode := range modes {
		if mode == current {
			return modes[(i+1)%len(modes)]
		}
	}
	return timer.ModeStopwatch
}

func msToHours(ms int64) float64 {
	return float64(ms) / 3_600_000
}
