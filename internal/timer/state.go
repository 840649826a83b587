// package timer implements the study timer as pure transition functions over [State].
//
// Every function takes a State and returns a new one; none reads the wall clock. Callers pass the current
// time as Unix milliseconds so elapsed and remaining values are recomputed from an anchor rather than
// accumulated per tick.
package timer

// Mode selects which group of [State] is live.
type Mode string

const (
	ModeStopwatch Mode = "stopwatch"
	ModePomodoro  Mode = "pomodoro"
	ModeManual    Mode = "manual"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeStopwatch || m == ModePomodoro || m == ModeManual
}

// Phase is one of the two pomodoro sub-periods.
type Phase string

const (
	PhaseFocus Phase = "focus"
	PhaseBreak Phase = "break"
)

// Range is an inclusive integer bound.
type Range struct {
	Min int
	Max int
}

// Clamp returns v limited to [r.Min, r.Max].
func (r Range) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Defaults are the pomodoro settings used for a fresh state and for unreadable persisted fields.
type Defaults struct {
	FocusMinutes int
	BreakMinutes int
	Sets         int
}

// Ranges bound every user-editable numeric field.
type Ranges struct {
	FocusMinutes  Range
	BreakMinutes  Range
	Sets          Range
	ManualHours   Range
	ManualMinutes Range
}

// Stopwatch is the count-up group.
type Stopwatch struct {
	ElapsedSeconds int64
}

// Manual holds a hand-entered duration.
type Manual struct {
	Hours   int
	Minutes int
}

// Pomodoro holds both the configuration (minutes and sets, kept across mode switches) and the run progress.
type Pomodoro struct {
	FocusMinutes int
	BreakMinutes int
	Sets         int

	CurrentSet int
	Phase      Phase
	// RemainingSeconds is only meaningful when PhaseStarted; otherwise the phase total applies.
	RemainingSeconds int64
	PhaseStarted     bool
	// FocusAccumulatedSeconds counts focus time from expired or paused segments of this run.
	FocusAccumulatedSeconds int64
	Completed               bool
}

// Anchor marks the wall-clock start of the current running segment and the value
// (elapsed for stopwatch, remaining for pomodoro) at that instant.
type Anchor struct {
	StartedAtMs int64
	BaseSeconds int64
}

// State is the complete timer state. Only the group selected by Mode is live.
type State struct {
	Mode            Mode
	IsRunning       bool
	SelectedSubject string

	Stopwatch Stopwatch
	Manual    Manual
	Pomodoro  Pomodoro
	Anchor    Anchor
}

// NewState builds a stopped stopwatch with pomodoro settings taken from d.
func NewState(d Defaults, r Ranges) State {
	return State{
		Mode: ModeStopwatch,
		Pomodoro: resetPomodoro(Pomodoro{
			FocusMinutes: r.FocusMinutes.Clamp(d.FocusMinutes),
			BreakMinutes: r.BreakMinutes.Clamp(d.BreakMinutes),
			Sets:         r.Sets.Clamp(d.Sets),
		}),
	}
}

// resetPomodoro keeps the configuration and returns the run to awaiting the first focus phase.
func resetPomodoro(p Pomodoro) Pomodoro {
	return Pomodoro{
		FocusMinutes:     p.FocusMinutes,
		BreakMinutes:     p.BreakMinutes,
		Sets:             p.Sets,
		CurrentSet:       1,
		Phase:            PhaseFocus,
		RemainingSeconds: int64(p.FocusMinutes) * 60,
	}
}
