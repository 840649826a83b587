package timer

import (
	"encoding/json"
	"math"
)

// Record is the persisted form of [State].
type Record struct {
	Mode            string `json:"mode"`
	IsRunning       bool   `json:"isRunning"`
	SelectedSubject string `json:"selectedSubject"`
	ElapsedTime     int64  `json:"elapsedTime"`
	ManualHours     int    `json:"manualHours"`
	ManualMinutes   int    `json:"manualMinutes"`

	PomodoroFocusMinutes     int    `json:"pomodoroFocusMinutes"`
	PomodoroBreakMinutes     int    `json:"pomodoroBreakMinutes"`
	PomodoroSets             int    `json:"pomodoroSets"`
	PomodoroCurrentSet       int    `json:"pomodoroCurrentSet"`
	PomodoroPhase            string `json:"pomodoroPhase"`
	PomodoroRemainingSeconds *int64 `json:"pomodoroRemainingSeconds"`
	PomodoroFocusSeconds     int64  `json:"pomodoroFocusSeconds"`
	PomodoroCompleted        bool   `json:"pomodoroCompleted"`

	StartedAtMs       int64 `json:"startedAtMs"`
	AnchorBaseSeconds int64 `json:"anchorBaseSeconds"`
}

// Serialize converts s to its persisted form. Pomodoro remaining time is omitted until the phase starts.
func Serialize(s State) Record {
	r := Record{
		Mode:                 string(s.Mode),
		IsRunning:            s.IsRunning,
		SelectedSubject:      s.SelectedSubject,
		ElapsedTime:          s.Stopwatch.ElapsedSeconds,
		ManualHours:          s.Manual.Hours,
		ManualMinutes:        s.Manual.Minutes,
		PomodoroFocusMinutes: s.Pomodoro.FocusMinutes,
		PomodoroBreakMinutes: s.Pomodoro.BreakMinutes,
		PomodoroSets:         s.Pomodoro.Sets,
		PomodoroCurrentSet:   s.Pomodoro.CurrentSet,
		PomodoroPhase:        string(s.Pomodoro.Phase),
		PomodoroFocusSeconds: s.Pomodoro.FocusAccumulatedSeconds,
		PomodoroCompleted:    s.Pomodoro.Completed,
		StartedAtMs:          s.Anchor.StartedAtMs,
		AnchorBaseSeconds:    s.Anchor.BaseSeconds,
	}

	if s.Pomodoro.PhaseStarted || s.Pomodoro.Completed {
		remaining := s.Pomodoro.RemainingSeconds
		r.PomodoroRemainingSeconds = &remaining
	}

	return r
}

// Decode parses persisted JSON with [Deserialize]. Unparseable input yields a fresh state.
func Decode(data []byte, nowMs int64, d Defaults, r Ranges) State {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return NewState(d, r)
	}
	return Deserialize(raw, nowMs, d, r)
}

// Deserialize rebuilds a [State] from a decoded record, field by field.
//
// Any field that is missing, of the wrong type, non-finite or out of range takes its default instead of
// failing. A running state is re-anchored at nowMs when its anchor is unusable, stopped when it cannot run,
// and finally ticked to nowMs.
func Deserialize(raw map[string]any, nowMs int64, d Defaults, r Ranges) State {
	s := NewState(d, r)
	if raw == nil {
		return s
	}

	if mode := Mode(readString(raw, "mode", "")); mode.Valid() {
		s.Mode = mode
	}
	s.SelectedSubject = readString(raw, "selectedSubject", "")
	s.Stopwatch.ElapsedSeconds = readInt(raw, "elapsedTime", 0, 0, math.MaxInt32)
	s.Manual.Hours = int(readInt(raw, "manualHours", 0, int64(r.ManualHours.Min), int64(r.ManualHours.Max)))
	s.Manual.Minutes = int(readInt(raw, "manualMinutes", 0, int64(r.ManualMinutes.Min), int64(r.ManualMinutes.Max)))

	p := &s.Pomodoro
	p.FocusMinutes = int(readInt(raw, "pomodoroFocusMinutes", int64(p.FocusMinutes), int64(r.FocusMinutes.Min), int64(r.FocusMinutes.Max)))
	p.BreakMinutes = int(readInt(raw, "pomodoroBreakMinutes", int64(p.BreakMinutes), int64(r.BreakMinutes.Min), int64(r.BreakMinutes.Max)))
	p.Sets = int(readInt(raw, "pomodoroSets", int64(p.Sets), int64(r.Sets.Min), int64(r.Sets.Max)))
	p.CurrentSet = int(readInt(raw, "pomodoroCurrentSet", 1, 1, int64(p.Sets)))
	if phase := Phase(readString(raw, "pomodoroPhase", "")); phase == PhaseFocus || phase == PhaseBreak {
		p.Phase = phase
	}
	p.Completed = readBool(raw, "pomodoroCompleted", false)
	p.FocusAccumulatedSeconds = readInt(raw, "pomodoroFocusSeconds", 0, 0, int64(p.Sets)*int64(p.FocusMinutes)*60)

	total := PomodoroPhaseTotalSeconds(s)
	p.RemainingSeconds = total
	if remaining, ok := readOptionalInt(raw, "pomodoroRemainingSeconds", 0, total); ok {
		p.RemainingSeconds = remaining
		p.PhaseStarted = true
	}
	if p.Completed {
		p.RemainingSeconds = 0
	}

	s.IsRunning = readBool(raw, "isRunning", false)
	if !s.IsRunning {
		return s
	}

	if s.Mode == ModeManual || s.SelectedSubject == "" || (s.Mode == ModePomodoro && p.Completed) {
		s.IsRunning = false
		return s
	}

	// an anchor in the future or before the epoch cannot be trusted
	startedAt := readInt(raw, "startedAtMs", 0, 0, nowMs)
	if startedAt <= 0 {
		startedAt = nowMs
	}

	switch s.Mode {
	case ModeStopwatch:
		base := readInt(raw, "anchorBaseSeconds", s.Stopwatch.ElapsedSeconds, 0, math.MaxInt32)
		s.Anchor = Anchor{StartedAtMs: startedAt, BaseSeconds: base}
	case ModePomodoro:
		p.PhaseStarted = true
		base := readInt(raw, "anchorBaseSeconds", p.RemainingSeconds, 0, total)
		s.Anchor = Anchor{StartedAtMs: startedAt, BaseSeconds: base}
	}

	return Tick(s, nowMs)
}

func readString(raw map[string]any, key, def string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return def
}

func readBool(raw map[string]any, key string, def bool) bool {
	if v, ok := raw[key].(bool); ok {
		return v
	}
	return def
}

// readInt returns the field as a whole number within [min, max], or def.
func readInt(raw map[string]any, key string, def, min, max int64) int64 {
	if v, ok := readOptionalInt(raw, key, min, max); ok {
		return v
	}
	return def
}

func readOptionalInt(raw map[string]any, key string, min, max int64) (int64, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, false
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	f = math.Floor(f)
	if f < float64(min) || f > float64(max) {
		return 0, false
	}
	return int64(f), true
}
