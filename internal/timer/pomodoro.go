package timer

// CanEditPomodoroSettings is false while a run is in progress.
func CanEditPomodoroSettings(s State) bool {
	return !s.IsRunning
}

// PomodoroPhaseTotalSeconds is the full length of the current phase.
func PomodoroPhaseTotalSeconds(s State) int64 {
	if s.Pomodoro.Phase == PhaseBreak {
		return int64(s.Pomodoro.BreakMinutes) * 60
	}
	return int64(s.Pomodoro.FocusMinutes) * 60
}

// PomodoroRemainingSeconds is the countdown to display: the phase total until the phase has started.
func PomodoroRemainingSeconds(s State) int64 {
	if !s.Pomodoro.PhaseStarted && !s.Pomodoro.Completed {
		return PomodoroPhaseTotalSeconds(s)
	}
	return s.Pomodoro.RemainingSeconds
}

// PomodoroFocusElapsedSeconds is the focus time accrued this run, including the live segment as of the last tick.
func PomodoroFocusElapsedSeconds(s State) int64 {
	total := s.Pomodoro.FocusAccumulatedSeconds
	if s.IsRunning && s.Pomodoro.Phase == PhaseFocus {
		if live := s.Anchor.BaseSeconds - s.Pomodoro.RemainingSeconds; live > 0 {
			total += live
		}
	}
	return total
}

// PomodoroRemainingRatio is remaining/total for the current phase in [0, 1]; zero-length phases report 0.
func PomodoroRemainingRatio(s State) float64 {
	total := PomodoroPhaseTotalSeconds(s)
	if total <= 0 {
		return 0
	}

	ratio := float64(PomodoroRemainingSeconds(s)) / float64(total)
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}

// IsPomodoroAwaitingPhaseStart reports a stopped pomodoro whose current phase has not begun.
func IsPomodoroAwaitingPhaseStart(s State) bool {
	return s.Mode == ModePomodoro && !s.IsRunning && !s.Pomodoro.PhaseStarted && !s.Pomodoro.Completed
}
