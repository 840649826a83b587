package timer

// SetMode switches to mode, stopping any run and clearing run progress.
// Pomodoro settings survive; an unknown or identical mode leaves the state unchanged.
func SetMode(s State, mode Mode) State {
	if !mode.Valid() || mode == s.Mode {
		return s
	}

	s = dissolve(s)
	s.Mode = mode
	return s
}

// SetSubject selects the subject time is credited to. Changing it while running is refused;
// while stopped, a change discards stopwatch and pomodoro progress so it is not credited to the new subject.
func SetSubject(s State, subject string) State {
	if s.IsRunning || subject == s.SelectedSubject {
		return s
	}

	s.SelectedSubject = subject
	s.Stopwatch = Stopwatch{}
	s.Pomodoro = resetPomodoro(s.Pomodoro)
	s.Anchor = Anchor{}
	return s
}

// CanStart reports whether [Start] would begin a run.
func CanStart(s State) bool {
	switch {
	case s.IsRunning, s.SelectedSubject == "":
		return false
	case s.Mode == ModeStopwatch:
		return true
	case s.Mode == ModePomodoro:
		return !s.Pomodoro.Completed
	default:
		return false
	}
}

// Start anchors a run at nowMs. It returns s unchanged when [CanStart] is false.
func Start(s State, nowMs int64) State {
	if !CanStart(s) {
		return s
	}

	switch s.Mode {
	case ModeStopwatch:
		s.Anchor = Anchor{StartedAtMs: nowMs, BaseSeconds: s.Stopwatch.ElapsedSeconds}
	case ModePomodoro:
		if !s.Pomodoro.PhaseStarted {
			s.Pomodoro.RemainingSeconds = PomodoroPhaseTotalSeconds(s)
			s.Pomodoro.PhaseStarted = true
		}
		s.Anchor = Anchor{StartedAtMs: nowMs, BaseSeconds: s.Pomodoro.RemainingSeconds}
	}

	s.IsRunning = true
	return s
}

// Stop freezes elapsed or remaining time as of nowMs.
func Stop(s State, nowMs int64) State {
	if !s.IsRunning {
		return s
	}

	s = Tick(s, nowMs)
	if !s.IsRunning {
		// the final phase expired before the stop
		return s
	}

	if s.Mode == ModePomodoro && s.Pomodoro.Phase == PhaseFocus {
		s.Pomodoro.FocusAccumulatedSeconds += s.Anchor.BaseSeconds - s.Pomodoro.RemainingSeconds
	}

	s.IsRunning = false
	s.Anchor = Anchor{}
	return s
}

// Reset stops the timer and clears the progress of every mode. Mode, subject and pomodoro settings are kept.
func Reset(s State) State {
	s = dissolve(s)
	s.Manual = Manual{}
	return s
}

// dissolve ends the run and clears stopwatch and pomodoro progress.
func dissolve(s State) State {
	s.IsRunning = false
	s.Anchor = Anchor{}
	s.Stopwatch = Stopwatch{}
	s.Pomodoro = resetPomodoro(s.Pomodoro)
	return s
}

// Tick recomputes the live value of a running stopwatch or pomodoro from its anchor.
//
// Pomodoro phases that expired since the last tick are replayed in order, each new phase anchored at the
// instant the previous one ended, so a tick after a long suspension lands in the correct phase.
func Tick(s State, nowMs int64) State {
	if !s.IsRunning {
		return s
	}

	switch s.Mode {
	case ModeStopwatch:
		s.Stopwatch.ElapsedSeconds = s.Anchor.BaseSeconds + elapsedSince(s.Anchor.StartedAtMs, nowMs)
		return s
	case ModePomodoro:
		return tickPomodoro(s, nowMs)
	default:
		s.IsRunning = false
		s.Anchor = Anchor{}
		return s
	}
}

func tickPomodoro(s State, nowMs int64) State {
	p := &s.Pomodoro

	// each set has at most two phases; the bound guards against degenerate zero-length phases
	for i := 0; i <= 2*p.Sets+1; i++ {
		remaining := s.Anchor.BaseSeconds - elapsedSince(s.Anchor.StartedAtMs, nowMs)
		if remaining > 0 {
			p.RemainingSeconds = remaining
			return s
		}

		expiredAtMs := s.Anchor.StartedAtMs + s.Anchor.BaseSeconds*1000

		switch p.Phase {
		case PhaseFocus:
			p.FocusAccumulatedSeconds += s.Anchor.BaseSeconds
			if p.CurrentSet >= p.Sets {
				return complete(s)
			}
			p.Phase = PhaseBreak
		default:
			if p.CurrentSet+1 > p.Sets {
				return complete(s)
			}
			p.CurrentSet++
			p.Phase = PhaseFocus
		}

		p.RemainingSeconds = PomodoroPhaseTotalSeconds(s)
		s.Anchor = Anchor{StartedAtMs: expiredAtMs, BaseSeconds: p.RemainingSeconds}
	}

	return complete(s)
}

func complete(s State) State {
	s.IsRunning = false
	s.Anchor = Anchor{}
	s.Pomodoro.RemainingSeconds = 0
	s.Pomodoro.Completed = true
	return s
}

// elapsedSince returns whole seconds between the anchor and now; a clock that moved backwards counts as zero.
func elapsedSince(startedAtMs, nowMs int64) int64 {
	if nowMs <= startedAtMs {
		return 0
	}
	return (nowMs - startedAtMs) / 1000
}

// SetManualHours clamps and stores the manual hours.
func SetManualHours(s State, hours int, r Ranges) State {
	s.Manual.Hours = r.ManualHours.Clamp(hours)
	return s
}

// SetManualMinutes clamps and stores the manual minutes.
func SetManualMinutes(s State, minutes int, r Ranges) State {
	s.Manual.Minutes = r.ManualMinutes.Clamp(minutes)
	return s
}

// SetPomodoroFocusMinutes updates the focus length. A running phase keeps its remaining time.
func SetPomodoroFocusMinutes(s State, minutes int, r Ranges) State {
	s.Pomodoro.FocusMinutes = r.FocusMinutes.Clamp(minutes)
	return refitRemaining(s, PhaseFocus)
}

// SetPomodoroBreakMinutes updates the break length. A running phase keeps its remaining time.
func SetPomodoroBreakMinutes(s State, minutes int, r Ranges) State {
	s.Pomodoro.BreakMinutes = r.BreakMinutes.Clamp(minutes)
	return refitRemaining(s, PhaseBreak)
}

// SetPomodoroSets updates the planned number of sets, pulling the current set down if needed.
func SetPomodoroSets(s State, sets int, r Ranges) State {
	s.Pomodoro.Sets = r.Sets.Clamp(sets)
	if s.Pomodoro.CurrentSet > s.Pomodoro.Sets {
		s.Pomodoro.CurrentSet = s.Pomodoro.Sets
	}
	return s
}

// refitRemaining applies a changed phase length to a stopped timer sitting in that phase.
func refitRemaining(s State, phase Phase) State {
	p := &s.Pomodoro
	if s.IsRunning || p.Phase != phase || p.Completed {
		return s
	}

	total := PomodoroPhaseTotalSeconds(s)
	if !p.PhaseStarted || p.RemainingSeconds > total {
		p.RemainingSeconds = total
	}
	return s
}

// StudyElapsedMs is the study time of the current run as of nowMs: stopwatch elapsed time or pomodoro
// focus time, in whole seconds. Manual entries are recorded explicitly and report zero.
func StudyElapsedMs(s State, nowMs int64) int64 {
	s = Tick(s, nowMs)

	switch s.Mode {
	case ModeStopwatch:
		return s.Stopwatch.ElapsedSeconds * 1000
	case ModePomodoro:
		return PomodoroFocusElapsedSeconds(s) * 1000
	default:
		return 0
	}
}

// RecordHours is the study time a record commit would save for the current mode.
func RecordHours(s State) float64 {
	switch s.Mode {
	case ModeStopwatch:
		return float64(s.Stopwatch.ElapsedSeconds) / 3600
	case ModePomodoro:
		return float64(PomodoroFocusElapsedSeconds(s)) / 3600
	case ModeManual:
		return float64(s.Manual.Hours) + float64(s.Manual.Minutes)/60
	default:
		return 0
	}
}
