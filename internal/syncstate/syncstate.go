// package syncstate tracks, per subject, how much study time has been acknowledged by the server today.
//
// A [State] belongs to one local calendar day. Each subject gets a [Session] whose client session ID names
// a sync lineage: the server applies only the growth of the total reported under that ID, so repeated syncs
// never double count. A run that outlives its day keeps the total already credited to earlier days as a
// carried baseline, and only its growth beyond that baseline is reported for the new day. Functions never
// modify their input; a changed state carries fresh maps.
package syncstate

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/desertthunder/studyx/internal/shared"
	"github.com/google/uuid"
)

// StorageKey is the durable storage key of the serialized state.
const StorageKey = "studyTimerSyncState"

// Storage is the durable key/value store the state is persisted to.
type Storage interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
}

// Session is the sync bookkeeping for one subject.
type Session struct {
	ClientSessionID   string `json:"clientSessionId"`
	LastSyncedTotalMs int64  `json:"lastSyncedTotalMs"`
	LastSyncAtMs      int64  `json:"lastSyncAtMs"`
}

// State holds the sessions of a single day.
//
// Carried maps a subject to the part of its current run's total acknowledged on earlier days.
type State struct {
	DateKey  string             `json:"dateKey"`
	Sessions map[string]Session `json:"sessions"`
	Carried  map[string]int64   `json:"carriedMs,omitempty"`
}

// NewState returns an empty state for the local day of now.
func NewState(now time.Time) State {
	return State{DateKey: shared.LocalDateKey(now), Sessions: map[string]Session{}}
}

// Load reads the persisted state. Missing or unreadable data yields [NewState]; malformed session and
// carried entries are dropped individually. A state from another day is rolled over with [Rollover], so its
// sessions are dropped and their acknowledged totals carried.
func Load(store Storage, now time.Time) State {
	fresh := NewState(now)

	value, err := store.GetItem(StorageKey)
	if err != nil || value == "" {
		return fresh
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return fresh
	}

	key, ok := raw["dateKey"].(string)
	if !ok || key == "" {
		return fresh
	}

	sessions, ok := raw["sessions"].(map[string]any)
	if !ok {
		return fresh
	}

	loaded := State{DateKey: key, Sessions: map[string]Session{}}
	for subject, entry := range sessions {
		if session, ok := parseSession(entry); ok && subject != "" {
			loaded.Sessions[subject] = session
		}
	}

	if carried, ok := raw["carriedMs"].(map[string]any); ok {
		for subject, v := range carried {
			if ms, ok := nonNegative(v); ok && ms > 0 && subject != "" {
				if loaded.Carried == nil {
					loaded.Carried = map[string]int64{}
				}
				loaded.Carried[subject] = ms
			}
		}
	}

	return Rollover(loaded, now)
}

func parseSession(v any) (Session, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Session{}, false
	}

	id, ok := m["clientSessionId"].(string)
	if !ok || id == "" {
		return Session{}, false
	}

	total, ok := nonNegative(m["lastSyncedTotalMs"])
	if !ok {
		return Session{}, false
	}

	// the sync time is informational only
	at, _ := nonNegative(m["lastSyncAtMs"])

	return Session{ClientSessionID: id, LastSyncedTotalMs: total, LastSyncAtMs: at}, true
}

func nonNegative(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt64/2 {
		return 0, false
	}
	return int64(f), true
}

// Save writes the state to store. Callers treat failures as non-fatal: the server remains the source of truth.
func Save(store Storage, s State) error {
	if s.Sessions == nil {
		s.Sessions = map[string]Session{}
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode sync state: %w", err)
	}

	if err := store.SetItem(StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

// GetOrCreateSession returns the subject's session, creating one with a new ID when absent.
// When the session exists the returned state is s itself.
func GetOrCreateSession(s State, subject string, nowMs int64) (State, Session) {
	if session, ok := s.Sessions[subject]; ok {
		return s, session
	}

	session := Session{ClientSessionID: NewSessionID(nowMs)}
	next := s.with(func(m map[string]Session) { m[subject] = session })
	return next, session
}

// NewSessionID returns a random UUID, or a timestamp with a random suffix if the system random source fails.
func NewSessionID(nowMs int64) string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("%d-%x", nowMs, time.Now().UnixNano())
	}
	return fmt.Sprintf("%d-%s", nowMs, hex.EncodeToString(suffix))
}

// RecordAck raises the session's acknowledged total after a successful sync. The ack is dropped when the
// subject's session was replaced while the request was in flight.
func RecordAck(s State, subject, sessionID string, totalMs, nowMs int64) State {
	session, ok := s.Sessions[subject]
	if !ok || session.ClientSessionID != sessionID {
		return s
	}

	session.LastSyncedTotalMs = max(session.LastSyncedTotalMs, totalMs)
	session.LastSyncAtMs = nowMs
	return s.with(func(m map[string]Session) { m[subject] = session })
}

// RetireSession forgets the subject's session and carried total so its next run starts a new sync lineage.
func RetireSession(s State, subject string) State {
	_, hasSession := s.Sessions[subject]
	_, hasCarried := s.Carried[subject]
	if !hasSession && !hasCarried {
		return s
	}

	next := s.with(func(m map[string]Session) { delete(m, subject) })
	if hasCarried {
		next.Carried = copyCarried(s.Carried)
		delete(next.Carried, subject)
	}
	return next
}

// Rollover replaces a state from another day with one for the local day of now. Sessions are dropped;
// each subject's acknowledged total is added to its carried baseline.
func Rollover(s State, now time.Time) State {
	if s.DateKey == shared.LocalDateKey(now) {
		return s
	}

	next := NewState(now)
	carried := copyCarried(s.Carried)
	for subject, session := range s.Sessions {
		if session.LastSyncedTotalMs > 0 {
			carried[subject] += session.LastSyncedTotalMs
		}
	}
	if len(carried) > 0 {
		next.Carried = carried
	}
	return next
}

// CarriedMs returns the part of the subject's run total acknowledged on earlier days.
func CarriedMs(s State, subject string) int64 {
	return s.Carried[subject]
}

// DayTotal converts a run total into the total reported under the subject's session for the state's day.
func DayTotal(s State, subject string, runTotalMs int64) int64 {
	return max(0, runTotalMs-s.Carried[subject])
}

// Unsynced returns how far the run total runTotalMs exceeds what the server has acknowledged for the
// subject, today and on earlier days.
func Unsynced(s State, subject string, runTotalMs int64) int64 {
	return max(0, DayTotal(s, subject, runTotalMs)-s.Sessions[subject].LastSyncedTotalMs)
}

// with returns a copy of s whose session map has been changed by fn.
func (s State) with(fn func(map[string]Session)) State {
	sessions := make(map[string]Session, len(s.Sessions)+1)
	for k, v := range s.Sessions {
		sessions[k] = v
	}
	fn(sessions)
	return State{DateKey: s.DateKey, Sessions: sessions, Carried: s.Carried}
}

func copyCarried(carried map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(carried))
	for k, v := range carried {
		out[k] = v
	}
	return out
}
