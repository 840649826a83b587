package syncstate

import (
	"encoding/json"
	"testing"
	"time"

	th "github.com/desertthunder/studyx/internal/testing"
	"github.com/google/uuid"
)

var today = time.Date(2026, time.October, 19, 10, 0, 0, 0, time.Local)

func TestLoad(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		s := Load(th.NewMemoryStore(), today)
		if s.DateKey != "2026-10-19" || len(s.Sessions) != 0 || s.Sessions == nil {
			t.Errorf("expected empty state for today, got %+v", s)
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		store := th.NewMemoryStore()
		s, session := GetOrCreateSession(NewState(today), "Auditing", today.UnixMilli())
		s = RecordAck(s, "Auditing", session.ClientSessionID, 5000, today.UnixMilli())

		if err := Save(store, s); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded := Load(store, today.Add(time.Hour))
		if got := loaded.Sessions["Auditing"]; got != s.Sessions["Auditing"] {
			t.Errorf("expected %+v, got %+v", s.Sessions["Auditing"], got)
		}
	})

	t.Run("Day Rollover Resets Sessions", func(t *testing.T) {
		store := th.NewMemoryStore()
		yesterday := today.AddDate(0, 0, -1)
		s, _ := GetOrCreateSession(NewState(yesterday), "Math", yesterday.UnixMilli())
		if err := Save(store, s); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded := Load(store, today)
		if loaded.DateKey != "2026-10-19" || len(loaded.Sessions) != 0 {
			t.Errorf("expected fresh state for today, got %+v", loaded)
		}
	})

	t.Run("Day Rollover Carries Acknowledged Total", func(t *testing.T) {
		store := th.NewMemoryStore()
		yesterday := today.AddDate(0, 0, -1)
		s, session := GetOrCreateSession(NewState(yesterday), "Math", yesterday.UnixMilli())
		s = RecordAck(s, "Math", session.ClientSessionID, 10_000, yesterday.UnixMilli())
		if err := Save(store, s); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded := Load(store, today)
		if len(loaded.Sessions) != 0 || CarriedMs(loaded, "Math") != 10_000 {
			t.Fatalf("expected no sessions and 10000 carried, got %+v", loaded)
		}
		if got := Unsynced(loaded, "Math", 10_000); got != 0 {
			t.Errorf("acknowledged time must not be unsynced on the next day, got %d", got)
		}

		if err := Save(store, loaded); err != nil {
			t.Fatal(err)
		}
		if again := Load(store, today.Add(time.Hour)); CarriedMs(again, "Math") != 10_000 {
			t.Errorf("carried total should survive a same-day reload, got %+v", again)
		}
	})

	t.Run("Drops Malformed Carried Entries", func(t *testing.T) {
		store := th.NewMemoryStore()
		value := `{"dateKey":"2026-10-19","sessions":{},"carriedMs":{"Auditing":4000,"Tax Law":-1,"Math":"x","":5}}`
		if err := store.SetItem(StorageKey, value); err != nil {
			t.Fatal(err)
		}

		s := Load(store, today)
		if len(s.Carried) != 1 || CarriedMs(s, "Auditing") != 4000 {
			t.Errorf("expected only Auditing carried, got %+v", s.Carried)
		}
	})

	tc := []struct {
		name  string
		value string
		want  int
	}{
		{name: "not json", value: "{{", want: 0},
		{name: "array", value: `[]`, want: 0},
		{name: "missing date", value: `{"sessions":{}}`, want: 0},
		{name: "sessions not object", value: `{"dateKey":"2026-10-19","sessions":[1]}`, want: 0},
		{name: "drops malformed entries", value: `{"dateKey":"2026-10-19","sessions":{
			"Auditing":{"clientSessionId":"a","lastSyncedTotalMs":100,"lastSyncAtMs":5},
			"Tax Law":{"clientSessionId":"","lastSyncedTotalMs":100},
			"Corporate Law":{"clientSessionId":"c","lastSyncedTotalMs":-1},
			"Auditing 2":{"clientSessionId":"d","lastSyncedTotalMs":"many"},
			"Management Accounting":"oops"}}`, want: 1},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			store := th.NewMemoryStore()
			if err := store.SetItem(StorageKey, tt.value); err != nil {
				t.Fatal(err)
			}

			s := Load(store, today)
			if s.DateKey != "2026-10-19" || s.Sessions == nil {
				t.Fatalf("expected usable state, got %+v", s)
			}
			if len(s.Sessions) != tt.want {
				t.Errorf("expected %d sessions, got %d", tt.want, len(s.Sessions))
			}
		})
	}
}

func TestSave(t *testing.T) {
	t.Run("Write Failure Is Reported", func(t *testing.T) {
		store := th.NewMemoryStore()
		store.FailWrites = true

		if err := Save(store, NewState(today)); err == nil {
			t.Error("expected error from failing store")
		}
	})

	t.Run("Nil Sessions Encode As Object", func(t *testing.T) {
		store := th.NewMemoryStore()
		if err := Save(store, State{DateKey: "2026-10-19"}); err != nil {
			t.Fatal(err)
		}

		value, _ := store.GetItem(StorageKey)
		var raw map[string]any
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			t.Fatal(err)
		}
		if _, ok := raw["sessions"].(map[string]any); !ok {
			t.Errorf("sessions should be an object, got %s", value)
		}
	})
}

func TestSessions(t *testing.T) {
	nowMs := today.UnixMilli()

	t.Run("GetOrCreateSession", func(t *testing.T) {
		empty := NewState(today)
		next, session := GetOrCreateSession(empty, "Auditing", nowMs)

		if _, err := uuid.Parse(session.ClientSessionID); err != nil {
			t.Errorf("expected UUID session ID, got %q", session.ClientSessionID)
		}
		if session.LastSyncedTotalMs != 0 || session.LastSyncAtMs != 0 {
			t.Errorf("new session should start at zero: %+v", session)
		}
		if len(empty.Sessions) != 0 {
			t.Error("input state must not be modified")
		}

		again, existing := GetOrCreateSession(next, "Auditing", nowMs+1000)
		if existing != session {
			t.Errorf("expected existing session %+v, got %+v", session, existing)
		}
		if len(again.Sessions) != 1 {
			t.Errorf("expected one session, got %d", len(again.Sessions))
		}
	})

	t.Run("RecordAck Is Monotonic", func(t *testing.T) {
		s, session := GetOrCreateSession(NewState(today), "Auditing", nowMs)
		id := session.ClientSessionID

		s = RecordAck(s, "Auditing", id, 9000, nowMs+1)
		s = RecordAck(s, "Auditing", id, 4000, nowMs+2)

		got := s.Sessions["Auditing"]
		if got.LastSyncedTotalMs != 9000 || got.LastSyncAtMs != nowMs+2 {
			t.Errorf("unexpected session after acks: %+v", got)
		}
		if Unsynced(s, "Auditing", 12000) != 3000 || Unsynced(s, "Auditing", 100) != 0 {
			t.Error("unexpected unsynced values")
		}
	})

	t.Run("RecordAck Ignores Replaced Session", func(t *testing.T) {
		s, session := GetOrCreateSession(NewState(today), "Auditing", nowMs)
		s = RetireSession(s, "Auditing")
		s, replacement := GetOrCreateSession(s, "Auditing", nowMs)

		acked := RecordAck(s, "Auditing", session.ClientSessionID, 5000, nowMs)
		if acked.Sessions["Auditing"].LastSyncedTotalMs != 0 {
			t.Error("stale ack should be dropped")
		}
		if replacement.ClientSessionID == session.ClientSessionID {
			t.Error("retired session ID should not be reused")
		}
	})

	t.Run("RecordAck Unknown Subject", func(t *testing.T) {
		s := NewState(today)
		if got := RecordAck(s, "Auditing", "x", 5000, nowMs); len(got.Sessions) != 0 {
			t.Error("ack for unknown subject should not create a session")
		}
	})

	t.Run("Rollover", func(t *testing.T) {
		s, _ := GetOrCreateSession(NewState(today), "Auditing", nowMs)

		if same := Rollover(s, today.Add(2*time.Hour)); len(same.Sessions) != 1 {
			t.Error("same day should keep sessions")
		}

		next := Rollover(s, today.AddDate(0, 0, 1))
		if next.DateKey != "2026-10-20" || len(next.Sessions) != 0 || len(next.Carried) != 0 {
			t.Errorf("new day should start empty, got %+v", next)
		}
	})

	t.Run("Carried Totals", func(t *testing.T) {
		s, session := GetOrCreateSession(NewState(today), "Auditing", nowMs)
		s = RecordAck(s, "Auditing", session.ClientSessionID, 5_000, nowMs)

		day2 := Rollover(s, today.AddDate(0, 0, 1))
		if CarriedMs(day2, "Auditing") != 5_000 || DayTotal(day2, "Auditing", 8_000) != 3_000 {
			t.Fatalf("unexpected carried state %+v", day2)
		}

		day2, next := GetOrCreateSession(day2, "Auditing", nowMs)
		if next.ClientSessionID == session.ClientSessionID {
			t.Error("a new day needs a new session")
		}
		day2 = RecordAck(day2, "Auditing", next.ClientSessionID, 3_000, nowMs)

		day3 := Rollover(day2, today.AddDate(0, 0, 2))
		if CarriedMs(day3, "Auditing") != 8_000 {
			t.Errorf("carried totals should accumulate, got %d", CarriedMs(day3, "Auditing"))
		}
		if Unsynced(day3, "Auditing", 9_000) != 1_000 {
			t.Errorf("expected 1000 unsynced, got %d", Unsynced(day3, "Auditing", 9_000))
		}

		retired := RetireSession(day3, "Auditing")
		if CarriedMs(retired, "Auditing") != 0 || CarriedMs(day3, "Auditing") != 8_000 {
			t.Error("retiring should drop the carried total without modifying the input")
		}
	})
}

func TestNewSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewSessionID(today.UnixMilli())
		if seen[id] {
			t.Fatalf("duplicate session ID %s", id)
		}
		seen[id] = true
	}
}
