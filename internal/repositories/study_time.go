package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
)

// StudyTimeRepository stores the last total reported by each client session and derives day and week sums.
type StudyTimeRepository struct {
	db *sql.DB
}

// NewStudyTimeRepository creates a new [StudyTimeRepository] with the given database connection
func NewStudyTimeRepository(db *sql.DB) *StudyTimeRepository {
	return &StudyTimeRepository{db: db}
}

// Apply records req.TotalMs for its session and returns how much of it was new.
//
// Only the growth over the session's previous total counts, so a repeated or reordered sync applies nothing.
func (r *StudyTimeRepository) Apply(req models.SyncRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last int64
	err = tx.QueryRow(`
		SELECT last_total_ms FROM study_time_sessions
		WHERE user_id = ? AND date_key = ? AND client_session_id = ?
	`, req.UserID, req.DateKey, req.ClientSessionID).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to query session: %w", err)
	}

	delta := max(0, req.TotalMs-last)
	now := time.Now()

	_, err = tx.Exec(`
		INSERT INTO study_time_sessions (user_id, date_key, subject, client_session_id, last_total_ms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date_key, client_session_id) DO UPDATE SET
			last_total_ms = MAX(last_total_ms, excluded.last_total_ms),
			updated_at = excluded.updated_at
	`, req.UserID, req.DateKey, req.Subject, req.ClientSessionID, max(last, req.TotalMs), now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}

	return delta, nil
}

// Summary returns the user's total for dateKey and for the Monday-start week up to and including it.
func (r *StudyTimeRepository) Summary(userID, dateKey string) (*models.Summary, error) {
	weekStart, err := shared.WeekStartKey(dateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date_key %q", models.ErrValidation, dateKey)
	}

	summary := &models.Summary{DateKey: dateKey}

	err = r.db.QueryRow(`
		SELECT COALESCE(SUM(last_total_ms), 0) FROM study_time_sessions WHERE user_id = ? AND date_key = ?
	`, userID, dateKey).Scan(&summary.TodayTotalMs)
	if err != nil {
		return nil, fmt.Errorf("failed to sum day: %w", err)
	}

	err = r.db.QueryRow(`
		SELECT COALESCE(SUM(last_total_ms), 0) FROM study_time_sessions
		WHERE user_id = ? AND date_key >= ? AND date_key <= ?
	`, userID, weekStart, dateKey).Scan(&summary.WeekTotalMs)
	if err != nil {
		return nil, fmt.Errorf("failed to sum week: %w", err)
	}

	return summary, nil
}

// Sessions lists the sessions recorded for a user on a day.
func (r *StudyTimeRepository) Sessions(userID, dateKey string) ([]models.StudySession, error) {
	rows, err := r.db.Query(`
		SELECT user_id, date_key, subject, client_session_id, last_total_ms, created_at, updated_at
		FROM study_time_sessions
		WHERE user_id = ? AND date_key = ?
		ORDER BY created_at, client_session_id
	`, userID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.StudySession
	for rows.Next() {
		var (
			s         models.StudySession
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&s.UserID, &s.DateKey, &s.Subject, &s.ClientSessionID, &s.LastTotalMs, &s.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if updatedAt.Valid {
			s.UpdatedAt = &updatedAt.Time
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}
