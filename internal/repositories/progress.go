package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
)

const progressColumns = "id, subject, topic, progress_percent, study_hours, notes, created_at, updated_at"

// ProgressRepository persists [models.ProgressRecord] rows.
type ProgressRepository struct {
	db *sql.DB
}

// NewProgressRepository creates a new [ProgressRepository] with the given database connection
func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Create validates p and inserts it.
func (r *ProgressRepository) Create(p models.ProgressCreate) (*models.ProgressRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := r.db.Exec(`
		INSERT INTO study_progress (subject, topic, progress_percent, study_hours, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Subject, p.Topic, p.ProgressPercent, p.StudyHours, p.Notes, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert progress: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted id: %w", err)
	}

	return r.Get(id)
}

// Get retrieves a record by ID
func (r *ProgressRepository) Get(id int64) (*models.ProgressRecord, error) {
	row := r.db.QueryRow("SELECT "+progressColumns+" FROM study_progress WHERE id = ?", id)

	record, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: progress %d", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}

	return record, nil
}

// List returns records ordered by ID with offset/limit paging; a non-positive limit means no limit.
func (r *ProgressRepository) List(skip, limit int) ([]models.ProgressRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query("SELECT "+progressColumns+" FROM study_progress ORDER BY id LIMIT ? OFFSET ?", limit, max(0, skip))
}

// ListBySubject returns every record for subject.
func (r *ProgressRepository) ListBySubject(subject string) ([]models.ProgressRecord, error) {
	return r.query("SELECT "+progressColumns+" FROM study_progress WHERE subject = ? ORDER BY id", subject)
}

// Update applies the non-nil fields of u to record id.
func (r *ProgressRepository) Update(id int64, u models.ProgressUpdate) (*models.ProgressRecord, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	record, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	u.Apply(record)
	now := time.Now()

	_, err = r.db.Exec(`
		UPDATE study_progress
		SET subject = ?, topic = ?, progress_percent = ?, study_hours = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, record.Subject, record.Topic, record.ProgressPercent, record.StudyHours, record.Notes, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	return r.Get(id)
}

// Delete removes record id.
func (r *ProgressRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM study_progress WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: progress %d", shared.ErrRecordNotFound, id)
	}

	return nil
}

// SubjectSummaries groups every record by subject with its count, total hours and average progress.
func (r *ProgressRepository) SubjectSummaries() ([]models.SubjectSummary, error) {
	rows, err := r.db.Query(`
		SELECT subject, COUNT(id), COALESCE(SUM(study_hours), 0), COALESCE(AVG(progress_percent), 0)
		FROM study_progress
		GROUP BY subject
		ORDER BY subject
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject summaries: %w", err)
	}
	defer rows.Close()

	summaries := []models.SubjectSummary{}
	for rows.Next() {
		var s models.SubjectSummary
		if err := rows.Scan(&s.Subject, &s.Count, &s.TotalHours, &s.AvgProgress); err != nil {
			return nil, fmt.Errorf("failed to scan subject summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (r *ProgressRepository) query(query string, args ...any) ([]models.ProgressRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	records := []models.ProgressRecord{}
	for rows.Next() {
		record, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(row scanner) (*models.ProgressRecord, error) {
	var (
		record    models.ProgressRecord
		notes     sql.NullString
		updatedAt sql.NullTime
	)

	err := row.Scan(&record.ID, &record.Subject, &record.Topic, &record.ProgressPercent, &record.StudyHours, &notes, &record.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if notes.Valid {
		record.Notes = &notes.String
	}
	if updatedAt.Valid {
		record.UpdatedAt = &updatedAt.Time
	}

	return &record, nil
}

// RenameSubject moves every record of r.OldName to r.NewName and returns the number of records changed.
func (r *ProgressRepository) RenameSubject(req models.SubjectRename) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.Exec(`
		UPDATE study_progress SET subject = ?, updated_at = ? WHERE subject = ?
	`, req.NewName, time.Now(), req.OldName)
	if err != nil {
		return 0, fmt.Errorf("failed to rename subject: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to rename subject: %w", err)
	}
	return n, nil
}
