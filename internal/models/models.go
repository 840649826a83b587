// package models defines the data model for the study tracking service
package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/desertthunder/studyx/internal/shared"
)

var ErrValidation = fmt.Errorf("validation failed")

// Validator is implemented by payloads that can check their own fields.
type Validator interface {
	Validate() error // Validate returns an error wrapping [ErrValidation] when a field is invalid
}

// SyncRequest reports the total study time (not a delta) for one client session lineage.
type SyncRequest struct {
	UserID          string `json:"user_id"`
	DateKey         string `json:"date_key"`
	Subject         string `json:"subject"`
	ClientSessionID string `json:"client_session_id"`
	TotalMs         int64  `json:"total_ms"`
}

func (r SyncRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrValidation)
	case strings.TrimSpace(r.ClientSessionID) == "":
		return fmt.Errorf("%w: client_session_id is required", ErrValidation)
	case r.DateKey == "":
		return fmt.Errorf("%w: date_key is required", ErrValidation)
	case !validDateKey(r.DateKey):
		return fmt.Errorf("%w: date_key must be YYYY-MM-DD", ErrValidation)
	case r.TotalMs < 0:
		return fmt.Errorf("%w: total_ms must not be negative", ErrValidation)
	}
	return nil
}

func validDateKey(key string) bool {
	_, err := shared.ParseDateKey(key)
	return err == nil
}

// SyncResponse is the server acknowledgment of a [SyncRequest].
type SyncResponse struct {
	AppliedDeltaMs     int64 `json:"applied_delta_ms"`
	ServerTodayTotalMs int64 `json:"server_today_total_ms"`
	ServerWeekTotalMs  int64 `json:"server_week_total_ms"`
}

// Summary holds the server aggregates for a day and the week (Monday start) containing it.
type Summary struct {
	DateKey      string `json:"date_key"`
	TodayTotalMs int64  `json:"today_total_ms"`
	WeekTotalMs  int64  `json:"week_total_ms"`
}

// StudySession is the server bookkeeping for one (user, day, client session) lineage.
type StudySession struct {
	UserID          string
	DateKey         string
	Subject         string
	ClientSessionID string
	LastTotalMs     int64
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// ProgressRecord is a study progress entry for a subject and topic.
type ProgressRecord struct {
	ID              int64      `json:"id" yaml:"id"`
	Subject         string     `json:"subject" yaml:"subject"`
	Topic           string     `json:"topic" yaml:"topic"`
	ProgressPercent float64    `json:"progress_percent" yaml:"progress_percent"`
	StudyHours      float64    `json:"study_hours" yaml:"study_hours"`
	Notes           *string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// SubjectSummary aggregates the progress records of one subject.
type SubjectSummary struct {
	Subject     string  `json:"subject" yaml:"subject"`
	Count       int     `json:"count" yaml:"count"`
	TotalHours  float64 `json:"total_hours" yaml:"total_hours"`
	AvgProgress float64 `json:"avg_progress" yaml:"avg_progress"`
}

// ProgressCreate is the payload for creating a [ProgressRecord].
type ProgressCreate struct {
	Subject         string  `json:"subject"`
	Topic           string  `json:"topic"`
	ProgressPercent float64 `json:"progress_percent"`
	StudyHours      float64 `json:"study_hours"`
	Notes           *string `json:"notes,omitempty"`
}

func (p ProgressCreate) Validate() error {
	if strings.TrimSpace(p.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if strings.TrimSpace(p.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrValidation)
	}
	if err := validatePercent(p.ProgressPercent); err != nil {
		return err
	}
	return validateHours(p.StudyHours)
}

// SubjectRename moves every progress record of OldName to NewName.
type SubjectRename struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

func (r SubjectRename) Validate() error {
	switch {
	case strings.TrimSpace(r.OldName) == "":
		return fmt.Errorf("%w: old_name is required", ErrValidation)
	case strings.TrimSpace(r.NewName) == "":
		return fmt.Errorf("%w: new_name is required", ErrValidation)
	case strings.TrimSpace(r.OldName) == strings.TrimSpace(r.NewName):
		return fmt.Errorf("%w: new_name must differ from old_name", ErrValidation)
	}
	return nil
}

// SubjectRenameResult reports how many records a [SubjectRename] touched.
type SubjectRenameResult struct {
	UpdatedCount int64 `json:"updated_count"`
}

// ProgressUpdate is a partial update; nil fields are left unchanged.
type ProgressUpdate struct {
	Subject         *string  `json:"subject,omitempty"`
	Topic           *string  `json:"topic,omitempty"`
	ProgressPercent *float64 `json:"progress_percent,omitempty"`
	StudyHours      *float64 `json:"study_hours,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

func (p ProgressUpdate) Validate() error {
	if p.Subject != nil && strings.TrimSpace(*p.Subject) == "" {
		return fmt.Errorf("%w: subject must not be empty", ErrValidation)
	}
	if p.Topic != nil && strings.TrimSpace(*p.Topic) == "" {
		return fmt.Errorf("%w: topic must not be empty", ErrValidation)
	}
	if p.ProgressPercent != nil {
		if err := validatePercent(*p.ProgressPercent); err != nil {
			return err
		}
	}
	if p.StudyHours != nil {
		return validateHours(*p.StudyHours)
	}
	return nil
}

// Apply copies the non-nil fields of u onto r.
func (u ProgressUpdate) Apply(r *ProgressRecord) {
	if u.Subject != nil {
		r.Subject = *u.Subject
	}
	if u.Topic != nil {
		r.Topic = *u.Topic
	}
	if u.ProgressPercent != nil {
		r.ProgressPercent = *u.ProgressPercent
	}
	if u.StudyHours != nil {
		r.StudyHours = *u.StudyHours
	}
	if u.Notes != nil {
		r.Notes = u.Notes
	}
}

func validatePercent(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return fmt.Errorf("%w: progress_percent must be within [0, 100]", ErrValidation)
	}
	return nil
}

func validateHours(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: study_hours must not be negative", ErrValidation)
	}
	return nil
}
