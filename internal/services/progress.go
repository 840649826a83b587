package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/studyx/internal/models"
)

// ProgressService is the client for /api/progress.
type ProgressService struct {
	api *APIService
}

// NewProgressService creates a [ProgressService] over api.
func NewProgressService(api *APIService) *ProgressService {
	return &ProgressService{api: api}
}

// List returns one page of records; a non-positive limit leaves paging to the server.
func (s *ProgressService) List(ctx context.Context, skip, limit int) ([]models.ProgressRecord, error) {
	path := "/api/progress"
	if skip > 0 || limit > 0 {
		q := url.Values{}
		q.Set("skip", strconv.Itoa(skip))
		if limit > 0 {
			q.Set("limit", strconv.Itoa(limit))
		}
		path += "?" + q.Encode()
	}

	var records []models.ProgressRecord
	if err := s.api.doRequest(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return records, nil
}

// ListBySubject returns every record for subject.
func (s *ProgressService) ListBySubject(ctx context.Context, subject string) ([]models.ProgressRecord, error) {
	var records []models.ProgressRecord
	if err := s.api.doRequest(ctx, http.MethodGet, "/api/progress/subject/"+url.PathEscape(subject), nil, &records); err != nil {
		return nil, fmt.Errorf("list progress for %s: %w", subject, err)
	}
	return records, nil
}

// Get fetches one record.
func (s *ProgressService) Get(ctx context.Context, id int64) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	if err := s.api.doRequest(ctx, http.MethodGet, progressPath(id), nil, &record); err != nil {
		return nil, fmt.Errorf("get progress %d: %w", id, err)
	}
	return &record, nil
}

// Create adds a record.
func (s *ProgressService) Create(ctx context.Context, p models.ProgressCreate) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	if err := s.api.doRequest(ctx, http.MethodPost, "/api/progress", p, &record); err != nil {
		return nil, fmt.Errorf("create progress: %w", err)
	}
	return &record, nil
}

// Update applies a partial update to record id.
func (s *ProgressService) Update(ctx context.Context, id int64, u models.ProgressUpdate) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	if err := s.api.doRequest(ctx, http.MethodPut, progressPath(id), u, &record); err != nil {
		return nil, fmt.Errorf("update progress %d: %w", id, err)
	}
	return &record, nil
}

// Delete removes record id.
func (s *ProgressService) Delete(ctx context.Context, id int64) error {
	if err := s.api.doRequest(ctx, http.MethodDelete, progressPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete progress %d: %w", id, err)
	}
	return nil
}

// Subjects returns the per-subject aggregates from /api/summary.
func (s *ProgressService) Subjects(ctx context.Context) ([]models.SubjectSummary, error) {
	var summaries []models.SubjectSummary
	if err := s.api.doRequest(ctx, http.MethodGet, "/api/summary", nil, &summaries); err != nil {
		return nil, fmt.Errorf("subject summary: %w", err)
	}
	return summaries, nil
}

// RenameSubject moves every record of oldName to newName and returns how many records changed.
func (s *ProgressService) RenameSubject(ctx context.Context, oldName, newName string) (int64, error) {
	var result models.SubjectRenameResult
	body := models.SubjectRename{OldName: oldName, NewName: newName}
	if err := s.api.doRequest(ctx, http.MethodPut, "/api/subjects/update-name", body, &result); err != nil {
		return 0, fmt.Errorf("rename subject %s: %w", oldName, err)
	}
	return result.UpdatedCount, nil
}

func progressPath(id int64) string {
	return "/api/progress/" + strconv.FormatInt(id, 10)
}
