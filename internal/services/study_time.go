package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
)

// StudyTimeService is the client for /api/study-time.
type StudyTimeService struct {
	api *APIService
}

// NewStudyTimeService creates a [StudyTimeService] over api.
func NewStudyTimeService(api *APIService) *StudyTimeService {
	return &StudyTimeService{api: api}
}

// Sync reports the cumulative total of one client session. Invalid requests fail without a network call.
func (s *StudyTimeService) Sync(ctx context.Context, req models.SyncRequest) (*models.SyncResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	var resp models.SyncResponse
	if err := s.api.doRequest(ctx, http.MethodPost, "/api/study-time/sync", req, &resp); err != nil {
		return nil, fmt.Errorf("sync study time: %w", err)
	}
	return &resp, nil
}

// Summary fetches the server totals for dateKey and its week.
func (s *StudyTimeService) Summary(ctx context.Context, userID, dateKey string) (*models.Summary, error) {
	q := url.Values{}
	q.Set("date_key", dateKey)
	if userID != "" {
		q.Set("user_id", userID)
	}

	var resp models.Summary
	if err := s.api.doRequest(ctx, http.MethodGet, "/api/study-time/summary?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch study time summary: %w", err)
	}
	return &resp, nil
}
