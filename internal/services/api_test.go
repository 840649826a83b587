package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	tu "github.com/desertthunder/studyx/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/", customClient)

			if srv.baseURL != "http://example.com" {
				t.Errorf("expected trimmed baseURL 'http://example.com', got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL And Nil Client", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.baseURL != DefaultBaseURL {
				t.Errorf("expected default baseURL, got %s", srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("doRequest", func(t *testing.T) {
		t.Run("Status Mapping", func(t *testing.T) {
			tc := []struct {
				status int
				body   string
				want   error
				detail string
			}{
				{status: http.StatusUnauthorized, body: `{"detail":"invalid token"}`, want: shared.ErrUnauthorized, detail: "invalid token"},
				{status: http.StatusNotFound, body: `{"detail":"progress not found"}`, want: shared.ErrRecordNotFound, detail: "progress not found"},
				{status: http.StatusBadRequest, body: `{"detail":"subject is required"}`, want: shared.ErrAPIRequest, detail: "subject is required"},
				{status: http.StatusBadGateway, body: "upstream down", want: shared.ErrServiceUnavailable, detail: "upstream down"},
			}

			for _, tt := range tc {
				t.Run(http.StatusText(tt.status), func(t *testing.T) {
					server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(tt.status)
						w.Write([]byte(tt.body))
					}))
					defer server.Close()

					err := NewAPIService(server.URL, nil).doRequest(context.Background(), http.MethodGet, "/x", nil, nil)
					if !errors.Is(err, tt.want) {
						t.Errorf("expected %v, got %v", tt.want, err)
					}
					if err != nil && !strings.Contains(err.Error(), tt.detail) {
						t.Errorf("expected detail %q in %v", tt.detail, err)
					}
				})
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}

			err := NewAPIService("http://example.com", client).doRequest(context.Background(), http.MethodGet, "/x", nil, nil)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			err := NewAPIService("http://example.com", client).doRequest(context.Background(), http.MethodGet, "/x", nil, nil)
			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected read error, got %v", err)
			}
		})

		t.Run("Invalid JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			}))
			defer server.Close()

			var out models.Summary
			err := NewAPIService(server.URL, nil).doRequest(context.Background(), http.MethodGet, "/x", nil, &out)
			if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
				t.Errorf("expected decode error, got %v", err)
			}
		})

		t.Run("Timeout", func(t *testing.T) {
			release := make(chan struct{})
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer server.Close()
			defer close(release)

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			err := NewAPIService(server.URL, nil).doRequest(ctx, http.MethodGet, "/slow", nil, nil)
			if !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected ErrTimeout, got %v", err)
			}
		})
	})

	t.Run("Raw", func(t *testing.T) {
		var gotBody, gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			gotBody, gotPath = string(data), r.URL.Path
			w.Write([]byte(`{"status":"healthy"}`))
		}))
		defer server.Close()

		api := NewAPIService(server.URL, nil)

		raw, err := api.Raw(context.Background(), http.MethodPost, "health", json.RawMessage(`{"a":1}`))
		if err != nil {
			t.Fatalf("Raw failed: %v", err)
		}
		if gotPath != "/health" || gotBody != `{"a":1}` {
			t.Errorf("unexpected request %s %s", gotPath, gotBody)
		}
		if string(raw) != `{"status":"healthy"}` {
			t.Errorf("unexpected response %s", raw)
		}

		if _, err := api.Raw(context.Background(), http.MethodPost, "/health", json.RawMessage(`{nope`)); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("NewHTTPClient", func(t *testing.T) {
		t.Run("Sends Bearer Token", func(t *testing.T) {
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
			}))
			defer server.Close()

			client := NewHTTPClient("secret", time.Second)
			if client.Timeout != time.Second {
				t.Errorf("expected timeout 1s, got %v", client.Timeout)
			}

			if err := NewAPIService(server.URL, client).doRequest(context.Background(), http.MethodGet, "/x", nil, nil); err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if got != "Bearer secret" {
				t.Errorf("expected bearer header, got %q", got)
			}
		})

		t.Run("No Token", func(t *testing.T) {
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
			}))
			defer server.Close()

			if err := NewAPIService(server.URL, NewHTTPClient("", time.Second)).doRequest(context.Background(), http.MethodGet, "/x", nil, nil); err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if got != "" {
				t.Errorf("expected no authorization header, got %q", got)
			}
		})
	})
}

func TestStudyTimeService(t *testing.T) {
	t.Run("Sync", func(t *testing.T) {
		var received models.SyncRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/study-time/sync" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON content type")
			}
			json.NewDecoder(r.Body).Decode(&received)
			json.NewEncoder(w).Encode(models.SyncResponse{AppliedDeltaMs: 500, ServerTodayTotalMs: 1500, ServerWeekTotalMs: 9000})
		}))
		defer server.Close()

		svc := NewStudyTimeService(NewAPIService(server.URL, nil))
		req := models.SyncRequest{UserID: "default", DateKey: "2026-10-19", Subject: "Auditing", ClientSessionID: "abc", TotalMs: 1500}

		resp, err := svc.Sync(context.Background(), req)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if received != req {
			t.Errorf("server received %+v, want %+v", received, req)
		}
		if resp.AppliedDeltaMs != 500 || resp.ServerTodayTotalMs != 1500 || resp.ServerWeekTotalMs != 9000 {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("Sync Rejects Invalid Request Locally", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
		defer server.Close()

		svc := NewStudyTimeService(NewAPIService(server.URL, nil))
		_, err := svc.Sync(context.Background(), models.SyncRequest{DateKey: "2026-10-19", Subject: "Auditing"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if calls != 0 {
			t.Errorf("expected no request, got %d", calls)
		}
	})

	t.Run("Summary", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/study-time/summary" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("date_key") != "2026-10-19" || r.URL.Query().Get("user_id") != "alice" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			json.NewEncoder(w).Encode(models.Summary{DateKey: "2026-10-19", TodayTotalMs: 60000, WeekTotalMs: 120000})
		}))
		defer server.Close()

		summary, err := NewStudyTimeService(NewAPIService(server.URL, nil)).Summary(context.Background(), "alice", "2026-10-19")
		if err != nil {
			t.Fatalf("Summary failed: %v", err)
		}
		if summary.TodayTotalMs != 60000 || summary.WeekTotalMs != 120000 {
			t.Errorf("unexpected summary: %+v", summary)
		}
	})
}

func TestProgressService(t *testing.T) {
	records := map[int64]models.ProgressRecord{}
	var nextID int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/progress", func(w http.ResponseWriter, r *http.Request) {
		out := []models.ProgressRecord{}
		for i := int64(1); i <= nextID; i++ {
			if rec, ok := records[i]; ok {
				out = append(out, rec)
			}
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("GET /api/progress/subject/{subject}", func(w http.ResponseWriter, r *http.Request) {
		out := []models.ProgressRecord{}
		for _, rec := range records {
			if rec.Subject == r.PathValue("subject") {
				out = append(out, rec)
			}
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("POST /api/progress", func(w http.ResponseWriter, r *http.Request) {
		var p models.ProgressCreate
		json.NewDecoder(r.Body).Decode(&p)
		nextID++
		rec := models.ProgressRecord{ID: nextID, Subject: p.Subject, Topic: p.Topic, StudyHours: p.StudyHours, Notes: p.Notes, CreatedAt: time.Now()}
		records[rec.ID] = rec
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("PUT /api/progress/{id}", func(w http.ResponseWriter, r *http.Request) {
		var u models.ProgressUpdate
		json.NewDecoder(r.Body).Decode(&u)
		rec, ok := records[1]
		if r.PathValue("id") != "1" || !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"progress not found"}`))
			return
		}
		u.Apply(&rec)
		records[1] = rec
		json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("DELETE /api/progress/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/summary", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"subject":"Corporate Law","count":1,"total_hours":1.25,"avg_progress":0}]`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	svc := NewProgressService(NewAPIService(server.URL, nil))
	ctx := context.Background()

	created, err := svc.Create(ctx, models.ProgressCreate{Subject: "Corporate Law", Topic: "Timer", StudyHours: 0.5})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != 1 || created.Subject != "Corporate Law" {
		t.Errorf("unexpected created record: %+v", created)
	}

	bySubject, err := svc.ListBySubject(ctx, "Corporate Law")
	if err != nil || len(bySubject) != 1 {
		t.Fatalf("expected one record for subject with a space, got %v (%v)", bySubject, err)
	}

	hours := 1.25
	updated, err := svc.Update(ctx, 1, models.ProgressUpdate{StudyHours: &hours})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.StudyHours != 1.25 {
		t.Errorf("expected 1.25 hours, got %v", updated.StudyHours)
	}

	if _, err := svc.Update(ctx, 7, models.ProgressUpdate{StudyHours: &hours}); !errors.Is(err, shared.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}

	all, err := svc.List(ctx, 0, 0)
	if err != nil || len(all) != 1 {
		t.Errorf("expected one record, got %v (%v)", all, err)
	}

	subjects, err := svc.Subjects(ctx)
	if err != nil || len(subjects) != 1 || subjects[0].TotalHours != 1.25 {
		t.Errorf("unexpected subject summary %+v (%v)", subjects, err)
	}

	if err := svc.Delete(ctx, 1); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
}
