// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
)

// MemoryStore is an in-memory durable storage double. Set FailWrites to simulate a full or disabled store.
type MemoryStore struct {
	mu         sync.Mutex
	items      map[string]string
	FailWrites bool
	Writes     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (m *MemoryStore) GetItem(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return "", shared.ErrKeyNotFound
	}
	return v, nil
}

func (m *MemoryStore) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("storage quota exceeded")
	}
	m.Writes++
	m.items[key] = value
	return nil
}

func (m *MemoryStore) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// FakeStudyTimeAPI records sync and summary calls. When Gate is non-nil, Sync blocks until it receives.
type FakeStudyTimeAPI struct {
	mu           sync.Mutex
	syncCalls    []models.SyncRequest
	summaryCalls int

	SyncErr         error
	SummaryErr      error
	Response        models.SyncResponse
	SummaryResponse models.Summary
	Gate            chan struct{}
}

func (f *FakeStudyTimeAPI) Sync(ctx context.Context, req models.SyncRequest) (*models.SyncResponse, error) {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls = append(f.syncCalls, req)
	if f.SyncErr != nil {
		return nil, f.SyncErr
	}
	resp := f.Response
	return &resp, nil
}

func (f *FakeStudyTimeAPI) Summary(ctx context.Context, userID, dateKey string) (*models.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	if f.SummaryErr != nil {
		return nil, f.SummaryErr
	}
	resp := f.SummaryResponse
	resp.DateKey = dateKey
	return &resp, nil
}

// SyncCalls returns a copy of the sync requests received so far.
func (f *FakeStudyTimeAPI) SyncCalls() []models.SyncRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SyncRequest(nil), f.syncCalls...)
}

func (f *FakeStudyTimeAPI) SummaryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaryCalls
}

// FakeProgressAPI keeps progress records in memory.
type FakeProgressAPI struct {
	mu      sync.Mutex
	Records []models.ProgressRecord
	Creates []models.ProgressCreate
	Updates []models.ProgressUpdate

	ListErr   error
	CreateErr error
	UpdateErr error
}

func (f *FakeProgressAPI) ListBySubject(ctx context.Context, subject string) ([]models.ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []models.ProgressRecord
	for _, r := range f.Records {
		if r.Subject == subject {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *FakeProgressAPI) Create(ctx context.Context, p models.ProgressCreate) (*models.ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.Creates = append(f.Creates, p)
	r := models.ProgressRecord{
		ID:              int64(len(f.Records) + 1),
		Subject:         p.Subject,
		Topic:           p.Topic,
		ProgressPercent: p.ProgressPercent,
		StudyHours:      p.StudyHours,
		Notes:           p.Notes,
		CreatedAt:       time.Now(),
	}
	f.Records = append(f.Records, r)
	return &r, nil
}

func (f *FakeProgressAPI) Update(ctx context.Context, id int64, u models.ProgressUpdate) (*models.ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	f.Updates = append(f.Updates, u)
	for i := range f.Records {
		if f.Records[i].ID == id {
			u.Apply(&f.Records[i])
			r := f.Records[i]
			return &r, nil
		}
	}
	return nil, shared.ErrRecordNotFound
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
