package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
)

const (
	defaultUserID = "default"
	maxBodyBytes  = 1 << 20

	routeSync            = "POST /api/study-time/sync"
	routeSummary         = "GET /api/study-time/summary"
	routeProgressList    = "GET /api/progress"
	routeProgressGet     = "GET /api/progress/{id}"
	routeProgressCreate  = "POST /api/progress"
	routeProgressUpdate  = "PUT /api/progress/{id}"
	routeProgressDelete  = "DELETE /api/progress/{id}"
	routeProgressSubject = "GET /api/progress/subject/{subject}"
	routeSubjectSummary  = "GET /api/summary"
	routeSubjectRename   = "PUT /api/subjects/update-name"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// StudyTimeHandler serves the idempotent sync and the day/week summary.
type StudyTimeHandler struct {
	store  StudyTimeStore
	logger *log.Logger
}

func NewStudyTimeHandler(store StudyTimeStore, logger *log.Logger) *StudyTimeHandler {
	return &StudyTimeHandler{store: store, logger: logger}
}

func (h *StudyTimeHandler) Routes() []string {
	return []string{routeSync, routeSummary}
}

func (h *StudyTimeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case routeSync:
		h.sync(w, r)
	case routeSummary:
		h.summary(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// sync credits the growth of req.TotalMs over the session's last reported total and returns fresh sums.
func (h *StudyTimeHandler) sync(w http.ResponseWriter, r *http.Request) {
	var req models.SyncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if strings.TrimSpace(req.Subject) == "" {
		writeError(w, http.StatusBadRequest, "subject is required")
		return
	}
	if strings.TrimSpace(req.ClientSessionID) == "" {
		writeError(w, http.StatusBadRequest, "client_session_id is required")
		return
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	applied, err := h.store.Apply(req)
	if err != nil {
		h.fail(w, err)
		return
	}

	summary, err := h.store.Summary(req.UserID, req.DateKey)
	if err != nil {
		h.fail(w, err)
		return
	}

	if applied > 0 {
		h.logger.Debug("study time applied", "user", req.UserID, "subject", req.Subject, "delta_ms", applied)
	}

	writeJSON(w, http.StatusOK, models.SyncResponse{
		AppliedDeltaMs:     applied,
		ServerTodayTotalMs: summary.TodayTotalMs,
		ServerWeekTotalMs:  summary.WeekTotalMs,
	})
}

func (h *StudyTimeHandler) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dateKey := q.Get("date_key")
	if dateKey == "" {
		writeError(w, http.StatusUnprocessableEntity, "date_key is required")
		return
	}
	userID := q.Get("user_id")
	if userID == "" {
		userID = defaultUserID
	}

	summary, err := h.store.Summary(userID, dateKey)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *StudyTimeHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("study time request failed", "err", err)
	}
	writeError(w, status, err.Error())
}

// ProgressHandler serves progress record CRUD and the per-subject summary.
type ProgressHandler struct {
	store  ProgressStore
	logger *log.Logger
}

func NewProgressHandler(store ProgressStore, logger *log.Logger) *ProgressHandler {
	return &ProgressHandler{store: store, logger: logger}
}

func (h *ProgressHandler) Routes() []string {
	return []string{
		routeProgressList,
		routeProgressGet,
		routeProgressCreate,
		routeProgressUpdate,
		routeProgressDelete,
		routeProgressSubject,
		routeSubjectSummary,
		routeSubjectRename,
	}
}

func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case routeProgressList:
		h.list(w, r)
	case routeProgressGet:
		h.withID(w, r, func(id int64) (any, error) { return h.store.Get(id) })
	case routeProgressCreate:
		h.create(w, r)
	case routeProgressUpdate:
		h.update(w, r)
	case routeProgressDelete:
		h.delete(w, r)
	case routeProgressSubject:
		h.respond(w, http.StatusOK)(h.store.ListBySubject(r.PathValue("subject")))
	case routeSubjectSummary:
		h.respond(w, http.StatusOK)(h.store.SubjectSummaries())
	case routeSubjectRename:
		h.rename(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *ProgressHandler) list(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.respond(w, http.StatusOK)(h.store.List(skip, limit))
}

func (h *ProgressHandler) create(w http.ResponseWriter, r *http.Request) {
	var p models.ProgressCreate
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.respond(w, http.StatusCreated)(h.store.Create(p))
}

func (h *ProgressHandler) update(w http.ResponseWriter, r *http.Request) {
	var u models.ProgressUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.withID(w, r, func(id int64) (any, error) { return h.store.Update(id, u) })
}

func (h *ProgressHandler) rename(w http.ResponseWriter, r *http.Request) {
	var req models.SubjectRename
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	n, err := h.store.RenameSubject(req)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("subject renamed", "from", req.OldName, "to", req.NewName, "records", n)
	writeJSON(w, http.StatusOK, models.SubjectRenameResult{UpdatedCount: n})
}

func (h *ProgressHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.store.Delete(id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) withID(w http.ResponseWriter, r *http.Request, fn func(id int64) (any, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.respond(w, http.StatusOK)(fn(id))
}

// respond returns a function writing either v with status or the error mapped by [statusFor].
func (h *ProgressHandler) respond(w http.ResponseWriter, status int) func(v any, err error) {
	return func(v any, err error) {
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, status, v)
	}
}

func (h *ProgressHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusNotFound:
		writeError(w, status, "progress not found")
	case http.StatusInternalServerError:
		h.logger.Error("progress request failed", "err", err)
		writeError(w, status, "internal server error")
	default:
		writeError(w, status, err.Error())
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return v, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}
