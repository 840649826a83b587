package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/syncstate"
	"github.com/desertthunder/studyx/internal/timer"
)

// SyncNow runs one sync step and reports whether a request was acknowledged.
//
// The step is skipped (false, nil) in manual mode, without a subject, with no elapsed study time, or when the
// server already acknowledged the current total. Errors come from the study API and leave every state unchanged.
func (c *TimerController) SyncNow(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, shared.ErrControllerClosed
	}
	req := c.prepareSyncLocked(c.nowMs())
	c.mu.Unlock()

	if req == nil {
		return false, nil
	}
	return c.runSync(ctx, *req)
}

// prepareSyncLocked builds the request for the current run, creating the subject's session on first use.
// The reported total excludes the part of the run credited to earlier days. It returns nil when there is
// nothing to send.
func (c *TimerController) prepareSyncLocked(nowMs int64) *models.SyncRequest {
	c.rolloverLocked(time.UnixMilli(nowMs))

	s := c.state
	if s.Mode == timer.ModeManual || s.SelectedSubject == "" {
		return nil
	}

	total := syncstate.DayTotal(c.syncState, s.SelectedSubject, timer.StudyElapsedMs(s, nowMs))
	if total <= 0 {
		return nil
	}

	_, existed := c.syncState.Sessions[s.SelectedSubject]
	next, session := syncstate.GetOrCreateSession(c.syncState, s.SelectedSubject, nowMs)
	if !existed {
		c.syncState = next
		c.saveSyncLocked()
	}

	if total <= session.LastSyncedTotalMs {
		return nil
	}

	return &models.SyncRequest{
		UserID:          c.cfg.UserID,
		DateKey:         c.syncState.DateKey,
		Subject:         s.SelectedSubject,
		ClientSessionID: session.ClientSessionID,
		TotalMs:         total,
	}
}

// flushLocked captures the current total and sends it in the background.
func (c *TimerController) flushLocked(nowMs int64) {
	if req := c.prepareSyncLocked(nowMs); req != nil {
		c.goSyncLocked(*req)
	}
}

func (c *TimerController) goSyncLocked(req models.SyncRequest) {
	if c.closed {
		return
	}

	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		_, _ = c.runSync(c.ctx, req)
	}()
}

// runSync sends req and folds the response into the live state.
//
// The acknowledgement only touches the synced subject's session, and only while that session still carries
// the request's ID. A request whose total the session already acknowledged is dropped before sending.
func (c *TimerController) runSync(ctx context.Context, req models.SyncRequest) (bool, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, shared.ErrControllerClosed
	}
	session, ok := c.syncState.Sessions[req.Subject]
	stale := ok && session.ClientSessionID == req.ClientSessionID && req.TotalMs <= session.LastSyncedTotalMs
	c.mu.Unlock()

	if stale {
		return false, nil
	}

	resp, err := c.studyTime.Sync(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Warn("study time sync failed", "subject", req.Subject, "total_ms", req.TotalMs, "err", err)
		c.emitLocked(SyncFailed, "Sync failed", err)
		return false, err
	}
	if c.closed {
		return true, nil
	}

	c.logger.Debug("study time synced", "subject", req.Subject, "total_ms", req.TotalMs, "applied_ms", resp.AppliedDeltaMs)

	if req.DateKey == c.syncState.DateKey {
		c.syncState = syncstate.RecordAck(c.syncState, req.Subject, req.ClientSessionID, req.TotalMs, c.nowMs())
		c.saveSyncLocked()

		c.serverTodayMs = resp.ServerTodayTotalMs
		c.serverWeekMs = resp.ServerWeekTotalMs
		c.summaryLoaded = true
	}

	c.emitLocked(Synced, "", nil)
	return true, nil
}
