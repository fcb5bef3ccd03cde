package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
)

// Balancer places charge requests.
type Balancer interface {
	Charge(ctx context.Context, evID string, requestedKW float64) (grid.SessionDescriptor, error)
}

// Stopper releases a session on the substation that holds it.
type Stopper interface {
	Stop(ctx context.Context, endpoint, sessionID string) (grid.StopResult, error)
}

// Record is the entry point's view of a running session.
type Record struct {
	SessionID       string    `json:"session_id"`
	EVID            string    `json:"ev_id"`
	RequestedKW     float64   `json:"requested_kw"`
	SubstationID    string    `json:"substation_id"`
	SubstationURL   string    `json:"substation_url"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
}

// Tracker remembers sessions created through the entry point. The lock is never held across
// network calls.
type Tracker struct {
	balancer Balancer
	stopper  Stopper
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]Record
}

// NewTracker builds an empty tracker. metrics may be nil.
func NewTracker(balancer Balancer, stopper Stopper, metrics *Metrics, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		balancer: balancer,
		stopper:  stopper,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]Record),
	}
}

// Submit forwards req to the balancer and tracks the session it returns.
func (t *Tracker) Submit(ctx context.Context, req grid.ChargeRequest) (grid.SessionDescriptor, error) {
	if err := req.Validate(); err != nil {
		return grid.SessionDescriptor{}, err
	}
	t.metrics.received()

	start := t.now()
	desc, err := t.balancer.Charge(ctx, req.EVID, req.KW())
	t.metrics.observe(t.now().Sub(start).Seconds())
	if err != nil {
		t.metrics.failure()
		t.logger.Warn("charge request failed", zap.String("ev_id", req.EVID), zap.Error(err))
		return grid.SessionDescriptor{}, err
	}

	record := Record{
		SessionID:       desc.SessionID,
		EVID:            req.EVID,
		RequestedKW:     req.KW(),
		SubstationID:    desc.SubstationID,
		SubstationURL:   desc.SubstationURL,
		StartTime:       t.now().UTC(),
		DurationMinutes: req.DurationMinutes,
	}

	t.mu.Lock()
	t.sessions[record.SessionID] = record
	active := len(t.sessions)
	t.mu.Unlock()
	t.metrics.active(active)

	t.logger.Info("started charging session",
		zap.String("session_id", desc.SessionID),
		zap.String("ev_id", req.EVID),
		zap.String("substation_id", desc.SubstationID),
	)
	return desc, nil
}

// Stop releases a tracked session. Unknown ids fail with grid.ErrNotFound without contacting
// any substation. The record is kept when the substation call fails, so the stop can be
// retried.
func (t *Tracker) Stop(ctx context.Context, sessionID string) (grid.StopResult, error) {
	t.mu.Lock()
	record, ok := t.sessions[sessionID]
	t.mu.Unlock()
	if !ok {
		return grid.StopResult{}, fmt.Errorf("%w: %s", grid.ErrNotFound, sessionID)
	}

	res, err := t.stopper.Stop(ctx, record.SubstationURL, sessionID)
	if err != nil {
		if !errors.Is(err, grid.ErrNotFound) {
			t.logger.Warn("stop charging failed",
				zap.String("session_id", sessionID),
				zap.String("substation", record.SubstationURL),
				zap.Error(err),
			)
		}
		return grid.StopResult{}, err
	}

	t.mu.Lock()
	delete(t.sessions, sessionID)
	active := len(t.sessions)
	t.mu.Unlock()
	t.metrics.active(active)

	t.logger.Info("stopped charging session", zap.String("session_id", sessionID))
	if res.Status == "" {
		res.Status = grid.StatusStopped
	}
	if res.SessionID == "" {
		res.SessionID = sessionID
	}
	return res, nil
}

// List returns tracked sessions ordered by start time.
func (t *Tracker) List() []Record {
	t.mu.Lock()
	out := make([]Record, 0, len(t.sessions))
	for _, r := range t.sessions {
		out = append(out, r)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Count returns the number of tracked sessions.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
