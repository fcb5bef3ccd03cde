package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
)

// Session is one charging allocation held by a substation.
type Session struct {
	ID           string    `json:"session_id"`
	EVID         string    `json:"ev_id"`
	RequestedKW  float64   `json:"requested_kw"`
	StartTime    time.Time `json:"start_time"`
	SubstationID string    `json:"substation_id"`
	Status       string    `json:"status"`
}

// Status is a point-in-time view of a substation.
type Status struct {
	SubstationID      string  `json:"substation_id"`
	CurrentLoad       float64 `json:"current_load"`
	MaxCapacity       float64 `json:"max_capacity"`
	LoadPercentage    float64 `json:"load_percentage"`
	ActiveChargers    int     `json:"active_chargers"`
	AvailableCapacity float64 `json:"available_capacity"`
}

// maxRequestKW bounds a single request so its watt value fits in an int64.
const maxRequestKW = 1e12

// watts converts kW to whole watts. Load is accounted in watts so repeated starts and
// stops never drift from the sum of active sessions.
func watts(kw float64) int64 {
	return int64(math.Round(kw * 1000))
}

func kilowatts(w int64) float64 {
	return float64(w) / 1000
}

// Substation owns a fixed capacity budget and the sessions allocated against it.
// All state changes are serialised by mu; no other substation shares it.
type Substation struct {
	id       string
	maxLoadW int64
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	loadW    int64
	sessions map[string]*Session
}

// NewSubstation builds a substation with no sessions. metrics may be nil.
func NewSubstation(id string, maxCapacity float64, metrics *Metrics, logger *zap.Logger) *Substation {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Substation{
		id:       id,
		maxLoadW: watts(maxCapacity),
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	metrics.setCapacity(kilowatts(s.maxLoadW))
	metrics.setLoad(0, 0)
	return s
}

// ID returns the substation identifier.
func (s *Substation) ID() string {
	return s.id
}

// StartCharging allocates requestedKW for evID when it fits in the remaining capacity.
// A request that does not fit returns grid.ErrCapacityExhausted and changes nothing.
func (s *Substation) StartCharging(evID string, requestedKW float64) (Session, error) {
	evID = strings.TrimSpace(evID)
	if evID == "" {
		return Session{}, &grid.ValidationError{Field: "ev_id", Reason: "is required"}
	}
	if requestedKW <= 0 || math.IsNaN(requestedKW) || math.IsInf(requestedKW, 0) {
		return Session{}, &grid.ValidationError{Field: "requested_kw", Reason: "must be positive"}
	}
	if requestedKW > maxRequestKW {
		return Session{}, &grid.ValidationError{Field: "requested_kw", Reason: "is too large"}
	}
	requestedW := watts(requestedKW)
	if requestedW == 0 {
		return Session{}, &grid.ValidationError{Field: "requested_kw", Reason: "must be at least 1 W"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadW+requestedW > s.maxLoadW {
		available := kilowatts(s.maxLoadW - s.loadW)
		s.metrics.rejected()
		s.logger.Warn("cannot start charging: insufficient capacity",
			zap.String("ev_id", evID),
			zap.Float64("requested_kw", requestedKW),
			zap.Float64("available_kw", available),
		)
		return Session{}, fmt.Errorf("%w: requested %.1f kW, available %.1f kW", grid.ErrCapacityExhausted, requestedKW, available)
	}

	started := s.now()
	session := &Session{
		ID:           s.newSessionID(evID, started),
		EVID:         evID,
		RequestedKW:  kilowatts(requestedW),
		StartTime:    started,
		SubstationID: s.id,
		Status:       "charging",
	}
	s.sessions[session.ID] = session
	s.loadW += requestedW

	s.metrics.setLoad(kilowatts(s.loadW), len(s.sessions))
	s.metrics.accepted()
	s.logger.Info("started charging session",
		zap.String("session_id", session.ID),
		zap.String("ev_id", evID),
		zap.Float64("requested_kw", requestedKW),
	)
	return *session, nil
}

// newSessionID composes substation id, EV id and start time. The time part is bumped on
// collision so an active session is never overwritten. Callers hold mu.
func (s *Substation) newSessionID(evID string, at time.Time) string {
	nanos := at.UnixNano()
	for {
		id := fmt.Sprintf("%s_%s_%d", s.id, evID, nanos)
		if _, taken := s.sessions[id]; !taken {
			return id
		}
		nanos++
	}
}

// StopCharging releases a session and returns it with how long it ran.
// Unknown ids return grid.ErrNotFound and leave state untouched.
func (s *Substation) StopCharging(sessionID string) (Session, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, 0, fmt.Errorf("%w: %s", grid.ErrNotFound, sessionID)
	}

	duration := s.now().Sub(session.StartTime)
	delete(s.sessions, sessionID)
	s.loadW -= watts(session.RequestedKW)

	s.metrics.setLoad(kilowatts(s.loadW), len(s.sessions))
	s.metrics.stopped(duration.Seconds())
	s.logger.Info("stopped charging session",
		zap.String("session_id", sessionID),
		zap.Duration("duration", duration),
	)

	stopped := *session
	stopped.Status = grid.StatusStopped
	return stopped, duration, nil
}

// Telemetry reports current load and capacity.
func (s *Substation) Telemetry() grid.Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return grid.Telemetry{CurrentLoad: kilowatts(s.loadW), TotalCapacity: kilowatts(s.maxLoadW)}
}

// Status returns a snapshot of load and sessions count.
func (s *Substation) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	tel := grid.Telemetry{CurrentLoad: kilowatts(s.loadW), TotalCapacity: kilowatts(s.maxLoadW)}
	return Status{
		SubstationID:      s.id,
		CurrentLoad:       tel.CurrentLoad,
		MaxCapacity:       tel.TotalCapacity,
		LoadPercentage:    tel.LoadPercentage(),
		ActiveChargers:    len(s.sessions),
		AvailableCapacity: kilowatts(s.maxLoadW - s.loadW),
	}
}

// Sessions returns active sessions ordered by start time.
func (s *Substation) Sessions() []Session {
	s.mu.Lock()
	out := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, *session)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}
