// Package loadtest simulates rush-hour charge traffic against the charge request service.
package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"evgrid/backend/libs/grid"
	"evgrid/backend/libs/gridclient"
)

// Common EV charger ratings in kW.
var chargerRatings = []float64{7, 11, 22, 50}

// Options configure one run.
type Options struct {
	BaseURL     string
	Requests    int
	Concurrency int
	RampUp      time.Duration
	Timeout     time.Duration
	StopAll     bool
}

// Result is the outcome of one charge request.
type Result struct {
	RequestID       int       `json:"request_id"`
	EVID            string    `json:"ev_id"`
	RequestedKW     float64   `json:"requested_kw"`
	DurationMinutes int       `json:"duration_minutes"`
	ResponseTime    float64   `json:"response_time"`
	StatusCode      int       `json:"status_code"`
	Success         bool      `json:"success"`
	SessionID       string    `json:"session_id,omitempty"`
	SubstationID    string    `json:"substation_id,omitempty"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Runner fires charge requests with bounded concurrency.
type Runner struct {
	client *gridclient.BaseClient
	opts   Options
	rng    *rand.Rand
	logger *zap.Logger

	mu      sync.Mutex
	results []Result
}

// NewRunner builds a runner. rng may be nil.
func NewRunner(opts Options, doer gridclient.HTTPDoer, rng *rand.Rand, logger *zap.Logger) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>7))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		client: gridclient.NewBaseClient(opts.BaseURL, doer),
		opts:   opts,
		rng:    rng,
		logger: logger,
	}
}

// Request builds a random EV charge request.
func (r *Runner) Request() grid.ChargeRequest {
	evID := fmt.Sprintf("EV_%d", 1000+r.rng.IntN(9000))
	kw := chargerRatings[r.rng.IntN(len(chargerRatings))]
	minutes := 30 + r.rng.IntN(211)
	return grid.ChargeRequest{EVID: evID, RequestedKW: &kw, DurationMinutes: &minutes}
}

// Status fetches the target's /status body.
func (r *Runner) Status(ctx context.Context) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	code, body, err := r.client.Do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, gridclient.ClassifyStatus(code, body, grid.ErrTransport)
	}
	var out map[string]interface{}
	if err := gridclient.DecodeOK(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Run submits opts.Requests requests, spreading submissions over the ramp-up window. It
// returns when every request finished or ctx is done.
func (r *Runner) Run(ctx context.Context) ([]Result, time.Duration, error) {
	r.logger.Info("starting load test",
		zap.Int("requests", r.opts.Requests),
		zap.Int("concurrency", r.opts.Concurrency),
		zap.Duration("ramp_up", r.opts.RampUp),
	)

	var delay time.Duration
	if r.opts.RampUp > 0 && r.opts.Requests > 0 {
		delay = r.opts.RampUp / time.Duration(r.opts.Requests)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i := 1; i <= r.opts.Requests; i++ {
		if delay > 0 {
			if err := sleep(gctx, delay); err != nil {
				break
			}
		}
		id, req := i, r.Request()
		g.Go(func() error {
			r.record(r.submit(gctx, id, req))
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	elapsed := time.Since(start)
	r.logger.Info("load test completed", zap.Duration("elapsed", elapsed))
	return r.Results(), elapsed, err
}

func (r *Runner) submit(ctx context.Context, id int, req grid.ChargeRequest) Result {
	res := Result{
		RequestID:       id,
		EVID:            req.EVID,
		RequestedKW:     req.KW(),
		DurationMinutes: *req.DurationMinutes,
		Timestamp:       time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	code, body, err := r.client.Do(ctx, http.MethodPost, "/charge", req)
	res.ResponseTime = time.Since(start).Seconds()
	res.StatusCode = code
	if err != nil {
		res.Error = err.Error()
		r.logger.Warn("request failed", zap.Int("request_id", id), zap.Error(err))
		return res
	}
	if code != http.StatusOK {
		res.Error = gridclient.ClassifyStatus(code, body, grid.ErrTransport).Error()
		r.logger.Warn("request rejected", zap.Int("request_id", id), zap.Int("status", code))
		return res
	}

	var desc grid.SessionDescriptor
	if err := json.Unmarshal(body, &desc); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.SessionID = desc.SessionID
	res.SubstationID = desc.SubstationID
	r.logger.Debug("request placed",
		zap.Int("request_id", id),
		zap.String("ev_id", req.EVID),
		zap.String("substation_id", desc.SubstationID),
	)
	return res
}

func (r *Runner) record(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Results returns a copy of everything recorded so far.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// StopAll stops every session the run created. It returns how many stops succeeded.
func (r *Runner) StopAll(ctx context.Context) (stopped, failed int) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for _, res := range r.Results() {
		if !res.Success || res.SessionID == "" {
			continue
		}
		sessionID := res.SessionID
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(gctx, r.opts.Timeout)
			defer cancel()
			code, _, err := r.client.Do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil || code != http.StatusOK {
				failed++
				r.logger.Warn("stop failed", zap.String("session_id", sessionID), zap.Int("status", code), zap.Error(err))
				return nil
			}
			stopped++
			return nil
		})
	}
	_ = g.Wait()
	return stopped, failed
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
