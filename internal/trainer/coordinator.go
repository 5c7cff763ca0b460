// Package trainer submits training batches to the upstream service and
// tracks the resulting session locally.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brainzmonster/os/internal/api"
	"github.com/brainzmonster/os/internal/history"
	"github.com/brainzmonster/os/internal/models"
	"github.com/brainzmonster/os/internal/retry"
)

// TrainClient is the slice of the upstream API the coordinator needs.
type TrainClient interface {
	Train(ctx context.Context, req api.TrainRequest) (api.TrainResponse, error)
	TrainStatus(ctx context.Context, sessionID string) (api.TrainStatusResponse, error)
	Estimate(ctx context.Context, req api.EstimateRequest) (api.EstimateResponse, error)
}

// Options tunes sanitisation, retry behaviour and history retention.
type Options struct {
	// MinWords and Dedupe configure the local cleanup pass.
	MinWords int
	Dedupe   bool

	// Retries and BaseDelay configure the submit retry schedule.
	// Status polls never retry.
	Retries   int
	BaseDelay time.Duration

	// Timeout bounds each individual upstream call.
	Timeout time.Duration

	// HistoryLimit caps the submission activity log.
	HistoryLimit int

	// Source labels submissions that do not carry their own source.
	Source string
}

func (o Options) withDefaults() Options {
	if o.MinWords <= 0 {
		o.MinWords = 1
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 300 * time.Millisecond
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 20
	}
	if o.Source == "" {
		o.Source = "console"
	}
	return o
}

// Request is one training submission as expressed by the console.
type Request struct {
	Texts  []string
	DryRun bool
	Tags   []string
	Source string
}

// Outcome reports how a submission was handled. When SafeTrain falls
// back to a dry run, LiveErr preserves the error of the live attempt.
type Outcome struct {
	Mode     models.TrainingMode
	Response api.TrainResponse
	Stats    SanitizeStats
	LiveErr  error
}

// Coordinator owns the single tracked training session and the bounded
// submission history. A new live submission replaces the tracked
// session regardless of its state.
type Coordinator struct {
	client TrainClient
	opts   Options

	mu      sync.RWMutex
	session *models.TrainingSession

	log *history.Log[models.HistoryEntry]
}

// New creates a coordinator around the given client.
func New(client TrainClient, opts Options) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		client: client,
		opts:   opts,
		log:    history.New[models.HistoryEntry](opts.HistoryLimit),
	}
}

// Train sanitises the batch and submits it. Validation failures are
// reported before any network call. Live submissions that are accepted
// replace the tracked session.
func (c *Coordinator) Train(ctx context.Context, req Request) (Outcome, error) {
	texts, stats := SanitizeTexts(req.Texts, SanitizeOptions{MinWords: c.opts.MinWords, Dedupe: c.opts.Dedupe})
	if len(texts) == 0 {
		return Outcome{Stats: stats}, &ValidationError{Reason: "no usable samples after filtering"}
	}

	source := req.Source
	if source == "" {
		source = c.opts.Source
	}

	submission := uuid.NewString()
	logrus.WithFields(logrus.Fields{
		"submission": submission,
		"samples":    len(texts),
		"dry_run":    req.DryRun,
	}).Info("trainer: submitting batch")

	policy := retry.Policy{MaxRetries: c.opts.Retries, BaseDelay: c.opts.BaseDelay, AttemptTimeout: c.opts.Timeout}
	res, err := retry.Execute(ctx, policy, func(ctx context.Context) (api.TrainResponse, error) {
		return c.client.Train(ctx, api.TrainRequest{
			Texts:  texts,
			DryRun: req.DryRun,
			Tags:   req.Tags,
			Source: source,
		})
	})
	if err != nil {
		c.record(fmt.Sprintf("training submit failed: %v", err))
		return Outcome{Stats: stats}, err
	}

	mode := models.ModeLive
	if req.DryRun || res.Status == "simulated" {
		mode = models.ModeSimulated
	}

	if mode == models.ModeLive {
		c.track(res)
		c.record(fmt.Sprintf("live training accepted: %d samples (session %s)", res.TrainedSamples, res.SessionID()))
	} else {
		c.record(fmt.Sprintf("dry run estimated %d tokens for %d samples", res.EstimatedTokens, res.TrainedSamples))
	}

	return Outcome{Mode: mode, Response: res, Stats: stats}, nil
}

// SafeTrain behaves like Train but degrades a failed live submission
// to a dry run, so the console can always show the operator an
// estimate. Validation failures never fall back, and a failed fallback
// surfaces the original live error.
func (c *Coordinator) SafeTrain(ctx context.Context, req Request) (Outcome, error) {
	if req.DryRun {
		return c.Train(ctx, req)
	}

	out, liveErr := c.Train(ctx, req)
	if liveErr == nil {
		return out, nil
	}
	var verr *ValidationError
	if errors.As(liveErr, &verr) {
		return out, liveErr
	}

	fallback := req
	fallback.DryRun = true
	fbOut, fbErr := c.Train(ctx, fallback)
	if fbErr != nil {
		return out, liveErr
	}

	c.record("fell back to dry run after live submit failure")
	fbOut.LiveErr = liveErr
	return fbOut, nil
}

// PollStatus fetches progress for the tracked session. Terminal
// sessions are returned as-is without touching the network. A poll
// failure keeps the local state untouched.
func (c *Coordinator) PollStatus(ctx context.Context) (models.TrainingSession, error) {
	c.mu.RLock()
	var snapshot models.TrainingSession
	tracked := c.session != nil
	if tracked {
		snapshot = *c.session
	}
	c.mu.RUnlock()

	if !tracked {
		return models.TrainingSession{}, ErrNoSession
	}
	if snapshot.Terminal() {
		return snapshot, nil
	}

	res, err := retry.Execute(ctx, retry.Policy{AttemptTimeout: c.opts.Timeout}, func(ctx context.Context) (api.TrainStatusResponse, error) {
		return c.client.TrainStatus(ctx, snapshot.SessionID)
	})
	if err != nil {
		return snapshot, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The session may have been replaced or cancelled while the poll
	// was in flight; never resurrect it with stale results.
	if c.session == nil {
		return models.TrainingSession{}, ErrNoSession
	}
	if c.session.SessionID != snapshot.SessionID || c.session.Terminal() {
		return *c.session, nil
	}

	previous := c.session.Status
	c.session.Status = res.Status
	c.session.Progress = res.Progress
	updated := *c.session

	if updated.Terminal() && previous != updated.Status {
		c.record(fmt.Sprintf("session %s finished with status %s", updated.SessionID, updated.Status))
	}
	return updated, nil
}

// Cancel marks the tracked session cancelled. The upstream service is
// deliberately not contacted; it exposes no cancellation endpoint and
// the job keeps running there.
func (c *Coordinator) Cancel() (models.TrainingSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return models.TrainingSession{}, ErrNoSession
	}
	if c.session.Terminal() {
		return *c.session, nil
	}

	c.session.Status = models.SessionCancelled
	c.record(fmt.Sprintf("session %s cancelled locally", c.session.SessionID))
	return *c.session, nil
}

// Estimate computes batch statistics upstream without training.
func (c *Coordinator) Estimate(ctx context.Context, texts []string) (api.EstimateStats, error) {
	clean, _ := SanitizeTexts(texts, SanitizeOptions{MinWords: c.opts.MinWords, Dedupe: c.opts.Dedupe})
	if len(clean) == 0 {
		return api.EstimateStats{}, &ValidationError{Reason: "no usable samples after filtering"}
	}

	res, err := retry.Execute(ctx, retry.Policy{AttemptTimeout: c.opts.Timeout}, func(ctx context.Context) (api.EstimateResponse, error) {
		// The batch is already sanitised locally.
		return c.client.Estimate(ctx, api.EstimateRequest{Texts: clean})
	})
	if err != nil {
		return api.EstimateStats{}, err
	}
	if res.Stats == nil {
		return api.EstimateStats{}, &api.TransportError{Op: "train-estimate", Detail: "missing stats in response"}
	}
	return *res.Stats, nil
}

// Session returns a copy of the tracked session if one exists.
func (c *Coordinator) Session() (models.TrainingSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return models.TrainingSession{}, false
	}
	return *c.session, true
}

// History returns the submission activity log, most recent first.
func (c *Coordinator) History() []models.HistoryEntry {
	return c.log.Entries()
}

func (c *Coordinator) track(res api.TrainResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = &models.TrainingSession{
		Mode:      models.ModeLive,
		SessionID: res.SessionID(),
		Status:    models.SessionSubmitted,
		StartedAt: time.Now().UTC(),
	}
}

func (c *Coordinator) record(message string) {
	c.log.Push(models.HistoryEntry{Message: message, Timestamp: time.Now().UTC()})
}
