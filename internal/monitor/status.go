// Package monitor tracks reachability of the upstream brainz OS
// service and derives a connection status from probe results.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brainzmonster/os/internal/api"
	"github.com/brainzmonster/os/internal/history"
	"github.com/brainzmonster/os/internal/models"
	"github.com/brainzmonster/os/internal/retry"
)

// Defaults for the polling schedule and health classification.
const (
	DefaultBasePoll      = 3 * time.Second
	DefaultMaxPoll       = 60 * time.Second
	DefaultDegradedAbove = 800 * time.Millisecond
	DefaultOfflineAfter  = 2
	DefaultProbeTimeout  = 4 * time.Second
	DefaultHistoryLimit  = 512
)

// Prober performs a single reachability check against the upstream.
type Prober interface {
	Probe(ctx context.Context) (api.ProbeResult, error)
}

// Options tunes the polling schedule and state thresholds.
type Options struct {
	// BasePoll is the interval between probes while the upstream is
	// healthy, and the starting point of the failure backoff.
	BasePoll time.Duration

	// MaxPoll caps the interval the failure backoff can grow to.
	MaxPoll time.Duration

	// DegradedAbove marks a successful probe as degraded when its
	// round-trip latency exceeds this threshold.
	DegradedAbove time.Duration

	// OfflineAfter is the number of consecutive failures before the
	// connection is reported offline.
	OfflineAfter int

	// ProbeTimeout bounds each individual probe.
	ProbeTimeout time.Duration

	// HistoryLimit caps the number of retained probe samples.
	HistoryLimit int
}

func (o Options) withDefaults() Options {
	if o.BasePoll <= 0 {
		o.BasePoll = DefaultBasePoll
	}
	if o.MaxPoll <= 0 {
		o.MaxPoll = DefaultMaxPoll
	}
	if o.MaxPoll < o.BasePoll {
		o.MaxPoll = o.BasePoll
	}
	if o.DegradedAbove <= 0 {
		o.DegradedAbove = DefaultDegradedAbove
	}
	if o.OfflineAfter <= 0 {
		o.OfflineAfter = DefaultOfflineAfter
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	return o
}

// NextPollInterval computes the wait before the next probe given the
// number of consecutive failures: base doubled per failure, capped at
// max. Zero failures yields the base interval.
func NextPollInterval(base, max time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = DefaultBasePoll
	}
	if max < base {
		max = base
	}
	interval := base
	for i := 0; i < failures; i++ {
		interval *= 2
		if interval >= max {
			return max
		}
	}
	return interval
}

// Monitor polls the upstream in the background and keeps the latest
// connection status plus a bounded window of probe samples.
type Monitor struct {
	opts   Options
	prober Prober

	mu      sync.RWMutex
	status  models.ConnectionStatus
	samples *history.Log[models.ProbeSample]

	refreshCh chan struct{}

	cancel context.CancelFunc
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a monitor for the given prober. It does not start
// polling until Start is called.
func New(prober Prober, opts Options) *Monitor {
	opts = opts.withDefaults()
	return &Monitor{
		opts:   opts,
		prober: prober,
		status: models.ConnectionStatus{
			State:              models.StateConnecting,
			NextPollIntervalMs: opts.BasePoll.Milliseconds(),
		},
		samples:   history.New[models.ProbeSample](opts.HistoryLimit),
		refreshCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.run(ctx)
}

// Stop cancels any in-flight probe, terminates the loop and waits
// until it is done.
func (m *Monitor) Stop() {
	select {
	case <-m.doneCh:
		return
	default:
	}
	if m.cancel != nil {
		m.cancel()
	}
	close(m.stopCh)
	<-m.doneCh
}

// Refresh requests an immediate out-of-band probe. The pending wait is
// abandoned and the schedule restarts from the fresh result. Multiple
// calls before the probe runs coalesce into one.
func (m *Monitor) Refresh() {
	select {
	case m.refreshCh <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the current connection status.
func (m *Monitor) Snapshot() models.ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.status
	if m.status.LatencyMs != nil {
		v := *m.status.LatencyMs
		out.LatencyMs = &v
	}
	if m.status.LastSuccessAt != nil {
		t := *m.status.LastSuccessAt
		out.LastSuccessAt = &t
	}
	return out
}

// Samples returns the retained probe samples, most recent first.
func (m *Monitor) Samples() []models.ProbeSample {
	return m.samples.Entries()
}

// RunOnce executes a single probe, folds the result into the status
// and returns the updated snapshot.
func (m *Monitor) RunOnce(ctx context.Context) models.ConnectionStatus {
	started := time.Now()
	err := retry.Do(ctx, retry.Policy{AttemptTimeout: m.opts.ProbeTimeout}, func(ctx context.Context) error {
		_, err := m.prober.Probe(ctx)
		return err
	})
	latency := time.Since(started)

	// A cancelled caller context is a shutdown, not an upstream failure.
	if err != nil && ctx.Err() != nil {
		return m.Snapshot()
	}

	sample := models.ProbeSample{
		OK:        err == nil,
		CheckedAt: time.Now().UTC(),
	}
	if err != nil {
		sample.Error = err.Error()
	} else {
		sample.LatencyMs = latency.Milliseconds()
	}

	m.apply(sample)
	return m.Snapshot()
}

func (m *Monitor) apply(sample models.ProbeSample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples.Push(sample)

	if sample.OK {
		m.status.ConsecutiveFailures = 0
		m.status.LastError = ""
		latency := sample.LatencyMs
		m.status.LatencyMs = &latency
		at := sample.CheckedAt
		m.status.LastSuccessAt = &at
		if time.Duration(sample.LatencyMs)*time.Millisecond > m.opts.DegradedAbove {
			m.status.State = models.StateDegraded
		} else {
			m.status.State = models.StateOnline
		}
		m.status.NextPollIntervalMs = m.opts.BasePoll.Milliseconds()
		return
	}

	// Last known latency stays visible while the upstream is down.
	m.status.ConsecutiveFailures++
	m.status.LastError = sample.Error
	if m.status.ConsecutiveFailures >= m.opts.OfflineAfter {
		m.status.State = models.StateOffline
	}
	next := NextPollInterval(m.opts.BasePoll, m.opts.MaxPoll, m.status.ConsecutiveFailures)
	m.status.NextPollIntervalMs = next.Milliseconds()
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.doneCh)

	status := m.RunOnce(ctx)
	timer := time.NewTimer(m.nextWait(status))
	defer timer.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-timer.C:
			status = m.RunOnce(ctx)
			timer.Reset(m.nextWait(status))
		case <-m.refreshCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			logrus.Debug("monitor: refresh requested")
			status = m.RunOnce(ctx)
			timer.Reset(m.nextWait(status))
		}
	}
}

func (m *Monitor) nextWait(status models.ConnectionStatus) time.Duration {
	wait := time.Duration(status.NextPollIntervalMs) * time.Millisecond
	if wait <= 0 {
		wait = m.opts.BasePoll
	}
	return wait
}
