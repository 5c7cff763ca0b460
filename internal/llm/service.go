// Package llm wraps the upstream inference endpoints with validation,
// retries and a bounded prompt history for the console.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brainzmonster/os/internal/api"
	"github.com/brainzmonster/os/internal/history"
	"github.com/brainzmonster/os/internal/models"
	"github.com/brainzmonster/os/internal/retry"
)

// Generation defaults applied when a prompt does not override them.
const (
	DefaultMaxTokens   = 100
	DefaultTemperature = 0.7
)

// ErrEmptyPrompt rejects queries with no usable prompt text.
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// QueryClient is the slice of the upstream API the service needs.
type QueryClient interface {
	Query(ctx context.Context, req api.QueryRequest) (api.QueryResponse, error)
	QueryStream(ctx context.Context, req api.QueryRequest) (*api.Stream, error)
}

// Options tunes generation defaults and retry behaviour.
type Options struct {
	MaxTokens   int
	Temperature float64

	Retries   int
	BaseDelay time.Duration

	// Timeout bounds each buffered query attempt. Streams are exempt;
	// they live until closed.
	Timeout time.Duration

	HistoryLimit int
}

func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature <= 0 {
		o.Temperature = DefaultTemperature
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 300 * time.Millisecond
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 20
	}
	return o
}

// Prompt is one inference request. Non-positive MaxTokens or
// Temperature fall back to the service defaults.
type Prompt struct {
	Text         string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// Service executes prompts against the upstream and remembers the most
// recent ones so the console can offer them for recall.
type Service struct {
	client QueryClient
	opts   Options
	log    *history.Log[models.QueryRecord]
}

// NewService creates a query service around the given client.
func NewService(client QueryClient, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		client: client,
		opts:   opts,
		log:    history.New[models.QueryRecord](opts.HistoryLimit),
	}
}

// Query runs a buffered inference request. The prompt is recorded once
// validation passes, so it stays recallable even when the upstream is
// down.
func (s *Service) Query(ctx context.Context, prompt Prompt) (api.QueryResponse, error) {
	wire, err := s.wireRequest(prompt)
	if err != nil {
		return api.QueryResponse{}, err
	}
	s.remember(wire)

	policy := retry.Policy{MaxRetries: s.opts.Retries, BaseDelay: s.opts.BaseDelay, AttemptTimeout: s.opts.Timeout}
	res, err := retry.Execute(ctx, policy, func(ctx context.Context) (api.QueryResponse, error) {
		return s.client.Query(ctx, wire)
	})
	if err != nil {
		return api.QueryResponse{}, err
	}

	logrus.WithFields(logrus.Fields{
		"session": res.SessionID,
		"tokens":  tokenCount(res.Meta),
	}).Debug("llm: query completed")
	return res, nil
}

// QueryStream opens a streaming inference request. Streams are never
// retried; a broken stream surfaces to the caller instead of silently
// replaying the prompt.
func (s *Service) QueryStream(ctx context.Context, prompt Prompt) (*api.Stream, error) {
	wire, err := s.wireRequest(prompt)
	if err != nil {
		return nil, err
	}
	s.remember(wire)
	return s.client.QueryStream(ctx, wire)
}

// History returns the recorded prompts, most recent first.
func (s *Service) History() []models.QueryRecord {
	return s.log.Entries()
}

func (s *Service) wireRequest(prompt Prompt) (api.QueryRequest, error) {
	text := strings.TrimSpace(prompt.Text)
	if text == "" {
		return api.QueryRequest{}, ErrEmptyPrompt
	}

	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.opts.MaxTokens
	}
	temperature := prompt.Temperature
	if temperature <= 0 {
		temperature = s.opts.Temperature
	}

	return api.QueryRequest{
		Input:        text,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
		SystemPrompt: strings.TrimSpace(prompt.SystemPrompt),
	}, nil
}

func (s *Service) remember(wire api.QueryRequest) {
	s.log.Push(models.QueryRecord{
		Prompt:       wire.Input,
		SystemPrompt: wire.SystemPrompt,
		Timestamp:    time.Now().UTC(),
	})
}

func tokenCount(meta *api.QueryMeta) int {
	if meta == nil {
		return 0
	}
	return meta.TotalTokens
}
