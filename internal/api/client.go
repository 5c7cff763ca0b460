package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	userAgent = "brainz-console/1.0"

	// maxDetailBytes bounds how much of an upstream error body is retained.
	maxDetailBytes = 8 << 10
)

// Operation names used in transport errors. They match the logical
// operations the console consumes, not URL paths.
const (
	opProbe       = "probe"
	opHealth      = "health"
	opQuery       = "query"
	opQueryStream = "query-stream"
	opTrain       = "train"
	opTrainStatus = "train-status"
	opEstimate    = "train-estimate"
)

// Config carries the connection settings applied to every outbound call.
// Each Client owns its own copy; there is no process-global API state.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client talks to the brainz OS HTTP API. Every remote operation of the
// console core goes through one of its methods.
type Client struct {
	cfg    Config
	client *http.Client
}

// New validates the configuration and returns a ready client.
func New(cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	// No client-wide timeout: budgets are per attempt and set by callers
	// through contexts, so long training calls and streams stay possible.
	return &Client{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
	}, nil
}

// BaseURL reports the normalised endpoint this client talks to.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Probe performs the lightweight health check against the service root.
func (c *Client) Probe(ctx context.Context) (ProbeResult, error) {
	var out ProbeResult
	if err := c.doJSON(ctx, opProbe, http.MethodGet, "/", nil, nil, &out); err != nil {
		return ProbeResult{}, err
	}
	if out.Message == "" {
		return ProbeResult{}, &TransportError{Op: opProbe, Detail: "response missing message field"}
	}
	return out, nil
}

// Health fetches the extended diagnostics report.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	var out HealthReport
	if err := c.doJSON(ctx, opHealth, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return HealthReport{}, err
	}
	return out, nil
}

// Query runs one synchronous generation request.
func (c *Client) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	var out QueryResponse
	if err := c.doJSON(ctx, opQuery, http.MethodPost, "/api/llm/query", nil, req, &out); err != nil {
		return QueryResponse{}, err
	}
	// The service reports generation failures in-band with HTTP 200.
	if out.Error != "" {
		return QueryResponse{}, &TransportError{Op: opQuery, Detail: out.Error}
	}
	return out, nil
}

// Train submits a training batch. With DryRun set the service only returns
// estimates and does not mutate model state.
func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainResponse, error) {
	var out TrainResponse
	if err := c.doJSON(ctx, opTrain, http.MethodPost, "/api/llm/train", nil, req, &out); err != nil {
		return TrainResponse{}, err
	}
	return out, nil
}

// Estimate previews token usage and sample quality without training.
func (c *Client) Estimate(ctx context.Context, req EstimateRequest) (EstimateResponse, error) {
	var out EstimateResponse
	if err := c.doJSON(ctx, opEstimate, http.MethodPost, "/api/llm/train/estimate", nil, req, &out); err != nil {
		return EstimateResponse{}, err
	}
	return out, nil
}

// TrainStatus fetches progress for a previously submitted training session.
func (c *Client) TrainStatus(ctx context.Context, sessionID string) (TrainStatusResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return TrainStatusResponse{}, &TransportError{Op: opTrainStatus, Detail: "session id is required"}
	}
	query := url.Values{"session_id": []string{sessionID}}
	var out TrainStatusResponse
	if err := c.doJSON(ctx, opTrainStatus, http.MethodGet, "/api/llm/train/status", query, nil, &out); err != nil {
		return TrainStatusResponse{}, err
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}
	return req, nil
}

// doJSON performs one request/response exchange. Non-2xx responses become
// TransportErrors carrying the upstream body verbatim.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return &TransportError{Op: op, Detail: "invalid request", Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logrus.Debugf("api: %s %s %s", op, method, path)
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     readDetail(resp.Body),
		}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     "malformed response body",
			Err:        err,
		}
	}
	return nil
}

func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxDetailBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
