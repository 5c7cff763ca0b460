package api

// ProbeResult is returned by the service root and confirms liveness.
type ProbeResult struct {
	Message string `json:"message"`
}

// HealthReport is the extended diagnostics payload from /health.
type HealthReport struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	DBConnected bool   `json:"db_connected"`
	Version     string `json:"version"`
}

// QueryRequest is the body of POST /api/llm/query.
type QueryRequest struct {
	Input        string  `json:"input"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
}

// QueryMeta carries generation accounting attached to a query response.
type QueryMeta struct {
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	TotalTokens   int     `json:"total_tokens"`
	InferenceTime float64 `json:"inference_time"`
	Timestamp     string  `json:"timestamp"`
	Model         string  `json:"model"`
}

// QueryResponse is returned by POST /api/llm/query. The service reports
// generation failures in-band via the error field, still with HTTP 200.
type QueryResponse struct {
	SessionID string     `json:"session_id"`
	Response  string     `json:"response"`
	Error     string     `json:"error,omitempty"`
	Meta      *QueryMeta `json:"meta,omitempty"`
}

// TrainRequest is the body of POST /api/llm/train.
type TrainRequest struct {
	Texts  []string `json:"texts"`
	DryRun bool     `json:"dry_run"`
	Tags   []string `json:"tags,omitempty"`
	Source string   `json:"source,omitempty"`
}

// TrainMeta carries submission bookkeeping from the training endpoint.
type TrainMeta struct {
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
}

// TrainResponse is returned by POST /api/llm/train. Dry-run submissions carry
// estimate fields; live submissions carry a session id usable for polling.
type TrainResponse struct {
	Status          string     `json:"status"`
	TrainedSamples  int        `json:"trained_samples"`
	EstimatedTokens int        `json:"estimated_tokens"`
	DryRun          bool       `json:"dry_run"`
	Tags            []string   `json:"tags,omitempty"`
	Source          string     `json:"source,omitempty"`
	Meta            *TrainMeta `json:"meta,omitempty"`
}

// SessionID returns the server-assigned session id, or "" when absent.
func (r TrainResponse) SessionID() string {
	if r.Meta == nil {
		return ""
	}
	return r.Meta.SessionID
}

// TrainStatusResponse reports progress for a polled training session.
type TrainStatusResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}

// EstimateRequest is the body of POST /api/llm/train/estimate.
type EstimateRequest struct {
	Texts       []string `json:"texts"`
	Clean       bool     `json:"clean,omitempty"`
	Deduplicate bool     `json:"deduplicate"`
	MinLength   int      `json:"min_length,omitempty"`
}

// EstimateStats summarises a sample batch without training on it.
type EstimateStats struct {
	Count              int     `json:"count"`
	CharsMin           int     `json:"chars_min"`
	CharsMax           int     `json:"chars_max"`
	CharsAvg           float64 `json:"chars_avg"`
	CharsMedian        float64 `json:"chars_median"`
	TokenEstimateTotal int     `json:"token_estimate_total"`
	TokenEstimateAvg   float64 `json:"token_estimate_avg"`
}

// EstimateResponse is returned by POST /api/llm/train/estimate.
type EstimateResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Stats   *EstimateStats `json:"stats,omitempty"`
}
