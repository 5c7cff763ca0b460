package models

import "time"

// ConnectionState describes the monitor's current view of the remote service.
type ConnectionState string

const (
	StateConnecting ConnectionState = "connecting"
	StateOnline     ConnectionState = "online"
	StateDegraded   ConnectionState = "degraded"
	StateOffline    ConnectionState = "offline"
)

// ConnectionStatus is a point-in-time snapshot of backend health. Callers
// receive copies; only the owning monitor mutates the underlying state.
type ConnectionStatus struct {
	State               ConnectionState `json:"state"`
	LatencyMs           *int64          `json:"latency_ms,omitempty"`
	LastSuccessAt       *time.Time      `json:"last_success_at,omitempty"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	NextPollIntervalMs  int64           `json:"next_poll_interval_ms"`
	LastError           string          `json:"last_error,omitempty"`
}

// ProbeSample captures the outcome of a single health probe.
type ProbeSample struct {
	OK        bool      `json:"ok"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
