package models

import "time"

// TrainingMode distinguishes real fine-tuning from estimate-only submissions.
type TrainingMode string

const (
	ModeLive      TrainingMode = "live"
	ModeSimulated TrainingMode = "simulated"
)

// Session statuses assigned locally. Statuses reported by the upstream
// poll endpoint pass through verbatim.
const (
	SessionSubmitted = "submitted"
	SessionCancelled = "cancelled"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
)

// TrainingSession tracks the lifecycle of one training submission. At most
// one session is tracked per coordinator; a new submission replaces it.
type TrainingSession struct {
	Mode      TrainingMode `json:"mode"`
	SessionID string       `json:"session_id,omitempty"`
	Progress  float64      `json:"progress"`
	Status    string       `json:"status"`
	StartedAt time.Time    `json:"started_at"`
}

// Terminal reports whether the session can no longer change state.
func (s TrainingSession) Terminal() bool {
	switch s.Status {
	case SessionCancelled, SessionCompleted, SessionFailed:
		return true
	}
	return false
}

// HistoryEntry is one structured line in a component's bounded activity log.
type HistoryEntry struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
