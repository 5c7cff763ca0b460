package models

import "time"

// QueryRecord remembers a submitted prompt for the console's history view.
type QueryRecord struct {
	Prompt       string    `json:"prompt"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
