package upstream

import (
	"encoding/json"

	"github.com/Nexora-Open-Source/tweet-filter/types"
)

// Job status values reported by the remote service
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Channel message types
const (
	MessageProgress = "progress"
	MessageResult   = "result"
	MessageError    = "error"
)

// JobStatus is the payload of the job-status endpoint
type JobStatus struct {
	Status         string          `json:"status"`
	Progress       *Progress       `json:"progress,omitempty"`
	PartialResults *PartialResults `json:"partial_results,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// Progress is the remote progress report, shared by both transports
type Progress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Message    string  `json:"message,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
}

// Model converts the wire progress into the client representation
func (p Progress) Model() types.Progress {
	processed, total := p.Current, p.Total
	if processed < 0 {
		processed = 0
	}
	if total < 0 {
		total = 0
	}
	return types.Progress{Processed: processed, Total: total, Message: p.Message}
}

// PartialResults carries the items evaluated so far
type PartialResults struct {
	PartialTweets []types.FilteredItem `json:"partial_tweets"`
}

// Results is a final result set as sent by the service
type Results struct {
	FilteredTweets []types.FilteredItem `json:"filtered_tweets"`
	Summary        *string              `json:"summary,omitempty"`
}

// ResultSet converts the wire results into the client representation
func (r Results) ResultSet() types.ResultSet {
	return types.ResultSet{Items: r.FilteredTweets, Summary: r.Summary}
}

// Message is one typed inbound message on the push channel
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrorPayload is the data of an "error" message
type ErrorPayload struct {
	Message string `json:"message"`
}

// UnmarshalJSON accepts both {"message": "..."} and a bare string
func (e *ErrorPayload) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Message = s
		return nil
	}
	type plain ErrorPayload
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = ErrorPayload(p)
	return nil
}
