package core

import (
	"encoding/json"
	"time"
)

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSuccess   RunStatus = "success"
	RunStatusFailure   RunStatus = "failure"
	RunStatusCancelled RunStatus = "cancelled"
)

// Known reports whether the status is one of the defined constants.
func (s RunStatus) Known() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSuccess, RunStatusFailure, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// HistoryEntry is a record of a past pipeline run.
type HistoryEntry struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Timestamp        int64           `json:"timestamp"` // epoch millis
	Status           RunStatus       `json:"status"`
	PipelineSnapshot json.RawMessage `json:"pipelineSnapshot,omitempty"`
	Steps            []StepRecord    `json:"steps,omitempty"`
	PullRequests     []PullRequest   `json:"pullRequests,omitempty"`
}

// Time returns the entry timestamp as a UTC time.
func (e HistoryEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// HasSnapshot reports whether the run carries a restorable pipeline snapshot.
func (e HistoryEntry) HasSnapshot() bool {
	return len(e.PipelineSnapshot) > 0 && string(e.PipelineSnapshot) != "null"
}

// Clone returns a deep copy of the entry.
func (e HistoryEntry) Clone() HistoryEntry {
	out := e
	if e.PipelineSnapshot != nil {
		out.PipelineSnapshot = append(json.RawMessage(nil), e.PipelineSnapshot...)
	}
	if e.Steps != nil {
		out.Steps = append([]StepRecord(nil), e.Steps...)
	}
	if e.PullRequests != nil {
		out.PullRequests = append([]PullRequest(nil), e.PullRequests...)
	}
	return out
}

// StepRecord is the execution log of one pipeline step.
type StepRecord struct {
	Index       int       `json:"index"`
	IntentID    string    `json:"intentId"`
	Description string    `json:"description,omitempty"`
	Status      RunStatus `json:"status"`
	StartTime   int64     `json:"startTime"`
	EndTime     int64     `json:"endTime,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// PullRequest links a run to a pull request it opened or updated.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	State   string `json:"state,omitempty"`
	Head    string `json:"head,omitempty"`
	Base    string `json:"base,omitempty"`
	IsDraft bool   `json:"isDraft,omitempty"`
}
