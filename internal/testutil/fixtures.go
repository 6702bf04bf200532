package testutil

import (
	"encoding/json"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

// Timestamps used by SampleSnapshot, in epoch millis.
const (
	SampleRun1Time int64 = 1700000000000 // 22:13:20 UTC
	SampleRun2Time int64 = 1700000060000 // 22:14:20 UTC
)

// SampleSnapshot returns the reference sidebar data: two history runs, the
// default context items and providers, and two environment variables.
func SampleSnapshot() core.Snapshot {
	return core.Snapshot{
		History: []core.HistoryEntry{
			{
				ID:               "run-1",
				Name:             "Test Run 1",
				Timestamp:        SampleRun1Time,
				Status:           core.RunStatusSuccess,
				PipelineSnapshot: json.RawMessage(`{"nodes":[],"edges":[]}`),
				PullRequests: []core.PullRequest{
					{Number: 42, Title: "Add lint step", URL: "https://github.com/acme/app/pull/42", State: "open", Head: "feature/lint", Base: "main"},
				},
			},
			{
				ID:        "run-2",
				Name:      "Test Run 2",
				Timestamp: SampleRun2Time,
				Status:    core.RunStatusFailure,
				Steps: []core.StepRecord{
					{Index: 0, IntentID: "terminal.run", Status: core.RunStatusFailure, StartTime: SampleRun2Time, Error: "exit status 1"},
				},
			},
		},
		Environment: map[string]string{
			"NODE_ENV": "test",
			"API_URL":  "http://localhost:8080",
		},
		ContextItems: core.DefaultContextItems(),
		Providers:    core.DefaultProviders(),
	}
}
