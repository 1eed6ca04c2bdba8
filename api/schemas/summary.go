package schemas

import (
	"context"
	"time"
)

// RunSummary is the persisted artifact of a run. Its JSON layout matches the
// results.json file consumers already parse.
type RunSummary struct {
	RunID       string            `json:"runId"`
	URL         string            `json:"url,omitempty"`
	StopReason  StopReason        `json:"stopReason,omitempty"`
	Summary     SummaryStats      `json:"summary"`
	Performance PerformanceStats  `json:"performance"`
	Challenges  []ChallengeRecord `json:"challenges"`
	Timestamp   time.Time         `json:"timestamp"`
}

// SummaryStats holds the counters and timings of a run.
type SummaryStats struct {
	Total              int    `json:"total"`
	Solved             int    `json:"solved"`
	Failed             int    `json:"failed"`
	SuccessRate        string `json:"successRate"`
	TotalTimeMs        int64  `json:"totalTimeMs"`
	TotalTimeFormatted string `json:"totalTimeFormatted"`
	AvgPerChallenge    string `json:"avgPerChallenge"`
	AvgPerChallengeMs  int64  `json:"avgPerChallengeMs"`
}

// PerformanceStats holds the estimated resource cost of a run.
type PerformanceStats struct {
	EstimatedTokens int64  `json:"estimatedTokens"`
	EstimatedCost   string `json:"estimatedCost"`
}

// -- Sink Interfaces --

// SummarySink receives the final summary of a run.
type SummarySink interface {
	Publish(ctx context.Context, summary *RunSummary) error
}

// RunHistory is a stored summary row used for listing previous runs.
type RunHistory struct {
	RunID       string    `json:"runId"`
	URL         string    `json:"url"`
	Total       int       `json:"total"`
	Solved      int       `json:"solved"`
	Failed      int       `json:"failed"`
	TotalTimeMs int64     `json:"totalTimeMs"`
	StopReason  string    `json:"stopReason"`
	CompletedAt time.Time `json:"completedAt"`
}
