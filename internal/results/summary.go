// File: internal/results/summary.go
package results

import (
	"fmt"
	"math"
	"time"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
)

// CostModel estimates the resources a run would have cost a language model agent.
type CostModel struct {
	TokensPerSolve      int64
	USDPerMillionTokens float64
}

// CostModelFromConfig reads the cost model from the metrics configuration.
func CostModelFromConfig(cfg config.MetricsConfig) CostModel {
	return CostModel{TokensPerSolve: cfg.TokensPerSolve, USDPerMillionTokens: cfg.USDPerMillionTokens}
}

// Tokens estimates tokens spent for solved slots.
func (c CostModel) Tokens(solved int) int64 {
	return int64(solved) * c.TokensPerSolve
}

// Cost estimates the dollar cost of tokens.
func (c CostModel) Cost(tokens int64) float64 {
	return float64(tokens) / 1e6 * c.USDPerMillionTokens
}

// Summarize derives the run summary from finalized metrics. Rates and averages are
// relative to totalSlots, the configured slot count, not the slots that ran.
func Summarize(metrics schemas.RunMetrics, totalSlots int, url string, cost CostModel) *schemas.RunSummary {
	totalMs := metrics.Elapsed().Milliseconds()

	var rate float64
	var avgMs int64
	if totalSlots > 0 {
		rate = float64(metrics.SolvedCount) / float64(totalSlots) * 100
		avgMs = int64(math.Round(float64(totalMs) / float64(totalSlots)))
	}

	tokens := cost.Tokens(metrics.SolvedCount)

	records := make([]schemas.ChallengeRecord, len(metrics.Records))
	copy(records, metrics.Records)

	completed := metrics.EndTime
	if completed.IsZero() {
		completed = time.Now()
	}

	return &schemas.RunSummary{
		RunID:      metrics.RunID,
		URL:        url,
		StopReason: metrics.StopReason,
		Summary: schemas.SummaryStats{
			Total:              totalSlots,
			Solved:             metrics.SolvedCount,
			Failed:             metrics.FailedCount,
			SuccessRate:        fmt.Sprintf("%.1f%%", rate),
			TotalTimeMs:        totalMs,
			TotalTimeFormatted: fmt.Sprintf("%.1fs", float64(totalMs)/1000),
			AvgPerChallenge:    fmt.Sprintf("%dms", avgMs),
			AvgPerChallengeMs:  avgMs,
		},
		Performance: schemas.PerformanceStats{
			EstimatedTokens: tokens,
			EstimatedCost:   fmt.Sprintf("$%.4f", cost.Cost(tokens)),
		},
		Challenges: records,
		Timestamp:  completed.UTC().Truncate(time.Millisecond),
	}
}
