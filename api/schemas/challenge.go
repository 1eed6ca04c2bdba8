package schemas

import (
	"fmt"
	"time"
)

// -- Strategy --

// Strategy identifies the generic interaction used to resolve a challenge slot.
type Strategy int

const (
	// StrategyNone marks a slot where no interaction completed.
	StrategyNone Strategy = iota
	StrategyButton
	StrategyTextInput
	StrategyCheckbox
	StrategySelect
	StrategyKeyPress
)

var strategyNames = map[Strategy]string{
	StrategyNone:      "none",
	StrategyButton:    "button",
	StrategyTextInput: "input",
	StrategyCheckbox:  "checkbox",
	StrategySelect:    "select",
	StrategyKeyPress:  "keypress",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy converts the wire name of a strategy back into its value.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return StrategyNone, fmt.Errorf("unknown strategy %q", name)
}

// MarshalText encodes the strategy using its wire name.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a wire name produced by MarshalText.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// -- Probing --

// ProbeResult is the outcome of checking whether a strategy's target control is usable.
type ProbeResult int

const (
	ProbeNotApplicable ProbeResult = iota
	ProbeApplicable
	// ProbeError means the driver failed while probing. Callers decide how to collapse it.
	ProbeError
)

func (p ProbeResult) String() string {
	switch p {
	case ProbeApplicable:
		return "applicable"
	case ProbeError:
		return "probe_error"
	default:
		return "not_applicable"
	}
}

// StrategyCandidate is the transient result of probing one strategy during a single
// resolution. It is never stored.
type StrategyCandidate struct {
	Kind   Strategy
	Result ProbeResult
	Err    error
}

// Applicable reports whether the candidate should be executed.
func (c StrategyCandidate) Applicable() bool {
	return c.Result == ProbeApplicable
}

// -- Records --

// ChallengeRecord is the immutable outcome of one challenge slot.
type ChallengeRecord struct {
	Ordinal        int      `json:"num"`
	Strategy       Strategy `json:"strategy"`
	DurationMillis int64    `json:"duration"`
	Succeeded      bool     `json:"success"`
}

// StopReason explains why the challenge loop ended.
type StopReason string

const (
	StopCompleted      StopReason = "completed"
	StopBudgetExceeded StopReason = "budget_exceeded"
	StopCanceled       StopReason = "canceled"
)

// RunMetrics accumulates the records of a run. It is passed by value: Append returns
// the updated metrics and leaves the receiver untouched.
type RunMetrics struct {
	RunID       string            `json:"runId"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     time.Time         `json:"endTime"`
	SolvedCount int               `json:"solved"`
	FailedCount int               `json:"failed"`
	Records     []ChallengeRecord `json:"challenges"`
	StopReason  StopReason        `json:"stopReason,omitempty"`
}

// NewRunMetrics starts an empty metrics value for a run beginning at start.
func NewRunMetrics(runID string, start time.Time) RunMetrics {
	return RunMetrics{
		RunID:     runID,
		StartTime: start,
		Records:   []ChallengeRecord{},
	}
}

// Append returns a copy of m with rec added and the matching counter incremented.
func (m RunMetrics) Append(rec ChallengeRecord) RunMetrics {
	records := make([]ChallengeRecord, len(m.Records), len(m.Records)+1)
	copy(records, m.Records)
	m.Records = append(records, rec)
	if rec.Succeeded {
		m.SolvedCount++
	} else {
		m.FailedCount++
	}
	return m
}

// Finalize returns a copy of m with the end time and stop reason set.
func (m RunMetrics) Finalize(end time.Time, reason StopReason) RunMetrics {
	m.EndTime = end
	m.StopReason = reason
	return m
}

// Elapsed is the wall-clock duration between start and end.
func (m RunMetrics) Elapsed() time.Duration {
	if m.EndTime.IsZero() || m.EndTime.Before(m.StartTime) {
		return 0
	}
	return m.EndTime.Sub(m.StartTime)
}

// Processed is the number of slots that produced a record.
func (m RunMetrics) Processed() int {
	return len(m.Records)
}
