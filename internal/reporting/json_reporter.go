package reporting

import (
	"context"
	"fmt"
	"io"
	"sync"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// JSONReporter writes the summary as a pretty printed JSON document.
type JSONReporter struct {
	mu     sync.Mutex
	writer io.WriteCloser
}

// NewJSONReporter takes ownership of writer.
func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer}
}

func (r *JSONReporter) Publish(ctx context.Context, summary *schemas.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.ConfigCompatibleWithStandardLibrary.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Close()
}
