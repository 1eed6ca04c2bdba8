// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// Reporter writes a run summary to an output. It is a schemas.SummarySink that
// owns its writer.
type Reporter interface {
	schemas.SummarySink
	// Close releases the underlying output (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	switch format {
	case "json", "text":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	writer, err := openOutput(outputPath)
	if err != nil {
		return nil, err
	}

	if format == "text" {
		return NewTextReporter(writer), nil
	}
	return NewJSONReporter(writer), nil
}

func openOutput(outputPath string) (io.WriteCloser, error) {
	if outputPath == "" || outputPath == "stdout" {
		return &nopWriteCloser{os.Stdout}, nil
	}

	path, err := homedir.Expand(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand output path %s: %w", outputPath, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, nil
}
