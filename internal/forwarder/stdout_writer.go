// Writer implementation printing chunks to STDOUT
package forwarder

import (
	"fmt"
	"io"
	"os"

	"trainops-supervisor/internal/telemetry"
)

// StdoutWriter prints chunk text to the supervisor's own standard output.
// This is the local mirror: it writes the raw line, not JSON, so the
// container log reads exactly like the training script's own output.
type StdoutWriter struct {
	Out io.Writer
}

// NewStdoutWriter returns a mirror writing to os.Stdout.
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{Out: os.Stdout}
}

// Write outputs a single chunk.
func (w *StdoutWriter) Write(c telemetry.Chunk) error {
	_, err := fmt.Fprintln(w.Out, c.Text)
	return err
}

// WriteBatch outputs multiple chunks.
func (w *StdoutWriter) WriteBatch(rows []telemetry.Chunk) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
