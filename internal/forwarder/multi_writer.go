package forwarder

import "trainops-supervisor/internal/telemetry"

// MultiWriter fan-outs chunks and status records to multiple writers.
// A failing writer does not stop delivery to the others; the first error
// is returned after all writers have been tried, so one broken sink never
// starves the rest.
type MultiWriter struct {
	writers []ChunkWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...ChunkWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a chunk to all writers.
func (mw *MultiWriter) Write(c telemetry.Chunk) error {
	var first error
	for _, w := range mw.writers {
		if err := w.Write(c); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WriteBatch sends multiple chunks to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.Chunk) error {
	var first error
	for _, w := range mw.writers {
		if err := writeBatch(w, rows); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WriteStatus sends the final status record to every writer that accepts it.
func (mw *MultiWriter) WriteStatus(s telemetry.RunStatus) error {
	var first error
	for _, w := range mw.writers {
		if sw, ok := w.(StatusWriter); ok {
			if err := sw.WriteStatus(s); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
