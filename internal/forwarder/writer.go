// Writer interfaces for chunk delivery targets
package forwarder

import "trainops-supervisor/internal/telemetry"

// ChunkWriter is an interface to support different delivery targets.
type ChunkWriter interface {
	Write(telemetry.Chunk) error
}

// Optional: writers can also support batch mode
type batchChunkWriter interface {
	WriteBatch([]telemetry.Chunk) error
}

// StatusWriter is implemented by targets that accept the final run status
// record in addition to log chunks.
type StatusWriter interface {
	WriteStatus(telemetry.RunStatus) error
}

// writeBatch delivers rows to w, using batch mode when supported.
func writeBatch(w ChunkWriter, rows []telemetry.Chunk) error {
	if bw, ok := w.(batchChunkWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
