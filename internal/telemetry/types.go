// Telemetry record types shared by the capture and send paths
package telemetry

import (
	"os"
	"time"
)

// Chunk represents one captured line of child output.
// Chunks are immutable once produced by the capture loop.
type Chunk struct {
	RunID     string    `json:"run_id"` // TAG
	Seq       uint64    `json:"seq"`    // gapless, strictly increasing per run
	Text      string    `json:"text"`   // FIELD, line without trailing newline
	Timestamp time.Time `json:"ts"`     // TIME INDEX, capture time (UTC)
}

// ChunkTableName holds the table name used when writing chunks to the
// ingest store. It defaults to "run_log" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var ChunkTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "run_log"
}()

func (Chunk) TableName() string {
	return ChunkTableName
}

// RunStatus is the final status record reported to the remote endpoint
// once the child has terminated and the queue is drained.
type RunStatus struct {
	RunID     string    `json:"run_id"`
	AttemptID string    `json:"attempt_id"`
	Outcome   string    `json:"outcome"`
	ExitCode  int       `json:"exit_code"`
	LinesRead uint64    `json:"lines_read"`
	LinesSent uint64    `json:"lines_sent"`
	Dropped   uint64    `json:"dropped"`
	Timestamp time.Time `json:"ts"`
}
