package telemetry

import (
	"os"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session binds a run to its remote logging target. One Session spans the
// whole supervisor lifetime; the cursor tracks the last sequence number the
// remote endpoint has acknowledged.
type Session struct {
	RunID     string
	AttemptID string
	Endpoint  string
	Token     string

	cursor atomic.Uint64
}

// SessionFromEnv builds a Session from the platform-provided environment.
// An empty TRAINOPS_ENDPOINT means local-only mode: the stdout mirror still
// runs but nothing is sent remotely.
func SessionFromEnv() *Session {
	runID := os.Getenv("TRAINOPS_RUN_ID")
	if runID == "" {
		runID = "local-" + uuid.New().String()
	}
	return &Session{
		RunID:     runID,
		AttemptID: uuid.New().String(),
		Endpoint:  os.Getenv("TRAINOPS_ENDPOINT"),
		Token:     os.Getenv("TRAINOPS_TOKEN"),
	}
}

// Remote reports whether a remote endpoint is configured.
func (s *Session) Remote() bool {
	return s.Endpoint != ""
}

// Cursor returns the last acknowledged sequence number.
func (s *Session) Cursor() uint64 {
	return s.cursor.Load()
}

// Advance moves the cursor forward to seq. The cursor never moves backward;
// a stale advance from a retried batch is ignored.
func (s *Session) Advance(seq uint64) {
	for {
		cur := s.cursor.Load()
		if seq <= cur || s.cursor.CompareAndSwap(cur, seq) {
			return
		}
	}
}
