package forwarder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trainops-supervisor/internal/telemetry"
)

func TestFileWriterAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	ts := time.Unix(0, 0).UTC()
	rows := []telemetry.Chunk{
		{RunID: "r1", Seq: 1, Text: "step 1", Timestamp: ts},
		{RunID: "r1", Seq: 2, Text: "step 2", Timestamp: ts.Add(time.Second)},
		{RunID: "r1", Seq: 3, Text: "step 3", Timestamp: ts.Add(2 * time.Second)},
	}

	fw, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := fw.WriteStatus(telemetry.RunStatus{RunID: "r1", Outcome: "success", Timestamp: ts}); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 4 {
		t.Errorf("file has %d records, want 4 (3 chunks + status)", got)
	}

	// Replay skips the status record and re-sends the chunks in order.
	remote := &mockRemote{}
	if err := ReplayFile(path, remote, 0); err != nil {
		t.Fatalf("ReplayFile: %v", err)
	}
	sent := remote.chunks()
	if len(sent) != 3 {
		t.Fatalf("replayed %d chunks, want 3", len(sent))
	}
	for i, c := range sent {
		if c.Seq != rows[i].Seq || c.Text != rows[i].Text {
			t.Errorf("replayed[%d] = %+v, want %+v", i, c, rows[i])
		}
	}
}

func TestReplay_PacedBySpeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	ts := time.Unix(0, 0).UTC()
	fw, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	fw.Write(telemetry.Chunk{RunID: "r1", Seq: 1, Text: "a", Timestamp: ts})
	fw.Write(telemetry.Chunk{RunID: "r1", Seq: 2, Text: "b", Timestamp: ts.Add(100 * time.Millisecond)})
	fw.Close()

	start := time.Now()
	if err := ReplayFile(path, &mockRemote{}, 2); err != nil {
		t.Fatalf("ReplayFile: %v", err)
	}
	// 100ms gap at double speed: roughly 50ms of pacing.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("replay finished in %s, expected pacing delay", elapsed)
	}
}
