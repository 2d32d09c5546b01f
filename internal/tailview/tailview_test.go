package tailview

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"trainops-supervisor/internal/forwarder"
	"trainops-supervisor/internal/telemetry"
)

func writeMirror(t *testing.T, withStatus bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.jsonl")
	fw, err := forwarder.NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	ts := time.Unix(0, 0).UTC()
	fw.Write(telemetry.Chunk{RunID: "r1", Seq: 1, Text: "epoch 1", Timestamp: ts})
	fw.Write(telemetry.Chunk{RunID: "r1", Seq: 2, Text: "epoch 2", Timestamp: ts.Add(time.Second)})
	if withStatus {
		fw.WriteStatus(telemetry.RunStatus{RunID: "r1", Outcome: "success", Timestamp: ts.Add(2 * time.Second)})
	}
	fw.Close()
	return path
}

func TestReadMore_ChunksOnly(t *testing.T) {
	m := New(writeMirror(t, false), false, false)
	msg := m.readMore()()

	cm, ok := msg.(chunksMsg)
	if !ok {
		t.Fatalf("msg = %T (%v), want chunksMsg", msg, msg)
	}
	if len(cm.chunks) != 2 || cm.chunks[1].Text != "epoch 2" {
		t.Errorf("chunks = %+v", cm.chunks)
	}
}

func TestReadMore_StatusRecordEndsTheRun(t *testing.T) {
	m := New(writeMirror(t, true), true, false)
	msg := m.readMore()()

	sm, ok := msg.(statusMsg)
	if !ok {
		t.Fatalf("msg = %T (%v), want statusMsg", msg, msg)
	}
	if len(sm.chunks) != 2 {
		t.Errorf("status poll carried %d chunks, want 2", len(sm.chunks))
	}
	if sm.status.Outcome != "success" {
		t.Errorf("status = %+v", sm.status)
	}
}

func TestReadMore_PartialTrailingLineWaits(t *testing.T) {
	path := writeMirror(t, false)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// A record the writer is still mid-write: no trailing newline yet.
	f.WriteString(`{"run_id":"r1","seq":3,"text":"epo`)
	f.Close()

	m := New(path, true, false)
	msg := m.readMore()()
	cm, ok := msg.(chunksMsg)
	if !ok {
		t.Fatalf("msg = %T (%v), want chunksMsg", msg, msg)
	}
	if len(cm.chunks) != 2 {
		t.Fatalf("read %d chunks, want only the 2 complete ones", len(cm.chunks))
	}

	// Completing the line makes it visible on the next poll.
	f, err = os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	f.WriteString("ch 3\",\"ts\":\"1970-01-01T00:00:03Z\"}\n")
	f.Close()

	msg = m.readMore()()
	cm, ok = msg.(chunksMsg)
	if !ok {
		t.Fatalf("msg = %T (%v), want chunksMsg", msg, msg)
	}
	if len(cm.chunks) != 1 || cm.chunks[0].Text != "epoch 3" {
		t.Errorf("second poll chunks = %+v", cm.chunks)
	}
}
