package forwarder

import (
	"context"
	"errors"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"trainops-supervisor/internal/telemetry"
)

type mockGreptimeClient struct {
	table *table.Table
	err   error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeWriter_WritesRows(t *testing.T) {
	ts := time.Unix(0, 0).UTC()
	rows := []telemetry.Chunk{
		{RunID: "r1", Seq: 1, Text: "loss=0.9", Timestamp: ts},
		{RunID: "r1", Seq: 2, Text: "loss=0.7", Timestamp: ts.Add(time.Second)},
	}

	m := &mockGreptimeClient{}
	w := &GreptimeWriter{client: m, table: "run_log"}

	if err := w.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if m.table == nil {
		t.Fatal("expected table to be captured")
	}
	got := m.table.GetRows().Rows
	if len(got) != 2 {
		t.Fatalf("wrote %d rows, want 2", len(got))
	}
	if text := got[1].Values[2].GetStringValue(); text != "loss=0.7" {
		t.Errorf("text column = %q, want loss=0.7", text)
	}
}

func TestGreptimeWriter_ClientErrorIsRetryable(t *testing.T) {
	m := &mockGreptimeClient{err: errors.New("unavailable")}
	w := &GreptimeWriter{client: m, table: "run_log"}

	err := w.Write(telemetry.Chunk{RunID: "r1", Seq: 1, Text: "x", Timestamp: time.Now()})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRetryable(err) {
		t.Errorf("ingest failure should be retryable, got %v", err)
	}
}

func TestGreptimeWriter_EmptyBatchIsNoop(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeWriter{client: m, table: "run_log"}
	if err := w.WriteBatch(nil); err != nil {
		t.Fatalf("WriteBatch(nil): %v", err)
	}
	if m.table != nil {
		t.Error("empty batch must not hit the client")
	}
}
