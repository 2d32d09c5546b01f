package forwarder

import (
	"context"
	"log/slog"
	"time"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"trainops-supervisor/internal/telemetry"
)

// greptimeClient is the slice of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeWriter writes chunks to the platform's GreptimeDB ingest store.
// The dashboard reads from this store; the table is auto-created on first
// write.
type GreptimeWriter struct {
	client greptimeClient
	table  string
	logger *slog.Logger
}

// NewGreptimeWriter connects to the ingest store at host.
func NewGreptimeWriter(host, database string, logger *slog.Logger) (*GreptimeWriter, error) {
	cfg := greptime.NewConfig(host).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeWriter{
		client: client,
		table:  telemetry.ChunkTableName,
		logger: logger,
	}, nil
}

// Write inserts a single chunk.
func (w *GreptimeWriter) Write(c telemetry.Chunk) error {
	return w.WriteBatch([]telemetry.Chunk{c})
}

// WriteBatch inserts multiple chunks.
func (w *GreptimeWriter) WriteBatch(rows []telemetry.Chunk) error {
	if len(rows) == 0 {
		return nil
	}

	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("seq", types.UINT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("text", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MICROSECOND); err != nil {
		return err
	}

	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.Seq, r.Text, r.Timestamp); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return &retryableError{err: err}
	}
	if w.logger != nil {
		w.logger.Debug("wrote chunks to ingest store", "component", "greptime", "rows", len(rows))
	}
	return nil
}
