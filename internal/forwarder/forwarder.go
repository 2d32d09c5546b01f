// Package forwarder captures the child's combined output stream and
// relays it to the run's remote logging target without ever throttling
// the training script on network latency.
package forwarder

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"trainops-supervisor/internal/config"
	"trainops-supervisor/internal/telemetry"
)

// maxLineBytes bounds the memory one captured line may occupy. Longer
// lines are split into multiple chunks rather than dropped.
const maxLineBytes = 64 * 1024

// Stats is a snapshot of forwarder counters for the status server.
type Stats struct {
	LinesRead   uint64 `json:"lines_read"`
	LinesSent   uint64 `json:"lines_sent"`
	Dropped     uint64 `json:"dropped"`
	BatchesSent uint64 `json:"batches_sent"`
	Retries     uint64 `json:"retries"`
	Cursor      uint64 `json:"cursor"`
}

// Forwarder drains a child's output stream into the local mirror and a
// bounded queue, from which a background sender ships batches to the
// remote target. Single producer (the reader), single consumer (the
// sender); the queue channel is the only shared state between them.
type Forwarder struct {
	session *telemetry.Session
	remote  ChunkWriter // nil in local-only mode
	mirror  ChunkWriter

	queue         chan telemetry.Chunk
	batchSize     int
	flushInterval time.Duration
	retry         config.Retry
	logger        *slog.Logger

	senderDone chan struct{}
	readErr    atomic.Value // error from the capture loop, if any

	linesRead   atomic.Uint64
	linesSent   atomic.Uint64
	dropped     atomic.Uint64
	batchesSent atomic.Uint64
	retries     atomic.Uint64
}

// New creates a Forwarder. remote may be nil (local-only mode); mirror
// must not be: the raw container log is the guaranteed fallback record.
func New(cfg *config.Config, session *telemetry.Session, remote, mirror ChunkWriter, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		session:       session,
		remote:        remote,
		mirror:        mirror,
		queue:         make(chan telemetry.Chunk, cfg.QueueSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		retry:         cfg.Retry,
		logger:        logger,
		senderDone:    make(chan struct{}),
	}
}

// Run consumes r to end-of-stream. It blocks until the stream is
// exhausted; the background sender keeps draining the queue afterwards.
// Call FinalFlush to wait for it.
func (f *Forwarder) Run(r io.Reader) {
	go f.sendLoop()
	f.capture(r)
	close(f.queue)
}

// capture reads lines from r, assigns sequence numbers, mirrors each
// line synchronously, and enqueues it for remote delivery. A full queue
// blocks the read: ordering and completeness outrank telemetry liveness.
func (f *Forwarder) capture(r io.Reader) {
	br := bufio.NewReaderSize(r, maxLineBytes)
	var seq uint64
	for {
		line, err := br.ReadSlice('\n')
		if len(line) > 0 {
			seq++
			chunk := telemetry.Chunk{
				RunID:     f.session.RunID,
				Seq:       seq,
				Text:      strings.TrimRight(string(line), "\r\n"),
				Timestamp: time.Now().UTC(),
			}
			f.linesRead.Add(1)
			// Mirror first, unconditionally: the container log must hold
			// the line even if everything downstream fails.
			if werr := f.mirror.Write(chunk); werr != nil {
				f.logger.Error("mirror write failed", "component", "forwarder", "seq", seq, "error", werr)
			}
			if f.remote != nil {
				f.queue <- chunk
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			f.readErr.Store(err)
			f.logger.Error("output capture aborted", "component", "forwarder", "error", err)
			return
		}
	}
}

// sendLoop drains the queue into batches and ships them. A batch goes
// out when it reaches batchSize or when flushInterval elapses with data
// pending.
func (f *Forwarder) sendLoop() {
	defer close(f.senderDone)
	if f.remote == nil {
		// Local-only mode: nothing to drain; the queue stays unused.
		return
	}

	batch := make([]telemetry.Chunk, 0, f.batchSize)
	flush := time.NewTicker(f.flushInterval)
	defer flush.Stop()

	for {
		select {
		case chunk, ok := <-f.queue:
			if !ok {
				if len(batch) > 0 {
					f.sendBatch(batch)
				}
				return
			}
			batch = append(batch, chunk)
			if len(batch) >= f.batchSize {
				f.sendBatch(batch)
				batch = batch[:0]
			}
		case <-flush.C:
			if len(batch) > 0 {
				f.sendBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

// sendBatch delivers one batch with bounded exponential backoff. When the
// retry budget is exhausted the batch is recorded as dropped and the
// cursor still advances: telemetry loss never stalls the run.
func (f *Forwarder) sendBatch(rows []telemetry.Chunk) {
	last := rows[len(rows)-1].Seq
	backoff := f.retry.InitialBackoff

	for attempt := 1; ; attempt++ {
		err := writeBatch(f.remote, rows)
		if err == nil {
			f.batchesSent.Add(1)
			f.linesSent.Add(uint64(len(rows)))
			f.session.Advance(last)
			return
		}
		if !IsRetryable(err) || attempt >= f.retry.MaxAttempts {
			f.dropped.Add(uint64(len(rows)))
			f.session.Advance(last)
			f.logger.Error("batch dropped after retry budget exhausted",
				"component", "forwarder",
				"first_seq", rows[0].Seq, "last_seq", last,
				"attempts", attempt, "error", err)
			return
		}
		f.retries.Add(1)
		f.logger.Warn("batch send failed, retrying",
			"component", "forwarder", "attempt", attempt,
			"backoff", backoff, "error", err)
		time.Sleep(backoff)
		if backoff *= 2; backoff > f.retry.MaxBackoff {
			backoff = f.retry.MaxBackoff
		}
	}
}

// FinalFlush waits for the sender to drain the remaining queue, bounded
// by timeout, then best-effort reports the final run status. Returns
// false if the deadline expired with chunks still queued.
func (f *Forwarder) FinalFlush(timeout time.Duration, status telemetry.RunStatus) bool {
	drained := true
	select {
	case <-f.senderDone:
	case <-time.After(timeout):
		drained = false
		f.logger.Error("final flush deadline expired with chunks still queued",
			"component", "forwarder", "queued", len(f.queue))
	}

	if sw, ok := f.remote.(StatusWriter); ok && f.remote != nil {
		st := status
		st.LinesRead = f.linesRead.Load()
		st.LinesSent = f.linesSent.Load()
		st.Dropped = f.dropped.Load()
		if err := sw.WriteStatus(st); err != nil {
			f.logger.Error("final status report failed", "component", "forwarder", "error", err)
		}
	}
	return drained
}

// ReadErr returns the capture loop error, if the stream failed before EOF.
func (f *Forwarder) ReadErr() error {
	if err, ok := f.readErr.Load().(error); ok {
		return err
	}
	return nil
}

// Stats returns a snapshot of the forwarder counters.
func (f *Forwarder) Stats() Stats {
	return Stats{
		LinesRead:   f.linesRead.Load(),
		LinesSent:   f.linesSent.Load(),
		Dropped:     f.dropped.Load(),
		BatchesSent: f.batchesSent.Load(),
		Retries:     f.retries.Load(),
		Cursor:      f.session.Cursor(),
	}
}
