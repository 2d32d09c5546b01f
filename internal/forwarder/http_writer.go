package forwarder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"trainops-supervisor/internal/telemetry"
)

// retryableError marks a send failure worth retrying: a network error or a
// 5xx-class response. 4xx responses are permanent.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// IsRetryable reports whether err is a transient send failure.
func IsRetryable(err error) bool {
	_, ok := err.(*retryableError)
	return ok
}

// chunkBatch is the wire format for a log batch. The endpoint treats
// delivery as at-least-once and dedupes by sequence number.
type chunkBatch struct {
	RunID     string            `json:"run_id"`
	AttemptID string            `json:"attempt_id"`
	Chunks    []telemetry.Chunk `json:"chunks"`
}

// HTTPWriter posts chunk batches to the platform's run-log endpoint.
type HTTPWriter struct {
	session *telemetry.Session
	client  *http.Client
}

// NewHTTPWriter creates a writer bound to the session's endpoint.
func NewHTTPWriter(session *telemetry.Session) *HTTPWriter {
	return &HTTPWriter{
		session: session,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Write posts a single chunk.
func (w *HTTPWriter) Write(c telemetry.Chunk) error {
	return w.WriteBatch([]telemetry.Chunk{c})
}

// WriteBatch posts multiple chunks as one request.
func (w *HTTPWriter) WriteBatch(rows []telemetry.Chunk) error {
	if len(rows) == 0 {
		return nil
	}
	body := chunkBatch{
		RunID:     w.session.RunID,
		AttemptID: w.session.AttemptID,
		Chunks:    rows,
	}
	url := fmt.Sprintf("%s/api/v1/runs/%s/log", w.session.Endpoint, w.session.RunID)
	return w.post(url, body)
}

// WriteStatus reports the final run status.
func (w *HTTPWriter) WriteStatus(s telemetry.RunStatus) error {
	url := fmt.Sprintf("%s/api/v1/runs/%s/status", w.session.Endpoint, w.session.RunID)
	return w.post(url, s)
}

func (w *HTTPWriter) post(url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+w.session.Token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return &retryableError{err: err}
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return &retryableError{err: fmt.Errorf("endpoint returned %s", resp.Status)}
	default:
		return fmt.Errorf("endpoint rejected batch: %s", resp.Status)
	}
}
