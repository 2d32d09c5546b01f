package forwarder

import (
	"encoding/json"
	"os"

	"trainops-supervisor/internal/telemetry"
)

// FileWriter writes chunks to a JSONL file. The file is the durable local
// record of a run and the input format for replay and tail.
type FileWriter struct {
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates a FileWriter at path, truncating any existing file.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write logs a single chunk.
func (f *FileWriter) Write(c telemetry.Chunk) error {
	return f.enc.Encode(c)
}

// WriteBatch logs multiple chunks.
func (f *FileWriter) WriteBatch(rows []telemetry.Chunk) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatus appends the final run status record.
func (f *FileWriter) WriteStatus(s telemetry.RunStatus) error {
	return f.enc.Encode(s)
}

// Close flushes and closes the underlying file.
func (f *FileWriter) Close() error {
	if err := f.file.Sync(); err != nil {
		f.file.Close()
		return err
	}
	return f.file.Close()
}
