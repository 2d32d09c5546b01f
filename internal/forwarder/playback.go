package forwarder

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"trainops-supervisor/internal/telemetry"
)

// Replay re-sends recorded chunks from r to writer, used to backfill the
// remote endpoint from a mirror file after an outage. A speed >0 paces
// playback by the recorded timestamps; if speed <= 0, no artificial delay
// is inserted.
func Replay(r io.Reader, writer ChunkWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var chunk telemetry.Chunk
		if err := dec.Decode(&chunk); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if chunk.Seq == 0 {
			// Status record appended at the end of a mirror file.
			continue
		}
		if !prev.IsZero() && speed > 0 {
			diff := chunk.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				time.Sleep(diff)
			}
		}
		if err := writer.Write(chunk); err != nil {
			return err
		}
		prev = chunk.Timestamp
	}
}

// ReplayFile opens a mirror file and replays its chunks.
func ReplayFile(path string, writer ChunkWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Replay(f, writer, speed)
}
