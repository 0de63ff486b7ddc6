// Package turnlog appends lookup turns to a local JSON-lines file.
package turnlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"vehicle-bot/internal/domain"
)

// Record is the on-disk shape of one turn. Result and Error are mutually
// exclusive.
type Record struct {
	ID             string         `json:"id,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	ParticipantKey string         `json:"participantKey"`
	Input          string         `json:"input"`
	Result         map[string]any `json:"result,omitempty"`
	Error          *ErrorRecord   `json:"error,omitempty"`
}

type ErrorRecord struct {
	Message string `json:"message"`
}

func toRecord(turn domain.Turn) Record {
	rec := Record{
		ID:             turn.ID,
		Timestamp:      turn.Timestamp.UTC(),
		ParticipantKey: turn.ParticipantKey,
		Input:          turn.Input,
	}
	if turn.Error != "" {
		rec.Error = &ErrorRecord{Message: turn.Error}
	} else {
		rec.Result = turn.Result
	}
	return rec
}

// FileRecorder appends one JSON line per turn. It is safe for concurrent use.
type FileRecorder struct {
	mu   sync.Mutex
	path string
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("turnlog: path must not be empty")
	}
	return &FileRecorder{path: path}, nil
}

func (r *FileRecorder) RecordTurn(_ context.Context, turn domain.Turn) error {
	line, err := json.Marshal(toRecord(turn))
	if err != nil {
		return fmt.Errorf("turnlog: encode turn: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("turnlog: open %s: %w", r.path, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("turnlog: write %s: %w", r.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("turnlog: close %s: %w", r.path, err)
	}
	return nil
}

// ReadAll returns the records in file order.
func (r *FileRecorder) ReadAll() ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("turnlog: read %s: %w", r.path, err)
	}

	var out []Record
	for i, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("turnlog: decode line %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
