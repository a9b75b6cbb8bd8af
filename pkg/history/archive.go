// Package history persists routing outcomes to an append-only archive. The
// analytics rings are rebuilt from it on startup.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry records the outcome of one routed request.
type Entry struct {
	UtteranceID      string    `json:"utterance_id"`
	Timestamp        time.Time `json:"timestamp"`
	UserID           string    `json:"user_id"`
	Intent           string    `json:"intent"`
	TaskFamily       string    `json:"task_family"`
	SuggestedVariant string    `json:"suggested_variant"`
	ChosenVariant    string    `json:"chosen_variant"`
	WasOverride      bool      `json:"was_override"`

	// OutcomeQuality is in [0,1]; nil means unknown.
	OutcomeQuality *float64 `json:"outcome_quality,omitempty"`
}

// Archive is an append-only JSONL file, one entry per line. Appends are
// single writes under O_APPEND so concurrent processes cannot interleave
// within a record.
type Archive struct {
	path   string
	logger zerolog.Logger

	mu   sync.Mutex
	file *os.File
}

// Open opens or creates the archive at path.
func Open(path string, logger zerolog.Logger) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open history archive: %w", err)
	}
	return &Archive{path: path, logger: logger, file: file}, nil
}

// Append writes one entry. The line is built first and written in a single
// call so a crash leaves at most one torn final line.
func (a *Archive) Append(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.file.Write(data); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Replay reads every entry in append order, calling fn for each. Lines that
// do not parse are skipped with a warning; a torn final line is expected
// after a crash and is not an error.
func (a *Archive) Replay(fn func(Entry)) error {
	file, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open history archive: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			a.logger.Warn().Int("line", line).Err(err).Msg("skipping unreadable history line")
			continue
		}
		fn(e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read history archive: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
