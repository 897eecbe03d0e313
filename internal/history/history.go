// Package history provides the append-only application history. Every
// application attempt is recorded as one JSONL line, and the set of already
// attempted job IDs is kept in memory for duplicate checks.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/linkpilot/internal/logger"
)

const (
	// historySubdirectory is the subdirectory for history files within the
	// workspace.
	historySubdirectory = "history"

	// applicationsFilename stores application attempts in JSONL format.
	applicationsFilename = "applications.jsonl"
)

// ErrAlreadyApplied reports that a job already has an application attempt on
// record, successful or not. One attempt per job is the rule; a failed
// attempt does not earn a retry.
var ErrAlreadyApplied = errors.New("job already has an application attempt on record")

// Outcome is the terminal state of an application attempt.
type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeFailed        Outcome = "failed"
	OutcomeUnavailable   Outcome = "unavailable"
	OutcomeIndeterminate Outcome = "indeterminate"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeDryRun        Outcome = "dry_run"
)

// ApplicationRecord is one application attempt.
type ApplicationRecord struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	JobTitle  string    `json:"job_title,omitempty"`
	Company   string    `json:"company,omitempty"`
	JobURL    string    `json:"job_url,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	Steps     []string  `json:"steps,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// History is the persistent application history.
type History struct {
	mu       sync.Mutex
	filePath string
	logger   *logger.Logger

	records   []ApplicationRecord
	attempted map[string]bool

	now func() time.Time
}

// New creates a History rooted at the workspace, loading any existing
// records. A corrupt line is skipped, not fatal.
func New(workspacePath string, log *logger.Logger) (*History, error) {
	h := &History{
		filePath:  filepath.Join(workspacePath, historySubdirectory, applicationsFilename),
		logger:    log,
		attempted: make(map[string]bool),
		now:       time.Now,
	}

	if err := h.load(); err != nil {
		return nil, err
	}

	return h, nil
}

func (h *History) load() error {
	_, err := os.Stat(h.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	file, err := os.Open(h.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var record ApplicationRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			h.logger.Error("failed to unmarshal history line", err,
				logger.Field{Key: "file", Value: h.filePath},
				logger.Field{Key: "line", Value: lineNum})
			continue
		}

		h.index(record)
	}

	return scanner.Err()
}

func (h *History) index(record ApplicationRecord) {
	h.records = append(h.records, record)
	h.attempted[record.JobID] = true
}

// Attempted reports whether the job already has an application attempt on
// record, regardless of its outcome. Eligibility checks gate on this so a
// job is never driven through the flow twice.
func (h *History) Attempted(jobID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempted[jobID]
}

// Record appends an application attempt and returns the stored record with
// its generated ID and timestamp filled in.
func (h *History) Record(record ApplicationRecord) (ApplicationRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	record.ID = uuid.NewString()
	record.Timestamp = h.now()

	if err := h.append(record); err != nil {
		h.logger.Error("failed to append application record", err,
			logger.Field{Key: "job_id", Value: record.JobID})
		return ApplicationRecord{}, err
	}

	h.index(record)

	h.logger.Info("recorded application attempt",
		logger.Field{Key: "job_id", Value: record.JobID},
		logger.Field{Key: "outcome", Value: record.Outcome})

	return record, nil
}

func (h *History) append(record ApplicationRecord) error {
	if err := os.MkdirAll(filepath.Dir(h.filePath), 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(h.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		return err
	}

	return file.Sync()
}

// Records returns a copy of all recorded attempts in append order.
func (h *History) Records() []ApplicationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ApplicationRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the total number of recorded attempts.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Stats summarizes attempts per outcome.
func (h *History) Stats() map[Outcome]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := make(map[Outcome]int)
	for _, record := range h.records {
		stats[record.Outcome]++
	}
	return stats
}
