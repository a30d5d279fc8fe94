// Package checkpoint snapshots a job's partial execution state to disk so a
// failed run leaves enough behind to ground a retry.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const timestampLayout = "20060102_150405.000000000"

type Checkpoint struct {
	JobID     string         `json:"job_id"`
	Timestamp string         `json:"timestamp"`
	State     map[string]any `json:"state"`
}

type Manager struct {
	dir    string
	logger *slog.Logger
	cron   *cron.Cron
}

func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	return &Manager{
		dir:    dir,
		logger: slog.With("module", "checkpoint"),
	}, nil
}

// Save writes a snapshot named <job_id>_<timestamp>.json and returns its path.
func (m *Manager) Save(jobID string, state map[string]any) (string, error) {
	timestamp := time.Now().UTC().Format(timestampLayout)

	data, err := json.MarshalIndent(Checkpoint{
		JobID:     jobID,
		Timestamp: timestamp,
		State:     state,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode checkpoint for %s: %w", jobID, err)
	}

	path := filepath.Join(m.dir, fmt.Sprintf("%s_%s.json", jobID, timestamp))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write checkpoint for %s: %w", jobID, err)
	}

	return path, nil
}

// List returns the checkpoint file names for a job, oldest first. An empty
// jobID lists every checkpoint.
func (m *Manager) List(jobID string) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	var names []string

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}

		if jobID != "" && !strings.HasPrefix(name, jobID+"_") {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// Latest loads the most recent checkpoint for a job.
func (m *Manager) Latest(jobID string) (*Checkpoint, error) {
	names, err := m.List(jobID)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no checkpoints found for job %s", jobID)
	}

	data, err := os.ReadFile(filepath.Join(m.dir, names[len(names)-1]))
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	return &cp, nil
}

// Prune removes checkpoints older than the retention window and reports how
// many were deleted.
func (m *Manager) Prune(retention time.Duration) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	removed := 0

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// StartPruning schedules Prune on a cron expression. Stop with StopPruning.
func (m *Manager) StartPruning(schedule string, retention time.Duration) error {
	m.cron = cron.New()

	_, err := m.cron.AddFunc(schedule, func() {
		removed, err := m.Prune(retention)
		if err != nil {
			m.logger.Error("Checkpoint pruning failed", "error", err)

			return
		}

		if removed > 0 {
			m.logger.Info("Pruned checkpoints", "removed", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule checkpoint pruning: %w", err)
	}

	m.cron.Start()

	return nil
}

func (m *Manager) StopPruning() {
	if m.cron != nil {
		m.cron.Stop()
	}
}
