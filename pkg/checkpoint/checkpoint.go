// Package checkpoint tracks per-file conversion progress so interrupted
// batch runs can resume without redoing completed files.
package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/logtab/logtab/pkg/errors"
)

// Job phases.
const (
	PhasePending    = "pending"
	PhaseConverting = "converting"
	PhaseComplete   = "complete"
	PhaseFailed     = "failed"
)

// Job records the state of one file conversion.
type Job struct {
	ID        string `json:"id"`
	InputPath string `json:"input_path"`
	OutputDir string `json:"output_dir"`
	Mode      string `json:"mode"`

	Phase         string `json:"phase"`
	Records       int    `json:"records"`
	RowsWritten   int    `json:"rows_written"`
	ChunksWritten int    `json:"chunks_written"`
	Error         string `json:"error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending job for one input file.
func NewJob(inputPath, outputDir, mode string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		InputPath: inputPath,
		OutputDir: outputDir,
		Mode:      mode,
		Phase:     PhasePending,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Complete marks the job done with its final counts.
func (j *Job) Complete(records, rows, chunks int) {
	now := time.Now()
	j.Phase = PhaseComplete
	j.Records = records
	j.RowsWritten = rows
	j.ChunksWritten = chunks
	j.UpdatedAt = now
	j.CompletedAt = &now
}

// Fail marks the job failed with the error message.
func (j *Job) Fail(err error) {
	j.Phase = PhaseFailed
	j.Error = err.Error()
	j.UpdatedAt = time.Now()
}

// Done reports whether the job finished successfully.
func (j *Job) Done() bool {
	return j.Phase == PhaseComplete
}

// Duration returns how long the job ran.
func (j *Job) Duration() time.Duration {
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(j.StartedAt)
	}
	return time.Since(j.StartedAt)
}

// Store persists jobs as JSON files in a directory.
type Store struct {
	dir string
}

// NewStore creates the checkpoint directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to create checkpoint directory").
			WithContext("dir", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the job atomically (temp file then rename).
func (s *Store) Save(job *Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeCheckpoint, "failed to marshal job")
	}

	final := s.path(job.ID)
	temp := final + ".tmp"
	if err := os.WriteFile(temp, data, 0644); err != nil {
		return errors.Wrap(err, errors.CodeCheckpoint, "failed to write checkpoint").
			WithContext("path", final)
	}
	if err := os.Rename(temp, final); err != nil {
		os.Remove(temp)
		return errors.Wrap(err, errors.CodeCheckpoint, "failed to rename checkpoint").
			WithContext("path", final)
	}
	return nil
}

// Load reads one job by id.
func (s *Store) Load(id string) (*Job, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to read checkpoint").
			WithContext("id", id)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to parse checkpoint").
			WithContext("id", id)
	}
	return &job, nil
}

// Delete removes one job.
func (s *Store) Delete(id string) error {
	return os.Remove(s.path(id))
}

// List returns every stored job.
func (s *Store) List() ([]*Job, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to read checkpoint directory").
			WithContext("dir", s.dir)
	}

	var jobs []*Job
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

// FindByInput returns the most recent job recorded for an input path, or
// nil when none exists.
func (s *Store) FindByInput(inputPath string) (*Job, error) {
	jobs, err := s.List()
	if err != nil {
		return nil, err
	}

	var found *Job
	for _, job := range jobs {
		if job.InputPath != inputPath {
			continue
		}
		if found == nil || job.UpdatedAt.After(found.UpdatedAt) {
			found = job
		}
	}
	return found, nil
}

// Cleanup removes completed jobs older than maxAge and returns the count.
func (s *Store) Cleanup(maxAge time.Duration) (int, error) {
	jobs, err := s.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, job := range jobs {
		if job.Phase == PhaseComplete && job.UpdatedAt.Before(cutoff) {
			if err := s.Delete(job.ID); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
