package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"arlo/internal/agent/ports"
)

// Store persists jobs as one JSON document per job under a root
// directory, default ~/.arlo/jobs. Writes go through a temp file and
// rename so a crash never leaves a half-written document.
type Store struct {
	root string
	mu   sync.Mutex
}

// DefaultRoot returns the conventional job directory in the user's
// home, falling back to the working directory when home is unknown.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arlo/jobs"
	}
	return filepath.Join(home, ".arlo", "jobs")
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultRoot()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job store dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// Save writes or replaces the job document.
func (s *Store) Save(ctx context.Context, job *ports.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job has no id")
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.root, "job-*.tmp")
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(job.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

// Get loads one job by id.
func (s *Store) Get(ctx context.Context, id string) (*ports.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("job not found: %s", id)
		}
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var job ports.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// List returns all jobs for a session, newest first. An empty
// sessionID returns everything.
func (s *Store) List(ctx context.Context, sessionID string) ([]*ports.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	var jobs []*ports.Job
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, entry.Name()))
		if err != nil {
			continue
		}
		var job ports.Job
		if err := json.Unmarshal(data, &job); err != nil {
			// Skip corrupt documents rather than failing the listing.
			continue
		}
		if sessionID != "" && job.SessionID != sessionID {
			continue
		}
		jobs = append(jobs, &job)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

// sanitize keeps ids filesystem-safe. Job ids are UUIDs in practice,
// but external callers can pass anything to Get.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}

func (s *Store) path(id string) string {
	return filepath.Join(s.root, sanitize(id)+".json")
}
