package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"taskpulse/domain"
)

// Data is the persisted document: the full task list, the category set and
// the next id to assign. Unknown fields in an existing file never break
// loading.
type Data struct {
	Tasks      []domain.Task `json:"tasks"`
	Categories []string      `json:"categories"`
	NextID     int           `json:"next_id,omitempty"`
}

// Store persists the task board as a single JSON document on disk. Every
// load-mutate-save sequence runs under one mutex so an API handler and the
// due-task sweep cannot interleave and lose updates.
type Store struct {
	path   string
	logger *log.Logger

	mu sync.Mutex
}

// New creates a Store backed by the JSON document at path. The file does not
// need to exist yet.
func New(path string, logger *log.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage: file path is required")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{path: path, logger: logger}, nil
}

func defaults() Data {
	return Data{
		Tasks:      []domain.Task{},
		Categories: append([]string(nil), domain.DefaultCategories...),
		NextID:     1,
	}
}

// load reads the document from disk. A missing file yields fresh defaults; a
// corrupt file is logged and degrades to defaults rather than failing the
// caller. Callers must hold s.mu.
func (s *Store) load() Data {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Warnf("storage: unable to read %s, starting empty", s.path)
		}
		return defaults()
	}

	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		s.logger.WithError(err).Warnf("storage: corrupt document at %s, starting empty", s.path)
		return defaults()
	}
	if d.Tasks == nil {
		d.Tasks = []domain.Task{}
	}
	if len(d.Categories) == 0 {
		d.Categories = append([]string(nil), domain.DefaultCategories...)
	}
	d.NextID = normalizeNextID(d)
	return d
}

// normalizeNextID keeps the counter strictly above every existing id, so ids
// stay unique across restarts even when next_id is absent or stale.
func normalizeNextID(d Data) int {
	next := d.NextID
	if next < 1 {
		next = 1
	}
	for _, t := range d.Tasks {
		if t.ID >= next {
			next = t.ID + 1
		}
	}
	return next
}

// save writes the document atomically: temp file in the same directory,
// fsync, rename. A reader never observes a partial write. Callers must hold
// s.mu.
func (s *Store) save(d Data) error {
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return fmt.Errorf("storage: encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: replace document: %w", err)
	}
	return nil
}

// Load returns a snapshot of the current document.
func (s *Store) Load(ctx context.Context) Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// ListTasks returns all tasks in creation order.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.load()
	return append([]domain.Task(nil), d.Tasks...), nil
}

// Categories returns the category set offered for new tasks.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.load()
	return append([]string(nil), d.Categories...), nil
}

// CreateTask assigns the next id, stamps the creation time and persists the
// task. The returned task is fully populated even when persistence fails; a
// non-nil error then signals that durability is uncertain.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.load()
	t.ID = d.NextID
	t.CreatedAt = time.Now()
	t.Completed = false
	t.NotificationSent = false

	d.Tasks = append(d.Tasks, t)
	d.NextID = t.ID + 1

	if err := s.save(d); err != nil {
		s.logger.WithError(err).Error("storage: persist after create failed")
		return t, err
	}
	return t, nil
}

// CompleteTask marks the task with the given id as completed and persists.
// It reports whether a task with that id exists; completing an already
// completed task succeeds without changing anything.
func (s *Store) CompleteTask(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.load()
	for i := range d.Tasks {
		if d.Tasks[i].ID != id {
			continue
		}
		if d.Tasks[i].Completed {
			return true, nil
		}
		d.Tasks[i].Completed = true
		if err := s.save(d); err != nil {
			s.logger.WithError(err).Error("storage: persist after complete failed")
			return true, err
		}
		return true, nil
	}
	return false, nil
}

// MarkNotified records that a reminder for the task was delivered. The flag
// is one-way: marking an already notified task is a no-op.
func (s *Store) MarkNotified(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.load()
	for i := range d.Tasks {
		if d.Tasks[i].ID != id {
			continue
		}
		if d.Tasks[i].NotificationSent {
			return true, nil
		}
		d.Tasks[i].NotificationSent = true
		if err := s.save(d); err != nil {
			s.logger.WithError(err).Error("storage: persist after notify failed")
			return true, err
		}
		return true, nil
	}
	return false, nil
}
