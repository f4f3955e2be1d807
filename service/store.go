package service

import (
	"errors"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
)

var ErrRunNotFound = errors.New("run not found")

// RunStore is an in-memory store for audit runs.
// Runs do not survive a restart.
type RunStore struct {
	runs    map[string]*model.Run
	mu      sync.RWMutex
	maxRuns int // Maximum runs to keep, 0 = unlimited
}

var (
	globalStore *RunStore
	storeOnce   sync.Once
)

func NewRunStore(maxRuns int) *RunStore {
	if maxRuns < 0 {
		maxRuns = 0
	}
	return &RunStore{
		runs:    make(map[string]*model.Run),
		maxRuns: maxRuns,
	}
}

// InitRunStore initializes the global run store with configuration
func InitRunStore(cfg *config.StoreConfig) {
	storeOnce.Do(func() {
		globalStore = NewRunStore(cfg.MaxRuns)
		slog.Info("run store initialized", "max_runs", globalStore.maxRuns)
	})
}

// GetRunStore returns the global run store
func GetRunStore() *RunStore {
	if globalStore == nil {
		globalStore = NewRunStore(50)
	}
	return globalStore
}

func (s *RunStore) Save(run *model.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.UpdatedAt = time.Now()
	s.runs[run.ID] = run

	s.evictIfNeeded()
}

// Get returns a snapshot of the run; later updates do not show through it.
func (s *RunStore) Get(id string) (*model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return snapshot(run), nil
}

// snapshot copies the mutable maps; task and issue slices are never
// modified after a run completes and stay shared.
func snapshot(run *model.Run) *model.Run {
	cp := *run
	cp.IssueCounts = maps.Clone(run.IssueCounts)
	cp.Artifacts = maps.Clone(run.Artifacts)
	return &cp
}

// GetByOwner lists an operator's runs, newest first.
func (s *RunStore) GetByOwner(owner string) []*model.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Run
	for _, r := range s.runs {
		if r.Owner == owner {
			result = append(result, snapshot(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *RunStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
}

// Update applies fn to the stored run under the write lock.
func (s *RunStore) Update(id string, fn func(*model.Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	fn(run)
	run.UpdatedAt = time.Now()
	return nil
}

func (s *RunStore) Fail(id string, err error) {
	_ = s.Update(id, func(r *model.Run) {
		r.Status = model.StatusFailed
		r.ErrorMsg = err.Error()
	})
}

// evictIfNeeded removes the oldest runs once the store exceeds maxRuns.
// Must be called with lock held
func (s *RunStore) evictIfNeeded() {
	if s.maxRuns <= 0 || len(s.runs) <= s.maxRuns {
		return
	}

	runs := make([]*model.Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})

	for _, r := range runs[:len(runs)-s.maxRuns] {
		slog.Info("evicting old run",
			"run_id", r.ID,
			"created_at", r.CreatedAt,
		)
		delete(s.runs, r.ID)
	}
}

// Count returns the number of runs in the store
func (s *RunStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
