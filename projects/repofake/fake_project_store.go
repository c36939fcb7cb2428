package projectrepofake

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/media-admin/projects"
)

var _ projects.Store = (*FakeProjectStore)(nil)

// FakeProjectStore is an in-memory projects.Store.
type FakeProjectStore struct {
	tables map[string]map[string]projects.Project
	lock   sync.RWMutex
	calls  int
	err    error
}

func NewFakeProjectStore() *FakeProjectStore {
	return &FakeProjectStore{tables: make(map[string]map[string]projects.Project)}
}

// FailWith makes subsequent calls return err. Pass nil to recover.
func (s *FakeProjectStore) FailWith(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.err = err
}

// Calls is the number of store operations attempted.
func (s *FakeProjectStore) Calls() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.calls
}

func (s *FakeProjectStore) Scan(_ context.Context, table string) ([]projects.Project, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	items := make([]projects.Project, 0, len(s.tables[table]))
	for _, p := range s.tables[table] {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt < items[j].CreatedAt
	})
	return items, nil
}

func (s *FakeProjectStore) Put(_ context.Context, table string, project projects.Project) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}

	if _, ok := s.tables[table]; !ok {
		s.tables[table] = make(map[string]projects.Project)
	}
	s.tables[table][project.ProjectID] = project
	return nil
}

func (s *FakeProjectStore) Delete(_ context.Context, table, projectID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}

	delete(s.tables[table], projectID)
	return nil
}
