package sessionrepofake

import (
	"sync"

	"github.com/jrsteele09/media-admin/sessions"
)

var _ sessions.Store = (*FakeSessionStore)(nil)

// FakeSessionStore keeps the session in memory.
type FakeSessionStore struct {
	stored *sessions.Stored
	lock   sync.RWMutex

	sets   int
	clears int
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{}
}

func (s *FakeSessionStore) Get() (*sessions.Stored, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.stored == nil {
		return nil, nil
	}
	if s.stored.Session.Expired(sessions.NowTimeFunc()) {
		s.stored = nil
		s.clears++
		return nil, nil
	}
	cp := *s.stored
	return &cp, nil
}

func (s *FakeSessionStore) Set(session sessions.Session, user sessions.User) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.stored = &sessions.Stored{Session: session, User: user}
	s.sets++
	return nil
}

func (s *FakeSessionStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.stored = nil
	s.clears++
	return nil
}

// Peek returns the stored value without applying expiry.
func (s *FakeSessionStore) Peek() *sessions.Stored {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.stored == nil {
		return nil
	}
	cp := *s.stored
	return &cp
}

// Counts returns the number of Set and Clear calls so far.
func (s *FakeSessionStore) Counts() (sets, clears int) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.sets, s.clears
}
