package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
)

var errBoom = errors.New("boom")

type memStore struct {
	mu   sync.Mutex
	byID map[string]*entity.Challenge

	findErr   error
	upsertErr error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*entity.Challenge{}}
}

func (m *memStore) lookup(identifier string, purpose entity.Purpose) *entity.Challenge {
	for _, c := range m.byID {
		if c.Identifier == identifier && c.Purpose == purpose {
			return c
		}
	}
	return nil
}

func (m *memStore) Find(_ context.Context, identifier string, purpose entity.Purpose) (*entity.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}
	c := m.lookup(identifier, purpose)
	if c == nil {
		return nil, goerror.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) Upsert(_ context.Context, c entity.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertErr != nil {
		return m.upsertErr
	}
	if old := m.lookup(c.Identifier, c.Purpose); old != nil {
		delete(m.byID, old.ID)
	}
	c.Attempts, c.Verified = 0, false
	m.byID[c.ID] = &c
	return nil
}

func (m *memStore) IncrementAttempts(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byID[id]
	if !ok || c.Attempts >= c.MaxAttempts {
		return 0, goerror.ErrNotFound
	}
	c.Attempts++
	return c.Attempts, nil
}

func (m *memStore) MarkVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byID[id]
	if !ok || c.Verified || c.Attempts >= c.MaxAttempts {
		return goerror.ErrNotFound
	}
	c.Verified = true
	return nil
}

func (m *memStore) Delete(_ context.Context, identifier string, purpose entity.Purpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}
	c := m.lookup(identifier, purpose)
	if c == nil {
		return goerror.ErrNotFound
	}
	delete(m.byID, c.ID)
	return nil
}

func (m *memStore) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.byID[id]; !ok {
		return goerror.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, c := range m.byID {
		if !now.Before(c.PurgeAt) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memStore) get(identifier string, purpose entity.Purpose) *entity.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.lookup(identifier, purpose); c != nil {
		cp := *c
		return &cp
	}
	return nil
}

type sentCode struct {
	identifier string
	code       string
	purpose    entity.Purpose
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	fail string
}

func (f *fakeNotifier) Send(_ context.Context, identifier, code string, purpose entity.Purpose, _ time.Duration) entity.Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != "" {
		return entity.Delivery{Detail: f.fail}
	}
	f.sent = append(f.sent, sentCode{identifier: identifier, code: code, purpose: purpose})
	return entity.Delivery{Delivered: true}
}

func (f *fakeNotifier) last() sentCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type seqCodes struct {
	mu  sync.Mutex
	n   int
	err error
}

func (s *seqCodes) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}
	s.n++
	return "12345" + strconv.Itoa(s.n%10), nil
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "ch-" + strconv.Itoa(s.n)
}
