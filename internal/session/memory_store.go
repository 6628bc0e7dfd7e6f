package session

import (
	"context"
	"sync"
	"time"

	dsession "github.com/geocoder89/givehub/internal/domain/session"
)

type memEntry struct {
	raw []byte
	exp time.Time
}

// MemoryStore is a single-process Store used by tests and local runs
// without Redis.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]memEntry
	subs map[string][]chan dsession.Change
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]memEntry),
		subs: make(map[string][]chan dsession.Change),
	}
}

func (s *MemoryStore) Get(_ context.Context, sid string) (dsession.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[sid]
	if !ok {
		return dsession.Session{}, ErrNoSession
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(s.m, sid)
		return dsession.Session{}, ErrNoSession
	}

	sess, err := decode(e.raw)
	if err != nil {
		delete(s.m, sid)
		return dsession.Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *MemoryStore) Set(_ context.Context, sid string, sess dsession.Session, ttl time.Duration) error {
	raw, err := encode(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.m[sid] = memEntry{raw: raw, exp: exp}
	s.publish(sid, setChange(sess))
	return nil
}

// PutRaw stores bytes as-is, bypassing encoding.
func (s *MemoryStore) PutRaw(sid string, raw []byte) {
	s.mu.Lock()
	s.m[sid] = memEntry{raw: raw}
	s.mu.Unlock()
}

func (s *MemoryStore) Clear(_ context.Context, sid, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, sid)
	s.publish(sid, clearChange(reason))
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, sid string) (<-chan dsession.Change, error) {
	ch := make(chan dsession.Change, 8)

	s.mu.Lock()
	s.subs[sid] = append(s.subs[sid], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()

		subs := s.subs[sid]
		for i, c := range subs {
			if c == ch {
				s.subs[sid] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(s.subs[sid]) == 0 {
			delete(s.subs, sid)
		}
		close(ch)
	}()

	return ch, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// publish must be called with s.mu held. Slow subscribers miss events.
func (s *MemoryStore) publish(sid string, c dsession.Change) {
	for _, ch := range s.subs[sid] {
		select {
		case ch <- c:
		default:
		}
	}
}
