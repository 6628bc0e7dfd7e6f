package flash

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/geocoder89/givehub/internal/actorctx"
	"github.com/redis/go-redis/v9"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a one-shot message shown on the next rendered page.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func Error(msg string) Notice   { return Notice{Level: LevelError, Message: msg} }
func Success(msg string) Notice { return Notice{Level: LevelSuccess, Message: msg} }
func Info(msg string) Notice    { return Notice{Level: LevelInfo, Message: msg} }

// Store queues notices per session id and drains them on render.
type Store interface {
	Push(ctx context.Context, sid string, n Notice) error
	Drain(ctx context.Context, sid string) ([]Notice, error)
}

// Notifier resolves the session from ctx and queues the notice there. It is
// what the API client, the guard and the donation flow call.
type Notifier struct {
	store Store
}

func NewNotifier(store Store) *Notifier {
	return &Notifier{store: store}
}

func (n *Notifier) Notify(ctx context.Context, notice Notice) {
	sid, ok := actorctx.SessionIDFrom(ctx)
	if !ok {
		return
	}
	_ = n.store.Push(ctx, sid, notice)
}

// Move carries notices queued under from over to to, keeping their order.
func (n *Notifier) Move(ctx context.Context, from, to string) {
	if from == "" || from == to {
		return
	}
	for _, notice := range n.Drain(ctx, from) {
		_ = n.store.Push(ctx, to, notice)
	}
}

func (n *Notifier) Drain(ctx context.Context, sid string) []Notice {
	out, err := n.store.Drain(ctx, sid)
	if err != nil {
		return nil
	}
	return out
}

type MemoryStore struct {
	mu    sync.Mutex
	items map[string][]Notice
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]Notice)}
}

func (s *MemoryStore) Push(_ context.Context, sid string, n Notice) error {
	s.mu.Lock()
	s.items[sid] = append(s.items[sid], n)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Drain(_ context.Context, sid string) ([]Notice, error) {
	s.mu.Lock()
	out := s.items[sid]
	delete(s.items, sid)
	s.mu.Unlock()
	return out, nil
}

// RedisStore keeps notices in a short-lived list per session.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: 10 * time.Minute}
}

func key(sid string) string { return "flash:" + sid }

func (s *RedisStore) Push(ctx context.Context, sid string, n Notice) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key(sid), b)
	pipe.Expire(ctx, key(sid), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Drain(ctx context.Context, sid string) ([]Notice, error) {
	pipe := s.rdb.TxPipeline()
	lr := pipe.LRange(ctx, key(sid), 0, -1)
	pipe.Del(ctx, key(sid))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	raw := lr.Val()
	out := make([]Notice, 0, len(raw))
	for _, r := range raw {
		var n Notice
		if json.Unmarshal([]byte(r), &n) == nil {
			out = append(out, n)
		}
	}
	return out, nil
}
