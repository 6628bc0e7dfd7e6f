package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dsession "github.com/geocoder89/givehub/internal/domain/session"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the session JSON at session:<sid> and publishes changes
// on session:events:<sid>, so every web instance sees logins and logouts.
type RedisStore struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisStore(rdb *redis.Client, log *slog.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, log: log}
}

func dataKey(sid string) string   { return "session:" + sid }
func eventsKey(sid string) string { return "session:events:" + sid }

func (s *RedisStore) Get(ctx context.Context, sid string) (dsession.Session, error) {
	raw, err := s.rdb.Get(ctx, dataKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return dsession.Session{}, ErrNoSession
	}
	if err != nil {
		return dsession.Session{}, fmt.Errorf("session get: %w", err)
	}

	sess, err := decode(raw)
	if err != nil {
		s.log.WarnContext(ctx, "session.malformed_cleared", "err", err)
		if delErr := s.rdb.Del(ctx, dataKey(sid)).Err(); delErr != nil {
			s.log.WarnContext(ctx, "session.malformed_clear_failed", "err", delErr)
		}
		return dsession.Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *RedisStore) Set(ctx context.Context, sid string, sess dsession.Session, ttl time.Duration) error {
	raw, err := encode(sess)
	if err != nil {
		return err
	}

	if err := s.rdb.Set(ctx, dataKey(sid), raw, ttl).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}

	s.publish(ctx, sid, setChange(sess))
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sid, reason string) error {
	if err := s.rdb.Del(ctx, dataKey(sid)).Err(); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}

	s.publish(ctx, sid, clearChange(reason))
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context, sid string) (<-chan dsession.Change, error) {
	ps := s.rdb.Subscribe(ctx, eventsKey(sid))

	// wait for the subscription to be confirmed so no event is lost between
	// returning and the first receive
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("session subscribe: %w", err)
	}

	out := make(chan dsession.Change, 8)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		defer ps.Close() //nolint:errcheck

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c dsession.Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// publishing is best-effort: the write already succeeded
func (s *RedisStore) publish(ctx context.Context, sid string, c dsession.Change) {
	b, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, eventsKey(sid), b).Err(); err != nil {
		s.log.WarnContext(ctx, "session.publish_failed", "kind", c.Kind, "err", err)
	}
}
