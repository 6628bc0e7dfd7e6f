package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	dsession "github.com/geocoder89/givehub/internal/domain/session"
)

var ErrNoSession = errors.New("no session")

// Store persists one session per session id and broadcasts every write.
// Get never returns malformed data: it clears it and reports ErrNoSession.
type Store interface {
	Get(ctx context.Context, sid string) (dsession.Session, error)
	Set(ctx context.Context, sid string, s dsession.Session, ttl time.Duration) error
	Clear(ctx context.Context, sid, reason string) error
	Subscribe(ctx context.Context, sid string) (<-chan dsession.Change, error)
	Ping(ctx context.Context) error
}

func encode(s dsession.Session) ([]byte, error) {
	return json.Marshal(s)
}

func decode(raw []byte) (dsession.Session, error) {
	var s dsession.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return dsession.Session{}, dsession.ErrMalformed
	}
	if err := s.Validate(); err != nil {
		return dsession.Session{}, err
	}
	return s, nil
}

func setChange(s dsession.Session) dsession.Change {
	return dsession.Change{Kind: dsession.ChangeSet, Name: s.Name, Role: s.Role, At: time.Now().UTC()}
}

func clearChange(reason string) dsession.Change {
	return dsession.Change{Kind: dsession.ChangeClear, Reason: reason, At: time.Now().UTC()}
}
