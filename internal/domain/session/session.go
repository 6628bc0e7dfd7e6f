package session

import (
	"errors"
	"time"

	"github.com/geocoder89/givehub/internal/domain/role"
)

// Session is the identity of the visitor currently logged in under one
// session cookie, together with the backend credential used on their behalf.
type Session struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       role.Role `json:"role"`
	Credential string    `json:"credential"`
	CreatedAt  time.Time `json:"createdAt"`
}

var ErrMalformed = errors.New("malformed session")

// Validate reports whether a hydrated session is usable.
func (s Session) Validate() error {
	if s.ID == "" || s.Credential == "" || !s.Role.IsValid() {
		return ErrMalformed
	}
	return nil
}

func (s Session) Is(r role.Role) bool { return s.Role == r }

// ChangeKind describes what happened to a stored session.
type ChangeKind string

const (
	ChangeSet   ChangeKind = "set"
	ChangeClear ChangeKind = "clear"
)

// Change is broadcast to subscribers whenever a session is written or cleared.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Name   string     `json:"name,omitempty"`
	Role   role.Role  `json:"role,omitempty"`
	Reason string     `json:"reason,omitempty"`
	At     time.Time  `json:"at"`
}
