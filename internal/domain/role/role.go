package role

import (
	"errors"
	"strings"
)

type Role string

const (
	User      Role = "user"
	Volunteer Role = "volunteer"
	Admin     Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

// All lists roles in display order.
var All = []Role{User, Volunteer, Admin}

func Parse(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) IsValid() bool {
	switch r {
	case User, Volunteer, Admin:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// Set is an unordered collection of roles. The zero value is the empty set,
// which a guard treats as "any authenticated role".
type Set map[Role]struct{}

func NewSet(roles ...Role) Set {
	s := make(Set, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

func (s Set) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s Set) Empty() bool { return len(s) == 0 }
