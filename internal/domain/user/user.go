package user

import (
	"encoding/json"

	"github.com/geocoder89/givehub/internal/domain/role"
)

type User struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  role.Role `json:"role"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	type alias User
	var raw struct {
		alias
		MongoID string `json:"_id"`
	}

	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*u = User(raw.alias)
	if u.ID == "" {
		u.ID = raw.MongoID
	}
	return nil
}

// AuthResult is what /auth/login and /auth/register return: the identity
// plus the bearer credential for subsequent calls.
type AuthResult struct {
	User
	Token string `json:"token"`
}

func (a *AuthResult) UnmarshalJSON(b []byte) error {
	var u User
	if err := json.Unmarshal(b, &u); err != nil {
		return err
	}

	var t struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}

	a.User = u
	a.Token = t.Token
	return nil
}

type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

type RegisterForm struct {
	Name     string `form:"name" binding:"required,min=2,max=80"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6"`
	Role     string `form:"role" binding:"required,oneof=user volunteer"`
}

type ProfileForm struct {
	Name  string `form:"name" binding:"required,min=2,max=80"`
	Email string `form:"email" binding:"required,email"`
}
