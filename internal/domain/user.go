// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen = 64
	MaxNameLen   = 64
)

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
	ErrNameEmpty     = errors.New("name empty")
	ErrNameTooLong   = errors.New("name too long")
)

type UserID string

// User carries the identity fields the auth layer attaches to a connection
// announcement. The signaling core trusts them as given.
type User struct {
	ID              UserID `json:"user_id"`
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	IsDeaf          bool   `json:"isDeaf"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID, name string) (*User, error) {
	if len(id) == 0 {
		return nil, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return nil, ErrUserIDTooLong
	}
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	return &User{ID: id, Name: name}, nil
}

func (u *User) SetName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	u.Name = name
	return nil
}
