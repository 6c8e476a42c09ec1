package model

import (
	"strings"
	"time"

	"chopshop/internal/domain"
)

// User mirrors the account record the backend returns from the auth
// endpoints. Credits here is a snapshot; the lifecycle controller owns the
// locally tracked balance.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Credits   int64     `json:"credits"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

func NewUser(id, email string, credits int64) (*User, error) {
	if id == "" || !strings.Contains(email, "@") || credits < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:        id,
		Email:     email,
		Credits:   credits,
		CreatedAt: time.Now(),
	}, nil
}
