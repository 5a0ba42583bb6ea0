package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is the stored identity record. PasswordHash and VerificationToken
// never leave the core; every caller-visible view goes through Profile.
type Account struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"password_hash"`
	Avatar            string    `json:"avatar,omitempty"`
	Verified          bool      `json:"verified"`
	VerificationToken string    `json:"verification_token,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

// Profile is the outward projection of an Account.
type Profile struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Avatar string    `json:"avatar,omitempty"`
}

func (a Account) Profile() Profile {
	return Profile{ID: a.ID, Name: a.Name, Email: a.Email, Avatar: a.Avatar}
}
