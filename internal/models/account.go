package models

import "time"

// Account holds login credentials. Accounts live with the auth provider,
// not in the tree.
type Account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the resolved user behind a session
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Credential is returned by sign-up and sign-in
type Credential struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Identity  Identity  `json:"identity"`
}
