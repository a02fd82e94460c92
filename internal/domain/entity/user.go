// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the core entity of the system: one account with one owned
// credential record. The credential record (PasswordHash) is the opaque
// encoded string produced by the hasher; it is replaced wholesale on
// password change or rehash migration, never mutated in place.
type User struct {
	ID           uuid.UUID  // The unique identifier for the user.
	Username     string     // Unique login identifier.
	Email        string     // Unique contact address.
	PasswordHash string     // Encoded credential record; algorithm, parameters, salt and digest travel inside.
	IsActive     bool       // Soft-delete flag; inactive users are permanently refused authentication.
	CreatedAt    time.Time  // Timestamp of when this account was created.
	UpdatedAt    time.Time  // Timestamp of the last modification to this account.
	LastLoginAt  *time.Time // Timestamp of the last successful authentication; nil until the first login.
}

// Profile is the externally visible view of a User. The credential record
// is excluded by construction, not stripped after the fact.
type Profile struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// PublicProfile returns the user's externally safe view.
func (u *User) PublicProfile() *Profile {
	return &Profile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
