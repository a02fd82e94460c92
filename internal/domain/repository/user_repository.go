// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"
	"time"

	"passguard/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrUserNotFound is a domain-specific error returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the standard operations for user persistence.
// The application layer depends on this interface, not the concrete
// implementation. Every method is a single atomic operation against the
// store; multi-step flows compose them inside a TransactionManager.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByUsername retrieves a single user by their username.
	FindByUsername(ctx context.Context, username string) (*entity.User, error)

	// Create persists a new user entity. A uniqueness violation on username
	// or email surfaces as domainerrors.ErrUserAlreadyExists.
	Create(ctx context.Context, user *entity.User) error

	// UpdatePasswordHash replaces the stored credential record wholesale.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error

	// UpdateLastLogin stamps the user's last successful authentication.
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// SetActive flips the active flag. Returns ErrUserNotFound when no row
	// matched; the credential record is retained either way.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
