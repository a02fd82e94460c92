// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"passguard/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthenticateInput defines the data required to authenticate.
type AuthenticateInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordInput defines the data required to rotate a password.
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// --- Output DTOs ---

// RegisterOutput returns the newly created account's public profile.
type RegisterOutput struct {
	User *entity.Profile
}

// AuthenticateOutput returns the authenticated account's public profile.
// The credential record is excluded by construction.
type AuthenticateOutput struct {
	User *entity.Profile
}

// AuthUsecase defines the interface for credential and account operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	// Register creates a new active account with a freshly hashed
	// credential record. A username or email collision surfaces as
	// domainerrors.ErrUserAlreadyExists without creating a row.
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)

	// Authenticate verifies a username/password pair. Unknown user,
	// deactivated user and wrong password all fail with the same
	// domainerrors.ErrInvalidCredentials, in uniform time.
	Authenticate(ctx context.Context, input *AuthenticateInput) (*AuthenticateOutput, error)

	// ChangePassword rotates the credential record after verifying the old
	// password. It fails closed: false with a nil error when the user is
	// absent or the old password does not match, leaving the stored record
	// untouched.
	ChangePassword(ctx context.Context, userID uuid.UUID, input *ChangePasswordInput) (bool, error)

	// Deactivate soft-deletes the account. The credential record is
	// retained; authentication is permanently refused. Returns false when
	// no matching account existed.
	Deactivate(ctx context.Context, userID uuid.UUID) (bool, error)

	// GetProfile returns the public profile for an account by id.
	GetProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
}
