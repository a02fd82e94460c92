// Package impl provides the concrete implementations of the usecase interfaces.
package impl

import (
	"context"
	"log/slog"
	"time"

	"passguard/internal/domain/entity"
	domainerrors "passguard/internal/domain/errors"
	"passguard/internal/domain/repository"
	"passguard/internal/domain/service"
	"passguard/internal/errors"
	"passguard/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// AuthServiceParams defines the dependencies for the authentication service.
type AuthServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	UserRepo  repository.UserRepository
	Hasher    service.CredentialHasher
	Logger    *slog.Logger
}

type authService struct {
	txManager repository.TransactionManager
	userRepo  repository.UserRepository
	hasher    service.CredentialHasher
	logger    *slog.Logger

	// decoyRecord is verified against when the account is missing or
	// deactivated, so the failure path costs a full hash derivation either
	// way and response timing does not reveal account existence.
	decoyRecord string
}

// NewAuthService creates a new authentication service instance.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	decoy, err := params.Hasher.Hash(uuid.NewString())
	if err != nil {
		// Verify against an empty record still fails, it just returns
		// faster. Flag it so the timing gap is at least visible.
		params.Logger.Warn("failed to derive decoy credential record", slog.Any("error", err))
		decoy = ""
	}

	return &authService{
		txManager:   params.TxManager,
		userRepo:    params.UserRepo,
		hasher:      params.Hasher,
		logger:      params.Logger,
		decoyRecord: decoy,
	}
}

// Register creates a new active account with a hashed credential record.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	// Hash before touching storage. It is CPU-bound and must not hold a
	// connection; an empty password is rejected here as well.
	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, domainerrors.ErrEmptyPassword) {
			return nil, err
		}
		srv.logger.Error("failed to hash password during registration", slog.Any("error", err))
		return nil, domainerrors.ErrPasswordHashFailed.WrapMessage(err.Error())
	}

	user := &entity.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}

	if err := srv.userRepo.Create(ctx, user); err != nil {
		var appErr domainerrors.AppError
		if errors.As(err, &appErr) {
			// Uniqueness violations are already translated by the
			// repository. No row has been created.
			return nil, err
		}
		srv.logger.Error("failed to create user",
			slog.String("username", input.Username),
			slog.Any("error", err))
		return nil, domainerrors.ErrUserCreationFailed.WrapMessage(err.Error())
	}

	srv.logger.Info("user registered",
		slog.String("userID", user.ID.String()),
		slog.String("username", user.Username))

	return &usecase.RegisterOutput{User: user.PublicProfile()}, nil
}

// Authenticate verifies the username/password pair. All failure causes
// collapse into ErrInvalidCredentials.
func (srv *authService) Authenticate(ctx context.Context, input *usecase.AuthenticateInput) (*usecase.AuthenticateOutput, error) {
	user, err := srv.userRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			srv.logger.Error("failed to load user for authentication", slog.Any("error", err))
			return nil, domainerrors.NewDatabaseExecuteError(err, "failed to load user")
		}
		user = nil
	}

	verified := false
	if user != nil && user.IsActive {
		verified = srv.hasher.Verify(input.Password, user.PasswordHash)
	} else {
		// Burn an equivalent derivation so a missing or deactivated
		// account is indistinguishable from a wrong password.
		srv.hasher.Verify(input.Password, srv.decoyRecord)
	}

	if !verified {
		srv.logger.Warn("authentication failed", slog.String("username", input.Username))
		return nil, domainerrors.ErrInvalidCredentials
	}

	// Best effort. A failed bookkeeping write must not fail a correct login.
	now := time.Now().UTC()
	if err := srv.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		srv.logger.Warn("failed to update last login time",
			slog.String("userID", user.ID.String()),
			slog.Any("error", err))
	} else {
		user.LastLoginAt = &now
	}

	srv.maybeRehash(ctx, user, input.Password)

	srv.logger.Info("user authenticated", slog.String("userID", user.ID.String()))

	return &usecase.AuthenticateOutput{User: user.PublicProfile()}, nil
}

// maybeRehash upgrades the stored credential record to the current hashing
// parameters while the cleartext password is available. Failures are logged
// and swallowed; the old record keeps verifying until the next login.
func (srv *authService) maybeRehash(ctx context.Context, user *entity.User, password string) {
	if !srv.hasher.NeedsRehash(user.PasswordHash) {
		return
	}

	newHash, err := srv.hasher.Hash(password)
	if err != nil {
		srv.logger.Warn("failed to rehash credential record",
			slog.String("userID", user.ID.String()),
			slog.Any("error", err))
		return
	}

	if err := srv.userRepo.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		srv.logger.Warn("failed to persist rehashed credential record",
			slog.String("userID", user.ID.String()),
			slog.Any("error", err))
		return
	}

	user.PasswordHash = newHash
	srv.logger.Info("credential record upgraded", slog.String("userID", user.ID.String()))
}

// ChangePassword rotates the credential record inside a single transaction.
// It fails closed: (false, nil) when the user is absent or the old password
// does not verify.
func (srv *authService) ChangePassword(ctx context.Context, userID uuid.UUID, input *usecase.ChangePasswordInput) (bool, error) {
	// Hash the replacement up front so the transaction only does the
	// read-verify-write sequence.
	newHash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		if errors.Is(err, domainerrors.ErrEmptyPassword) {
			return false, err
		}
		srv.logger.Error("failed to hash new password", slog.Any("error", err))
		return false, domainerrors.ErrPasswordHashFailed.WrapMessage(err.Error())
	}

	changed := false
	err = srv.txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		userRepo := factory.UserRepo()

		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil
			}
			return errors.Wrap(err, "failed to load user for password change")
		}

		if !srv.hasher.Verify(input.OldPassword, user.PasswordHash) {
			srv.logger.Warn("password change rejected", slog.String("userID", userID.String()))
			return nil
		}

		if err := userRepo.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
			return errors.Wrap(err, "failed to store new credential record")
		}

		changed = true
		return nil
	})
	if err != nil {
		srv.logger.Error("password change transaction failed",
			slog.String("userID", userID.String()),
			slog.Any("error", err))
		return false, domainerrors.NewDatabaseExecuteError(err, "failed to change password")
	}

	if changed {
		srv.logger.Info("password changed", slog.String("userID", userID.String()))
	}

	return changed, nil
}

// Deactivate soft-deletes the account. The credential record stays in place.
func (srv *authService) Deactivate(ctx context.Context, userID uuid.UUID) (bool, error) {
	if err := srv.userRepo.SetActive(ctx, userID, false); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		srv.logger.Error("failed to deactivate user",
			slog.String("userID", userID.String()),
			slog.Any("error", err))
		return false, domainerrors.ErrUserUpdateFailed.WrapMessage(err.Error())
	}

	srv.logger.Info("user deactivated", slog.String("userID", userID.String()))
	return true, nil
}

// GetProfile returns the public profile for an account.
func (srv *authService) GetProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUserNotFound
		}
		srv.logger.Error("failed to load user profile",
			slog.String("userID", userID.String()),
			slog.Any("error", err))
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to load user")
	}

	return user.PublicProfile(), nil
}
