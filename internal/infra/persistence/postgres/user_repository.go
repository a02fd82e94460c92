package postgres

import (
	"context"
	"time"

	"passguard/internal/domain/entity"
	domainerrors "passguard/internal/domain/errors"
	"passguard/internal/domain/repository"
	"passguard/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&userM).Error; err != nil {
		// If the error is 'record not found', return a domain-specific error.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by id")
	}

	return toUserDomain(&userM), nil
}

// FindByUsername retrieves a single user by their username.
func (repo *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where("username = ?", username).First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by username")
	}

	return toUserDomain(&userM), nil
}

// Create persists a new user entity to the database.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	userM := fromUserDomain(user)

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrUserAlreadyExists.WrapMessage("username or email already exists")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrUserCreationFailed.WrapMessage("missing required user information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	// Carry the generated ID and timestamps back onto the entity.
	user.ID = userM.ID
	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// UpdatePasswordHash replaces the stored credential record for the user.
func (repo *userRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update password hash")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// UpdateLastLogin stamps the user's last successful authentication time.
func (repo *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", id).
		Update("last_login_at", at)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update last login")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// SetActive flips the user's active flag. The credential record is retained
// so deactivation stays auditable.
func (repo *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update active flag")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// --- Mapper Functions ---
// These helpers convert between domain entities and persistence models.

// toUserDomain converts a GORM UserModel to a domain User entity.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:           data.ID,
		Username:     data.Username,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		IsActive:     data.IsActive,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
		LastLoginAt:  data.LastLoginAt,
	}
}

// fromUserDomain converts a domain User entity to a GORM UserModel for persistence.
func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:           data.ID,
		Username:     data.Username,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		IsActive:     data.IsActive,
		LastLoginAt:  data.LastLoginAt,
	}
}
