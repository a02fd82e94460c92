package impl

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"passguard/internal/domain/entity"
	domainerrors "passguard/internal/domain/errors"
	"passguard/internal/domain/repository"
	mockRepo "passguard/internal/mocks/repository"
	mockSvc "passguard/internal/mocks/service"
	"passguard/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testDecoyRecord  = "$argon2id$v=19$m=65536,t=3,p=4$decoydecoydecoydecoyaa$decoydecoydecoydecoydecoydecoydecoydecoydoc"
	testStoredRecord = "$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHRzb21lc2FsdA$c29tZWRpZ2VzdHNvbWVkaWdlc3Rzb21lZGlnZXN0YWE"
)

// authServiceFixtures holds all test dependencies for auth service tests.
type authServiceFixtures struct {
	service   usecase.AuthUsecase
	txManager *mockRepo.MockTransactionManager
	userRepo  *mockRepo.MockUserRepository
	hasher    *mockSvc.MockCredentialHasher
}

func createTestAuthService(t *testing.T) authServiceFixtures {
	txManager := mockRepo.NewMockTransactionManager(t)
	userRepo := mockRepo.NewMockUserRepository(t)
	hasher := mockSvc.NewMockCredentialHasher(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// The constructor derives a decoy record once for uniform-time failures.
	hasher.EXPECT().
		Hash(mock.AnythingOfType("string")).
		Return(testDecoyRecord, nil).
		Once()

	service := NewAuthService(AuthServiceParams{
		TxManager: txManager,
		UserRepo:  userRepo,
		Hasher:    hasher,
		Logger:    logger,
	})

	return authServiceFixtures{
		service:   service,
		txManager: txManager,
		userRepo:  userRepo,
		hasher:    hasher,
	}
}

func newActiveUser() *entity.User {
	now := time.Now().UTC()
	return &entity.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: testStoredRecord,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	input := &usecase.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Password123!",
	}

	fx.hasher.EXPECT().Hash(input.Password).Return(testStoredRecord, nil)

	fx.userRepo.EXPECT().
		Create(ctx, mock.AnythingOfType("*entity.User")).
		Run(func(ctx context.Context, user *entity.User) {
			user.ID = uuid.New()
		}).
		Return(nil)

	output, err := fx.service.Register(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, input.Username, output.User.Username)
	assert.Equal(t, input.Email, output.User.Email)
	assert.True(t, output.User.IsActive)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	input := &usecase.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Password123!",
	}

	fx.hasher.EXPECT().Hash(input.Password).Return(testStoredRecord, nil)

	fx.userRepo.EXPECT().
		Create(ctx, mock.AnythingOfType("*entity.User")).
		Return(domainerrors.ErrUserAlreadyExists.WrapMessage("username already taken"))

	output, err := fx.service.Register(ctx, input)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrUserAlreadyExists))
}

func TestAuthService_Register_EmptyPassword(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	input := &usecase.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "",
	}

	fx.hasher.EXPECT().Hash("").Return("", domainerrors.ErrEmptyPassword)

	output, err := fx.service.Register(ctx, input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrEmptyPassword))
	// No write may reach the repository when hashing is rejected.
	fx.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Authenticate_Success(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()
	input := &usecase.AuthenticateInput{Username: user.Username, Password: "Password123!"}

	fx.userRepo.EXPECT().FindByUsername(ctx, user.Username).Return(user, nil)
	fx.hasher.EXPECT().Verify(input.Password, testStoredRecord).Return(true)
	fx.userRepo.EXPECT().UpdateLastLogin(ctx, user.ID, mock.AnythingOfType("time.Time")).Return(nil)
	fx.hasher.EXPECT().NeedsRehash(testStoredRecord).Return(false)

	output, err := fx.service.Authenticate(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, user.ID, output.User.ID)
	assert.NotNil(t, output.User.LastLoginAt)
}

func TestAuthService_Authenticate_UnknownUser(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	input := &usecase.AuthenticateInput{Username: "nobody", Password: "Password123!"}

	fx.userRepo.EXPECT().FindByUsername(ctx, "nobody").Return(nil, repository.ErrUserNotFound)
	// The decoy record is still verified so timing stays uniform.
	fx.hasher.EXPECT().Verify(input.Password, testDecoyRecord).Return(false)

	output, err := fx.service.Authenticate(ctx, input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
}

func TestAuthService_Authenticate_InactiveUser(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()
	user.IsActive = false
	input := &usecase.AuthenticateInput{Username: user.Username, Password: "Password123!"}

	fx.userRepo.EXPECT().FindByUsername(ctx, user.Username).Return(user, nil)
	// A deactivated account is treated like a missing one.
	fx.hasher.EXPECT().Verify(input.Password, testDecoyRecord).Return(false)

	output, err := fx.service.Authenticate(ctx, input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
}

func TestAuthService_Authenticate_WrongPassword(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()
	input := &usecase.AuthenticateInput{Username: user.Username, Password: "wrong"}

	fx.userRepo.EXPECT().FindByUsername(ctx, user.Username).Return(user, nil)
	fx.hasher.EXPECT().Verify(input.Password, testStoredRecord).Return(false)

	output, err := fx.service.Authenticate(ctx, input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
}

// All authentication failure causes must be indistinguishable to the caller.
func TestAuthService_Authenticate_UniformFailure(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()

	fx.userRepo.EXPECT().FindByUsername(ctx, "nobody").Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Verify("pw", testDecoyRecord).Return(false)
	_, errUnknown := fx.service.Authenticate(ctx, &usecase.AuthenticateInput{Username: "nobody", Password: "pw"})

	fx.userRepo.EXPECT().FindByUsername(ctx, user.Username).Return(user, nil)
	fx.hasher.EXPECT().Verify("pw", testStoredRecord).Return(false)
	_, errWrongPassword := fx.service.Authenticate(ctx, &usecase.AuthenticateInput{Username: user.Username, Password: "pw"})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPassword)
	assert.Equal(t, errUnknown.Error(), errWrongPassword.Error())
}

func TestAuthService_Authenticate_LastLoginBestEffort(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()
	input := &usecase.AuthenticateInput{Username: user.Username, Password: "Password123!"}

	fx.userRepo.EXPECT().FindByUsername(ctx, user.Username).Return(user, nil)
	fx.hasher.EXPECT().Verify(input.Password, testStoredRecord).Return(true)
	fx.userRepo.EXPECT().
		UpdateLastLogin(ctx, user.ID, mock.AnythingOfType("time.Time")).
		Return(errors.New("connection reset"))
	fx.hasher.EXPECT().NeedsRehash(testStoredRecord).Return(false)

	output, err := fx.service.Authenticate(ctx, input)

	// A bookkeeping failure must not fail a correct login.
	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Nil(t, output.User.LastLoginAt)
}

func TestAuthService_Authenticate_RehashUpgrade(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()
	input := &usecase.AuthenticateInput{Username: user.Username, Password: "Password123!"}
	upgraded := "$argon2id$v=19$m=131072,t=4,p=4$bmV3c2FsdG5ld3NhbHRhYQ$bmV3ZGlnZXN0bmV3ZGlnZXN0bmV3ZGlnZXN0bmV3YWE"

	fx.userRepo.EXPECT().FindByUsername(ctx, user.Username).Return(user, nil)
	fx.hasher.EXPECT().Verify(input.Password, testStoredRecord).Return(true)
	fx.userRepo.EXPECT().UpdateLastLogin(ctx, user.ID, mock.AnythingOfType("time.Time")).Return(nil)
	fx.hasher.EXPECT().NeedsRehash(testStoredRecord).Return(true)
	fx.hasher.EXPECT().Hash(input.Password).Return(upgraded, nil)
	fx.userRepo.EXPECT().UpdatePasswordHash(ctx, user.ID, upgraded).Return(nil)

	output, err := fx.service.Authenticate(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, output)
}

func TestAuthService_Authenticate_RehashPersistFailure(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()
	input := &usecase.AuthenticateInput{Username: user.Username, Password: "Password123!"}

	fx.userRepo.EXPECT().FindByUsername(ctx, user.Username).Return(user, nil)
	fx.hasher.EXPECT().Verify(input.Password, testStoredRecord).Return(true)
	fx.userRepo.EXPECT().UpdateLastLogin(ctx, user.ID, mock.AnythingOfType("time.Time")).Return(nil)
	fx.hasher.EXPECT().NeedsRehash(testStoredRecord).Return(true)
	fx.hasher.EXPECT().Hash(input.Password).Return("upgraded", nil)
	fx.userRepo.EXPECT().
		UpdatePasswordHash(ctx, user.ID, "upgraded").
		Return(errors.New("connection reset"))

	output, err := fx.service.Authenticate(ctx, input)

	// The old record keeps working until the next login.
	require.NoError(t, err)
	require.NotNil(t, output)
}

func TestAuthService_ChangePassword_Success(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()
	input := &usecase.ChangePasswordInput{OldPassword: "OldPassword1!", NewPassword: "NewPassword1!"}
	newRecord := "$argon2id$v=19$m=65536,t=3,p=4$bmV3c2FsdG5ld3NhbHRhYQ$bmV3ZGlnZXN0bmV3ZGlnZXN0bmV3ZGlnZXN0bmV3YWE"

	fx.hasher.EXPECT().Hash(input.NewPassword).Return(newRecord, nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockUserRepo := mockRepo.NewMockUserRepository(t)

			mockFactory.EXPECT().UserRepo().Return(mockUserRepo)

			mockUserRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)
			fx.hasher.EXPECT().Verify(input.OldPassword, testStoredRecord).Return(true)
			mockUserRepo.EXPECT().UpdatePasswordHash(ctx, user.ID, newRecord).Return(nil)

			_ = fn(mockFactory)
		}).
		Return(nil)

	changed, err := fx.service.ChangePassword(ctx, user.ID, input)

	require.NoError(t, err)
	assert.True(t, changed)
}

func TestAuthService_ChangePassword_WrongOldPassword(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()
	input := &usecase.ChangePasswordInput{OldPassword: "wrong", NewPassword: "NewPassword1!"}

	fx.hasher.EXPECT().Hash(input.NewPassword).Return("unused-record", nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockUserRepo := mockRepo.NewMockUserRepository(t)

			mockFactory.EXPECT().UserRepo().Return(mockUserRepo)

			mockUserRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)
			fx.hasher.EXPECT().Verify(input.OldPassword, testStoredRecord).Return(false)

			_ = fn(mockFactory)
		}).
		Return(nil)

	changed, err := fx.service.ChangePassword(ctx, user.ID, input)

	// Fails closed: no error is surfaced and the stored record is untouched.
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestAuthService_ChangePassword_UnknownUser(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()
	input := &usecase.ChangePasswordInput{OldPassword: "OldPassword1!", NewPassword: "NewPassword1!"}

	fx.hasher.EXPECT().Hash(input.NewPassword).Return("unused-record", nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockUserRepo := mockRepo.NewMockUserRepository(t)

			mockFactory.EXPECT().UserRepo().Return(mockUserRepo)
			mockUserRepo.EXPECT().FindByID(ctx, userID).Return(nil, repository.ErrUserNotFound)

			_ = fn(mockFactory)
		}).
		Return(nil)

	changed, err := fx.service.ChangePassword(ctx, userID, input)

	require.NoError(t, err)
	assert.False(t, changed)
}

func TestAuthService_ChangePassword_StoreFailure(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()
	input := &usecase.ChangePasswordInput{OldPassword: "OldPassword1!", NewPassword: "NewPassword1!"}

	fx.hasher.EXPECT().Hash(input.NewPassword).Return("new-record", nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		RunAndReturn(func(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockUserRepo := mockRepo.NewMockUserRepository(t)

			mockFactory.EXPECT().UserRepo().Return(mockUserRepo)

			mockUserRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)
			fx.hasher.EXPECT().Verify(input.OldPassword, testStoredRecord).Return(true)
			mockUserRepo.EXPECT().
				UpdatePasswordHash(ctx, user.ID, "new-record").
				Return(errors.New("connection reset"))

			return fn(mockFactory)
		})

	changed, err := fx.service.ChangePassword(ctx, user.ID, input)

	assert.Error(t, err)
	assert.False(t, changed)
}

func TestAuthService_ChangePassword_EmptyNewPassword(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()
	input := &usecase.ChangePasswordInput{OldPassword: "OldPassword1!", NewPassword: ""}

	fx.hasher.EXPECT().Hash("").Return("", domainerrors.ErrEmptyPassword)

	changed, err := fx.service.ChangePassword(ctx, userID, input)

	assert.False(t, changed)
	assert.True(t, errors.Is(err, domainerrors.ErrEmptyPassword))
	fx.txManager.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestAuthService_Deactivate_Success(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()

	fx.userRepo.EXPECT().SetActive(ctx, userID, false).Return(nil)

	deactivated, err := fx.service.Deactivate(ctx, userID)

	require.NoError(t, err)
	assert.True(t, deactivated)
}

func TestAuthService_Deactivate_UnknownUser(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()

	fx.userRepo.EXPECT().SetActive(ctx, userID, false).Return(repository.ErrUserNotFound)

	deactivated, err := fx.service.Deactivate(ctx, userID)

	require.NoError(t, err)
	assert.False(t, deactivated)
}

func TestAuthService_GetProfile_Success(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	user := newActiveUser()

	fx.userRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)

	profile, err := fx.service.GetProfile(ctx, user.ID)

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, user.Username, profile.Username)
}

func TestAuthService_GetProfile_NotFound(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()

	fx.userRepo.EXPECT().FindByID(ctx, userID).Return(nil, repository.ErrUserNotFound)

	profile, err := fx.service.GetProfile(ctx, userID)

	assert.Nil(t, profile)
	assert.True(t, errors.Is(err, domainerrors.ErrUserNotFound))
}
