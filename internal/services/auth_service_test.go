package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	"skillswap/internal/services"
	appErr "skillswap/pkg/errors"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ repositories.UserRepository = (*MockUserRepository)(nil)

func newAuthService(repo repositories.UserRepository) *services.AuthService {
	return services.NewAuthService(repo, testJWTSecret, time.Hour, zap.NewNop())
}

func notFound(id string) error {
	return appErr.Newf(appErr.CodeNotFound, "user with ID %s not found", id)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)

	in := services.RegisterInput{Name: "  Alice ", Email: "Alice@Example.com", Password: "password123"}

	mockRepo.On("FindByEmail", ctx, "alice@example.com").Return(nil, notFound("alice@example.com")).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	res, err := authService.Register(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Alice", res.User.Name)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.NotEqual(t, "password123", res.User.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(res.User.PasswordHash), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Email already registered
	mockRepo.On("FindByEmail", ctx, "alice@example.com").Return(&models.User{ID: "1"}, nil).Once()
	_, err = authService.Register(ctx, in)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
	assert.Contains(t, err.Error(), "User already exists with this email")
	mockRepo.AssertExpectations(t)

	// Lost the race to a concurrent registration
	mockRepo.On("FindByEmail", ctx, "alice@example.com").Return(nil, notFound("alice@example.com")).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).
		Return(appErr.New(appErr.CodeConflict, "user with email alice@example.com already exists")).Once()
	_, err = authService.Register(ctx, in)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
	mockRepo.AssertExpectations(t)

	// Store failure is not masked
	mockRepo.On("FindByEmail", ctx, "alice@example.com").Return(nil, fmt.Errorf("disk on fire")).Once()
	_, err = authService.Register(ctx, in)
	assert.Error(t, err)
	assert.Equal(t, appErr.CodeUnknown, appErr.CodeOf(err))
}

func TestAuthService_RegisterBlankName(t *testing.T) {
	mockRepo := new(MockUserRepository)
	_, err := newAuthService(mockRepo).Register(context.Background(), services.RegisterInput{Name: "   ", Email: "a@b.co", Password: "secret1"})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &models.User{ID: "user-123", Email: "test@example.com", PasswordHash: string(hashedPassword)}

	// Successful login touches lastActive
	mockRepo.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()
	mockRepo.On("Update", ctx, "user-123", mock.MatchedBy(func(p models.UserPatch) bool {
		return p.LastActive != nil && p.Name == nil
	})).Return(user, nil).Once()

	res, err := authService.Login(ctx, services.LoginInput{Email: "test@example.com", Password: "password123"})
	require.NoError(t, err)

	parsedToken, err := jwt.Parse(res.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, "user-123", claims["id"])
	assert.Contains(t, claims, "iat")
	assert.Contains(t, claims, "exp")
	mockRepo.AssertExpectations(t)

	// Wrong password
	mockRepo.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()
	_, err = authService.Login(ctx, services.LoginInput{Email: "test@example.com", Password: "wrongpassword"})
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
	assert.Contains(t, err.Error(), "Invalid credentials")

	// Unknown email reads the same as a wrong password
	mockRepo.On("FindByEmail", ctx, "nobody@example.com").Return(nil, notFound("nobody@example.com")).Once()
	_, err = authService.Login(ctx, services.LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
	assert.Contains(t, err.Error(), "Invalid credentials")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginBanned(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &models.User{ID: "u1", Email: "b@example.com", PasswordHash: string(hashedPassword), IsBanned: true, BanReason: "spam"}
	mockRepo.On("FindByEmail", ctx, "b@example.com").Return(user, nil)

	_, err := authService.Login(ctx, services.LoginInput{Email: "b@example.com", Password: "password123"})
	ae, ok := appErr.As(err)
	require.True(t, ok)
	assert.Equal(t, appErr.CodeForbidden, ae.Code)
	assert.Equal(t, "Account has been banned", ae.Message)
	assert.Equal(t, "spam", ae.Meta["reason"])
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := newAuthService(new(MockUserRepository))

	valid, err := authService.IssueToken("user-123")
	require.NoError(t, err)
	id, err := authService.ValidateToken(valid)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", id)

	_, err = authService.ValidateToken("invalid.token.string")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	sign := func(claims jwt.MapClaims, secret string) string {
		s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		return s
	}

	expired := sign(jwt.MapClaims{"id": "user-123", "exp": time.Now().Add(-time.Hour).Unix()}, testJWTSecret)
	_, err = authService.ValidateToken(expired)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	wrongSecret := sign(jwt.MapClaims{"id": "user-123", "exp": time.Now().Add(time.Hour).Unix()}, "other")
	_, err = authService.ValidateToken(wrongSecret)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	noExpiry := sign(jwt.MapClaims{"id": "user-123"}, testJWTSecret)
	_, err = authService.ValidateToken(noExpiry)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	noSubject := sign(jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, testJWTSecret)
	_, err = authService.ValidateToken(noSubject)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	authService := newAuthService(store.Users)

	res, err := authService.Register(ctx, services.RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	user, err := authService.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)

	// Subject deleted after the token was issued
	ghost, err := authService.IssueToken("ghost")
	require.NoError(t, err)
	_, err = authService.Authenticate(ctx, ghost)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	_, err = store.Users.Update(ctx, user.ID, models.UserPatch{IsBanned: models.Bool(true), BanReason: models.String("abuse")})
	require.NoError(t, err)
	_, err = authService.Authenticate(ctx, res.Token)
	assert.True(t, appErr.IsCode(err, appErr.CodeForbidden))

	refreshed, err := authService.Refresh(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed)
}
