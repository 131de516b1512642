package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	appErr "skillswap/pkg/errors"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and bearer token handling.
type AuthService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Bio      string `json:"bio" validate:"max=500"`
	Location string `json:"location" validate:"max=100"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult pairs an issued token with the account it belongs to.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, appErr.Invalid("Validation failed", map[string]string{"name": "Name is required"})
	}
	email := models.NormalizeEmail(in.Email)

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, appErr.New(appErr.CodeConflict, "User already exists with this email")
	} else if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Bio:          in.Bio,
		Location:     strings.TrimSpace(in.Location),
	}
	user.PrepareCreate(timeNow())
	if err := s.userRepo.Create(ctx, user); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			return nil, appErr.Wrap(err, appErr.CodeConflict, "User already exists with this email")
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	registrationsTotal.Inc()
	s.log.Info("user registered", zap.String("userId", user.ID))

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable; a banned account fails with its ban reason.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	invalid := appErr.New(appErr.CodeUnauthorized, "Invalid credentials")

	user, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			loginsTotal.WithLabelValues("invalid").Inc()
			return nil, invalid
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		loginsTotal.WithLabelValues("invalid").Inc()
		return nil, invalid
	}

	if user.IsBanned {
		loginsTotal.WithLabelValues("banned").Inc()
		return nil, bannedError(user)
	}

	user, err = s.touch(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	loginsTotal.WithLabelValues("ok").Inc()
	return &AuthResult{Token: token, User: user}, nil
}

// Refresh issues a fresh token for an already authenticated user.
func (s *AuthService) Refresh(ctx context.Context, userID string) (string, error) {
	if _, err := s.touch(ctx, userID); err != nil {
		return "", err
	}
	return s.IssueToken(userID)
}

// IssueToken signs an HS256 token whose subject claim is "id".
func (s *AuthService) IssueToken(userID string) (string, error) {
	now := timeNow()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the subject id.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeUnauthorized, "Token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", appErr.New(appErr.CodeUnauthorized, "Token is not valid")
	}
	// jwt-go only checks exp when present.
	if _, hasExp := claims["exp"]; !hasExp {
		return "", appErr.New(appErr.CodeUnauthorized, "Token is not valid")
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return "", appErr.New(appErr.CodeUnauthorized, "Token is not valid")
	}
	return id, nil
}

// Authenticate resolves a bearer token to its user. Unknown subjects are
// Unauthorized, banned ones Forbidden.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	id, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeUnauthorized, "Token is not valid")
		}
		return nil, err
	}
	if user.IsBanned {
		return nil, bannedError(user)
	}
	return user, nil
}

func (s *AuthService) touch(ctx context.Context, userID string) (*models.User, error) {
	now := timeNow()
	return s.userRepo.Update(ctx, userID, models.UserPatch{LastActive: &now})
}

func bannedError(u *models.User) error {
	return appErr.New(appErr.CodeForbidden, "Account has been banned").WithMeta("reason", u.BanReason)
}
