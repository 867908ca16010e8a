package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"propverse/internal/apperr"
	"propverse/internal/models"
	"propverse/internal/repositories"
	"propverse/internal/validation"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL applies when no token lifetime is configured.
const DefaultTokenTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("token is invalid")
)

// Claims is the payload of an access token.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email,omitempty"`
	UserType string `json:"user_type"`
	jwt.StandardClaims
}

// RegisterInput is the registration request.
type RegisterInput struct {
	Email     string `json:"email" validate:"omitempty,email,max=255"`
	Phone     string `json:"phone" validate:"required_without=Email,omitempty,max=32"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	UserType  string `json:"user_type" validate:"omitempty,oneof=tenant owner agent"`
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithClock overrides the clock used to stamp and check tokens.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) {
		s.bcryptCost = cost
	}
}

// AuthService handles registration, login and the token lifecycle.
type AuthService struct {
	userRepo   repositories.UserRepository
	validate   *validation.Validator
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService. A non-positive tokenTTL falls
// back to DefaultTokenTTL.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger, opts ...AuthOption) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	s := &AuthService{
		userRepo:   userRepo,
		validate:   validation.New(),
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates input, stores a new active user and issues a token.
func (s *AuthService) Register(input RegisterInput) (*models.User, string, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if err := s.validate.Struct(input); err != nil {
		return nil, "", err
	}

	taken := apperr.Validation("User already exists with this email or phone", nil)
	if input.Email != "" {
		if exists, err := s.exists(s.userRepo.GetByEmail, input.Email); err != nil {
			return nil, "", err
		} else if exists {
			return nil, "", taken
		}
	}
	if input.Phone != "" {
		if exists, err := s.exists(s.userRepo.GetByPhone, input.Phone); err != nil {
			return nil, "", err
		} else if exists {
			return nil, "", taken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        optional(input.Email),
		Phone:        optional(input.Phone),
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		UserType:     input.UserType,
		IsActive:     true,
	}
	if user.UserType == "" {
		user.UserType = models.UserTypeTenant
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, "", taken
		}
		return nil, "", apperr.Persistence("Could not register user", err)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("user_type", user.UserType))
	return user, token, nil
}

// Login authenticates by email, falling back to phone, and issues a token.
// Unknown identifiers and wrong passwords yield the same error; inactive
// accounts are reported separately once the password has been verified.
func (s *AuthService) Login(identifier, password string) (*models.User, string, error) {
	invalid := apperr.Auth("Invalid credentials", ErrInvalidCredentials)
	identifier = strings.TrimSpace(identifier)

	user, err := s.userRepo.GetByEmail(identifier)
	if errors.Is(err, repositories.ErrNotFound) {
		user, err = s.userRepo.GetByPhone(identifier)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", invalid
		}
		return nil, "", apperr.Persistence("Could not look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", invalid
	}
	if !user.IsActive {
		return nil, "", apperr.Auth("Account is inactive. Please contact support.", ErrAccountInactive)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs an HS256 token for user valid for the configured TTL.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		UserType: user.UserType,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
	}
	if user.Email != nil {
		claims.Email = *user.Email
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks the signature and expiry of tokenString. The error is
// ErrTokenExpired for a correctly signed token past its exp and
// ErrTokenInvalid for anything else.
func (s *AuthService) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	if claims.ExpiresAt == 0 {
		return nil, fmt.Errorf("%w: missing exp", ErrTokenInvalid)
	}
	if s.now().Unix() >= claims.ExpiresAt {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// GetUser loads a user by id. A missing user is reported as
// repositories.ErrNotFound.
func (s *AuthService) GetUser(id uint) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

func (s *AuthService) exists(lookup func(string) (*models.User, error), value string) (bool, error) {
	_, err := lookup(value)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repositories.ErrNotFound):
		return false, nil
	default:
		return false, apperr.Persistence("Could not look up user", err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
