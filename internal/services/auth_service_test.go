package services_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"propverse/internal/apperr"
	"propverse/internal/models"
	"propverse/internal/repositories"
	"propverse/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

var notFound = fmt.Errorf("user: %w", repositories.ErrNotFound)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newAuthService(repo *MockUserRepository, now time.Time) *services.AuthService {
	return services.NewAuthService(repo, testJWTSecret, time.Hour, zap.NewNop(),
		services.WithClock(fixedClock(now)),
		services.WithBcryptCost(bcrypt.MinCost))
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func strPtr(s string) *string { return &s }

func TestAuthService_Register(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, now)

	mockRepo.On("GetByEmail", "asha@example.com").Return(nil, notFound).Once()
	mockRepo.On("GetByPhone", "+919800000001").Return(nil, notFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
		args.Get(0).(*models.User).ID = 11
	}).Return(nil).Once()

	user, token, err := authService.Register(services.RegisterInput{
		Email:     " asha@example.com ",
		Phone:     "+919800000001",
		Password:  "secret1",
		FirstName: "Asha",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(11), user.ID)
	assert.Equal(t, "asha@example.com", *user.Email)
	assert.Equal(t, models.UserTypeTenant, user.UserType)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsVerified)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))
	assert.NotEmpty(t, token)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterRejectsDuplicates(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, time.Now())

	// email taken
	mockRepo.On("GetByEmail", "taken@example.com").Return(&models.User{ID: 1}, nil).Once()
	_, _, err := authService.Register(services.RegisterInput{Email: "taken@example.com", Password: "secret1", FirstName: "A"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "User already exists with this email or phone", err.Error())

	// phone taken
	mockRepo.On("GetByEmail", "new@example.com").Return(nil, notFound).Once()
	mockRepo.On("GetByPhone", "555").Return(&models.User{ID: 2}, nil).Once()
	_, _, err = authService.Register(services.RegisterInput{Email: "new@example.com", Phone: "555", Password: "secret1", FirstName: "A"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// lost the race to a concurrent registration
	mockRepo.On("GetByPhone", "556").Return(nil, notFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(fmt.Errorf("insert: %w", repositories.ErrConflict)).Once()
	_, _, err = authService.Register(services.RegisterInput{Phone: "556", Password: "secret1", FirstName: "A"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, time.Now())

	_, _, err := authService.Register(services.RegisterInput{
		Email:    "not-an-email",
		Password: "123",
		UserType: "landlord",
	})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, "Invalid email format", appErr.Fields["email"])
	assert.Contains(t, appErr.Fields, "password")
	assert.Contains(t, appErr.Fields, "first_name")
	assert.Contains(t, appErr.Fields, "user_type")

	_, _, err = authService.Register(services.RegisterInput{Password: "secret1", FirstName: "A"})
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "phone", "email or phone is required")

	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAuthService_RegisterThenLoginRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, now)

	var stored *models.User
	mockRepo.On("GetByEmail", "ravi@example.com").Return(nil, notFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
		stored = args.Get(0).(*models.User)
		stored.ID = 5
	}).Return(nil).Once()

	_, _, err := authService.Register(services.RegisterInput{Email: "ravi@example.com", Password: "hunter22", FirstName: "Ravi", UserType: "owner"})
	require.NoError(t, err)

	mockRepo.On("GetByEmail", "ravi@example.com").Return(stored, nil).Once()
	user, token, err := authService.Login("ravi@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, uint(5), user.ID)

	claims, err := authService.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(5), claims.UserID)
	assert.Equal(t, "ravi@example.com", claims.Email)
	assert.Equal(t, models.UserTypeOwner, claims.UserType)
	assert.Equal(t, now.Unix(), claims.IssuedAt)
	assert.Equal(t, claims.IssuedAt+int64(time.Hour/time.Second), claims.ExpiresAt)
	assert.NotEmpty(t, claims.Id)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, time.Now())

	user := &models.User{ID: 3, Phone: strPtr("+919800000002"), PasswordHash: hashed(t, "password123"), UserType: models.UserTypeTenant, IsActive: true}

	// phone fallback
	mockRepo.On("GetByEmail", "+919800000002").Return(nil, notFound).Once()
	mockRepo.On("GetByPhone", "+919800000002").Return(user, nil).Once()
	got, token, err := authService.Login("+919800000002", "password123")
	require.NoError(t, err)
	assert.Equal(t, user, got)
	assert.NotEmpty(t, token)

	// wrong password
	mockRepo.On("GetByEmail", "+919800000002").Return(nil, notFound).Once()
	mockRepo.On("GetByPhone", "+919800000002").Return(user, nil).Once()
	_, _, wrongPassword := authService.Login("+919800000002", "wrong")
	require.Error(t, wrongPassword)

	// unknown user
	mockRepo.On("GetByEmail", "ghost").Return(nil, notFound).Once()
	mockRepo.On("GetByPhone", "ghost").Return(nil, notFound).Once()
	_, _, unknown := authService.Login("ghost", "password123")
	require.Error(t, unknown)

	assert.ErrorIs(t, wrongPassword, services.ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, services.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknown.Error())
	assert.True(t, apperr.Is(unknown, apperr.KindAuth))

	// storage failure is not reported as bad credentials
	mockRepo.On("GetByEmail", "broken").Return(nil, errors.New("disk on fire")).Once()
	_, _, err = authService.Login("broken", "password123")
	assert.True(t, apperr.Is(err, apperr.KindPersistence))

	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginInactiveAccount(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, time.Now())

	inactive := &models.User{ID: 4, Email: strPtr("gone@example.com"), PasswordHash: hashed(t, "password123"), IsActive: false}
	mockRepo.On("GetByEmail", "gone@example.com").Return(inactive, nil).Twice()

	_, _, err := authService.Login("gone@example.com", "password123")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrAccountInactive)
	assert.NotErrorIs(t, err, services.ErrInvalidCredentials)
	assert.True(t, apperr.Is(err, apperr.KindAuth))

	// the password is checked before the account state is revealed
	_, _, err = authService.Login("gone@example.com", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	mockRepo.AssertExpectations(t)
}

func TestAuthService_VerifyToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, now)

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	claimsAt := func(iat, exp time.Time) services.Claims {
		return services.Claims{UserID: 9, UserType: "tenant", StandardClaims: jwt.StandardClaims{IssuedAt: iat.Unix(), ExpiresAt: exp.Unix()}}
	}

	valid := sign(claimsAt(now, now.Add(time.Minute)), jwt.SigningMethodHS256, []byte(testJWTSecret))
	claims, err := authService.VerifyToken(valid)
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.UserID)

	expired := sign(claimsAt(now.Add(-2*time.Hour), now.Add(-time.Hour)), jwt.SigningMethodHS256, []byte(testJWTSecret))
	_, err = authService.VerifyToken(expired)
	assert.ErrorIs(t, err, services.ErrTokenExpired)

	atExpiry := sign(claimsAt(now.Add(-time.Hour), now), jwt.SigningMethodHS256, []byte(testJWTSecret))
	_, err = authService.VerifyToken(atExpiry)
	assert.ErrorIs(t, err, services.ErrTokenExpired)

	// an expired token signed with another key is invalid, not expired
	foreign := sign(claimsAt(now.Add(-2*time.Hour), now.Add(-time.Hour)), jwt.SigningMethodHS256, []byte("other"))
	_, err = authService.VerifyToken(foreign)
	assert.ErrorIs(t, err, services.ErrTokenInvalid)

	noExp := sign(services.Claims{UserID: 9}, jwt.SigningMethodHS256, []byte(testJWTSecret))
	_, err = authService.VerifyToken(noExp)
	assert.ErrorIs(t, err, services.ErrTokenInvalid)

	noUser := sign(services.Claims{StandardClaims: jwt.StandardClaims{ExpiresAt: now.Add(time.Hour).Unix()}}, jwt.SigningMethodHS256, []byte(testJWTSecret))
	_, err = authService.VerifyToken(noUser)
	assert.ErrorIs(t, err, services.ErrTokenInvalid)

	unsigned := sign(claimsAt(now, now.Add(time.Hour)), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)
	_, err = authService.VerifyToken(unsigned)
	assert.ErrorIs(t, err, services.ErrTokenInvalid)

	_, err = authService.VerifyToken("invalid.token.string")
	assert.ErrorIs(t, err, services.ErrTokenInvalid)
}

func TestAuthService_IssueTokenUsesDefaultTTL(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	authService := services.NewAuthService(new(MockUserRepository), testJWTSecret, 0, zap.NewNop(), services.WithClock(fixedClock(now)))

	token, err := authService.IssueToken(&models.User{ID: 1, UserType: models.UserTypeAgent})
	require.NoError(t, err)

	claims, err := authService.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, now.Add(services.DefaultTokenTTL).Unix(), claims.ExpiresAt)
	assert.Empty(t, claims.Email)
}
