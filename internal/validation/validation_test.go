package validation

import (
	"testing"

	"propverse/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string   `json:"email" validate:"omitempty,email"`
	Phone    string   `json:"phone" validate:"required_without=Email"`
	Password string   `json:"password" validate:"required,min=6"`
	Kind     string   `json:"user_type" validate:"omitempty,oneof=tenant owner agent"`
	Moved    string   `json:"moved_on" validate:"omitempty,datetime=2006-01-02"`
	Rent     *float64 `json:"rent" validate:"omitnil,gt=0"`
	Photos   []string `json:"photos" validate:"dive,required"`
}

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, "Validation failed", appErr.Message)
	return appErr.Fields
}

func TestStructValid(t *testing.T) {
	rent := 100.0
	err := New().Struct(signup{Email: "a@b.co", Password: "secret1", Kind: "owner", Moved: "2024-01-31", Rent: &rent, Photos: []string{"/x.jpg"}})
	assert.NoError(t, err)
}

func TestStructMessages(t *testing.T) {
	zero := 0.0
	got := fields(t, New().Struct(signup{
		Email:    "nope",
		Password: "123",
		Kind:     "landlord",
		Moved:    "31/01/2024",
		Rent:     &zero,
		Photos:   []string{"/ok.jpg", ""},
	}))

	assert.Equal(t, "Invalid email format", got["email"])
	assert.Equal(t, "password must be at least 6 characters long", got["password"])
	assert.Equal(t, "user_type must be one of: tenant, owner, agent", got["user_type"])
	assert.Equal(t, "moved_on must be a date in YYYY-MM-DD format", got["moved_on"])
	assert.Equal(t, "rent must be greater than 0", got["rent"])
	assert.Equal(t, "photos[1] is required", got["photos[1]"])
	assert.NotContains(t, got, "phone")
}

func TestStructRequiredWithout(t *testing.T) {
	got := fields(t, New().Struct(signup{Password: "secret1"}))
	assert.Equal(t, "phone is required when email is missing", got["phone"])
}

func TestStructNonStruct(t *testing.T) {
	err := New().Struct(42)
	assert.Error(t, err)
	assert.False(t, apperr.Is(err, apperr.KindValidation))
}
