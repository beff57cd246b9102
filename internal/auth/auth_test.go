package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/ecoverify/ecoverify-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService("test-secret", time.Hour)
	require.NoError(t, err)
	return service
}

func testAccount() *models.Account {
	return &models.Account{
		ID:          primitive.NewObjectID(),
		Email:       "ops@acme.test",
		CompanyName: "acme",
	}
}

func TestNewService(t *testing.T) {
	service, err := NewService("secret", 0)
	assert.NoError(t, err)
	assert.Equal(t, 24*time.Hour, service.tokenExp)

	_, err = NewService("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestService_HashAndCheckPassword(t *testing.T) {
	service := newTestService(t)

	hash, err := service.HashPassword("testpassword123")
	assert.NoError(t, err)
	assert.NotEqual(t, "testpassword123", hash)

	assert.True(t, service.CheckPassword("testpassword123", hash))
	assert.False(t, service.CheckPassword("wrongpassword", hash))
}

func TestService_ValidateToken(t *testing.T) {
	service := newTestService(t)
	account := testAccount()

	token, err := service.GenerateToken(account)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, account.ID.Hex(), claims.AccountID)
	assert.Equal(t, account.Email, claims.Email)
	assert.Equal(t, account.CompanyName, claims.Company)

	now := time.Now().Unix()
	assert.Greater(t, claims.Exp, now)
	assert.LessOrEqual(t, claims.Exp, now+int64(time.Hour.Seconds())+1)

	// Bearer prefix is tolerated
	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)

	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_WrongSecret(t *testing.T) {
	token, err := newTestService(t).GenerateToken(testAccount())
	require.NoError(t, err)

	other, _ := NewService("another-secret", time.Hour)
	_, err = other.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	service := newTestService(t)
	claims := jwt.MapClaims{
		"account_id": "id",
		"email":      "ops@acme.test",
		"company":    "acme",
		"exp":        time.Now().Add(-time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ValidateToken_MissingCompany(t *testing.T) {
	service := newTestService(t)
	claims := jwt.MapClaims{
		"account_id": "id",
		"email":      "ops@acme.test",
		"exp":        time.Now().Add(time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := newTestService(t)

	extracted, err := service.ExtractTokenFromHeader("Bearer valid-token")
	assert.NoError(t, err)
	assert.Equal(t, "valid-token", extracted)

	for _, header := range []string{"", "InvalidFormat", "Bearer ", "Basic abc"} {
		_, err = service.ExtractTokenFromHeader(header)
		assert.Equal(t, ErrInvalidToken, err, header)
	}
}

func TestService_Validators(t *testing.T) {
	service := newTestService(t)

	assert.NoError(t, service.ValidatePassword("validpassword123"))
	assert.ErrorContains(t, service.ValidatePassword("short"), "at least 8 characters")

	assert.NoError(t, service.ValidateEmail("test@example.com"))
	for _, email := range []string{"testexample.com", "test@", "test", "@example.com"} {
		assert.ErrorContains(t, service.ValidateEmail(email), "invalid email format", email)
	}

	assert.NoError(t, service.ValidateCompanyName("acme"))
	assert.ErrorContains(t, service.ValidateCompanyName(" a "), "at least 2 characters")
	assert.ErrorContains(t, service.ValidateCompanyName(strings.Repeat("a", 101)), "less than 100 characters")
}
