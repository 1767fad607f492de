package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-workspace/api/models"
)

const testSecret = "auth_test_secret_0123456789abcdef"

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)
	assert.True(t, CheckPasswordHash("correct horse battery", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, CheckPasswordHash("anything", "not-a-bcrypt-hash"))
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("user-42", testSecret, time.Minute)
	require.NoError(t, err)

	userID, err := ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestValidateJWTFailures(t *testing.T) {
	expired, err := GenerateJWT("user-42", testSecret, -time.Minute)
	require.NoError(t, err)
	good, err := GenerateJWT("user-42", testSecret, time.Minute)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, models.CustomClaims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	foreignToken, err := foreign.SignedString([]byte(testSecret))
	require.NoError(t, err)

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, models.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	anonymousToken, err := anonymous.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
		want   error
	}{
		{"garbage", "not.a.token", testSecret, ErrTokenMalformed},
		{"expired", expired, testSecret, ErrTokenExpired},
		{"wrong secret", good, "another_secret_value", ErrTokenInvalid},
		{"wrong issuer", foreignToken, testSecret, ErrTokenInvalid},
		{"no user id", anonymousToken, testSecret, ErrTokenClaimsInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateJWT(tt.token, tt.secret)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
