// internal/auth/auth.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Annany2002/nebula-workspace/api/models" // Import DTO for CustomClaims
	"github.com/Annany2002/nebula-workspace/internal/logger"
)

var (
	ErrTokenMalformed          = errors.New("malformed token")
	ErrTokenExpired            = errors.New("token is expired or not valid yet")
	ErrTokenInvalid            = errors.New("invalid token")
	ErrTokenClaimsInvalid      = errors.New("invalid token claims")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrUnexpectedSigningMethod = errors.New("unexpected token signing method")
	customLog                  = logger.NewLogger()
)

// Issuer is the iss claim of every token this service signs and accepts.
const Issuer = "nebula-workspace"

// --- Password Utilities ---

// HashPassword generates a bcrypt hash for the given password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		customLog.Warnf("Auth: Error generating bcrypt hash: %v", err)
		// Don't return raw bcrypt error to caller
		return "", fmt.Errorf("failed to hash password")
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	// Log unexpected errors, but return false for mismatch or other errors
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		customLog.Warnf("Auth: Unexpected error comparing password hash: %v", err)
	}
	return err == nil
}

// --- JWT Utilities ---

// GenerateJWT signs an HS256 token carrying userID that expires after ttl.
func GenerateJWT(userID, jwtSecret string, ttl time.Duration) (string, error) {
	now := time.Now()
	// Set custom and standard claims
	claims := models.CustomClaims{ // Using the DTO struct from api/models
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}

	// Create the HS256 token and sign it with our secret key
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		customLog.Warnf("Auth: Error signing JWT for user %s: %v", userID, err)
		return "", fmt.Errorf("failed to generate token") // Generic error
	}
	return signed, nil
}

// ValidateJWT parses and validates a token string, returning the user id it carries.
func ValidateJWT(tokenString, jwtSecret string) (string, error) {
	claims := &models.CustomClaims{} // Use pointer to the DTO struct

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Check the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			customLog.Warnf("Auth: Unexpected signing method: %v", token.Header["alg"])
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedSigningMethod, token.Header["alg"])
		}
		// Return the secret key for validation
		return []byte(jwtSecret), nil
	}, jwt.WithIssuer(Issuer)) // Tokens from other issuers fail with ErrTokenInvalidIssuer

	// Map library errors to our defined errors
	if err != nil {
		customLog.Warnf("Auth: Token parsing error: %v", err)
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return "", ErrTokenExpired
		case errors.Is(err, ErrUnexpectedSigningMethod):
			return "", err
		default:
			return "", ErrTokenInvalid
		}
	}

	// Check if the token and claims are valid overall
	if !token.Valid {
		customLog.Warnf("Auth: Invalid token marked by library")
		return "", ErrTokenInvalid
	}

	// Check if userID is present in claims
	if claims.UserID == "" {
		customLog.Warnf("Auth: UserID missing in token claims")
		return "", ErrTokenClaimsInvalid
	}

	// Token is valid! Return the UserID.
	return claims.UserID, nil
}
