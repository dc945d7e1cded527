package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345"

func TestGenerateAccessToken(t *testing.T) {
	gymID := uuid.New()

	t.Run("Successfully generate access token", func(t *testing.T) {
		token, err := GenerateAccessToken("staff-1", gymID, "desk@example.com", RoleStaff, testSecret)

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("Fail with empty secret", func(t *testing.T) {
		token, err := GenerateAccessToken("staff-1", gymID, "desk@example.com", RoleStaff, "")

		assert.Equal(t, ErrEmptyJWTSecret, err)
		assert.Empty(t, token)
	})

	t.Run("Fail without gym", func(t *testing.T) {
		token, err := GenerateAccessToken("staff-1", uuid.Nil, "desk@example.com", RoleStaff, testSecret)

		assert.Equal(t, ErrMissingGym, err)
		assert.Empty(t, token)
	})

	t.Run("Token contains correct claims", func(t *testing.T) {
		token, err := GenerateAccessToken("owner", gymID, "owner@example.com", RoleAdmin, testSecret)
		require.NoError(t, err)

		claims, err := ValidateToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, gymID, claims.GymID)
		assert.Equal(t, "owner", claims.Subject)
		assert.Equal(t, "owner@example.com", claims.Email)
		assert.Equal(t, RoleAdmin, claims.Role)
		assert.Equal(t, "access", claims.TokenType)
		assert.Equal(t, jwtIssuer, claims.Issuer)
		assert.Contains(t, claims.Audience, jwtAudience)
	})

	t.Run("Access token expires after TTL", func(t *testing.T) {
		token, err := GenerateAccessToken("owner", gymID, "", RoleAdmin, testSecret)
		require.NoError(t, err)

		claims, err := ValidateToken(token, testSecret)
		require.NoError(t, err)

		diff := claims.ExpiresAt.Time.Sub(time.Now().Add(AccessTokenTTL)).Abs()
		assert.Less(t, diff, 2*time.Second)
	})
}

func signClaims(t *testing.T, claims *JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestValidateToken(t *testing.T) {
	gymID := uuid.New()

	t.Run("Fail with empty secret", func(t *testing.T) {
		token, _ := GenerateAccessToken("a", gymID, "", RoleAdmin, testSecret)

		claims, err := ValidateToken(token, "")
		assert.Equal(t, ErrEmptyJWTSecret, err)
		assert.Nil(t, claims)
	})

	t.Run("Fail with wrong secret", func(t *testing.T) {
		token, _ := GenerateAccessToken("a", gymID, "", RoleAdmin, testSecret)

		claims, err := ValidateToken(token, "wrong-secret")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("Fail with invalid token format", func(t *testing.T) {
		claims, err := ValidateToken("invalid.token.format", testSecret)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("Fail with expired token", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		token := signClaims(t, &JWTClaims{
			GymID:     gymID,
			Role:      RoleAdmin,
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{jwtAudience},
				ExpiresAt: jwt.NewNumericDate(past),
				IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
			},
		})

		claims, err := ValidateToken(token, testSecret)
		assert.Equal(t, ErrTokenExpired, err)
		assert.Nil(t, claims)
	})

	t.Run("Fail when gym claim is missing", func(t *testing.T) {
		token := signClaims(t, &JWTClaims{
			Role:      RoleAdmin,
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{jwtAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		claims, err := ValidateToken(token, testSecret)
		assert.Equal(t, ErrMissingGym, err)
		assert.Nil(t, claims)
	})

	t.Run("Fail with foreign audience", func(t *testing.T) {
		token := signClaims(t, &JWTClaims{
			GymID:     gymID,
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{"someone-else"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		_, err := ValidateToken(token, testSecret)
		assert.Error(t, err)
	})
}
