package access

import (
	"testing"
	"time"

	"fitnexo/internal/clock"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRIssuer_RoundTrip(t *testing.T) {
	issued := time.Date(2025, time.January, 2, 8, 0, 0, 0, time.UTC)
	issuer, err := NewQRIssuer("qr-secret", clock.Fixed(issued))
	require.NoError(t, err)

	gymID, memberID := uuid.New(), uuid.New()
	code, err := issuer.Issue(gymID, memberID)
	require.NoError(t, err)

	// A year later the code still verifies.
	later, err := NewQRIssuer("qr-secret", clock.Fixed(issued.AddDate(1, 0, 0)))
	require.NoError(t, err)

	claims, err := later.Parse(code)
	require.NoError(t, err)
	assert.Equal(t, gymID, claims.GymID)
	assert.Equal(t, memberID, claims.MemberID)
	assert.Equal(t, issued, claims.IssuedAt.Time.UTC())
}

func TestQRIssuer_Rejects(t *testing.T) {
	issuer, err := NewQRIssuer("qr-secret", clock.Fixed(testNow))
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &QRClaims{
		MemberID:         uuid.New(),
		GymID:            uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{Issuer: qrIssuer},
	})
	noneCode, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	withoutMember := jwt.NewWithClaims(jwt.SigningMethodHS256, &QRClaims{
		GymID:            uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{Issuer: qrIssuer},
	})
	noMemberCode, err := withoutMember.SignedString([]byte("qr-secret"))
	require.NoError(t, err)

	staffToken := jwt.NewWithClaims(jwt.SigningMethodHS256, &QRClaims{
		MemberID:         uuid.New(),
		GymID:            uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "fitnexo-api"},
	})
	staffCode, err := staffToken.SignedString([]byte("qr-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":        "not-a-code",
		"alg none":       noneCode,
		"missing member": noMemberCode,
		"wrong issuer":   staffCode,
	}

	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Parse(code)
			assert.ErrorIs(t, err, ErrInvalidQR)
		})
	}
}

func TestNewQRIssuer_EmptySecret(t *testing.T) {
	_, err := NewQRIssuer("", clock.Fixed(testNow))
	assert.ErrorIs(t, err, ErrEmptyQRSecret)
}
