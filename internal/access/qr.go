package access

import (
	"errors"
	"fmt"

	"fitnexo/internal/clock"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const qrIssuer = "fitnexo-qr"

var ErrEmptyQRSecret = errors.New("qr secret cannot be empty")

// QRClaims is the payload printed in a member's QR code. IssuedAt is
// informational; codes do not expire.
type QRClaims struct {
	MemberID uuid.UUID `json:"member_id"`
	GymID    uuid.UUID `json:"gym_id"`
	jwt.RegisteredClaims
}

type QRIssuer struct {
	secret []byte
	clock  clock.Clock
}

func NewQRIssuer(secret string, clk clock.Clock) (*QRIssuer, error) {
	if secret == "" {
		return nil, ErrEmptyQRSecret
	}
	return &QRIssuer{secret: []byte(secret), clock: clk}, nil
}

func (q *QRIssuer) Issue(gymID, memberID uuid.UUID) (string, error) {
	claims := &QRClaims{
		MemberID: memberID,
		GymID:    gymID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   qrIssuer,
			IssuedAt: jwt.NewNumericDate(q.clock.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(q.secret)
}

// Parse verifies the signature and returns the payload. It does not check
// which gym is scanning.
func (q *QRIssuer) Parse(code string) (*QRClaims, error) {
	token, err := jwt.ParseWithClaims(
		code,
		&QRClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return q.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(qrIssuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(q.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQR, err)
	}

	claims, ok := token.Claims.(*QRClaims)
	if !ok || !token.Valid || claims.MemberID == uuid.Nil || claims.GymID == uuid.Nil {
		return nil, ErrInvalidQR
	}

	return claims, nil
}
