package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid marks a malformed or wrongly signed session token.
var ErrTokenInvalid = errors.New("invalid token")

// ErrTokenExpired marks a well-formed session token past its expiry.
var ErrTokenExpired = errors.New("token expired")

// TokenClaims is the verified content of a session token.
type TokenClaims struct {
	UserID   string
	IssuedAt time.Time
}

// IssueToken produces a signed HS256 bearer token encoding the user id and
// issuance time, expiring after ttl.
func IssueToken(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyToken validates the signature and expiry of a session token and
// returns its claims. Expiry is reported as ErrTokenExpired; every other
// failure as ErrTokenInvalid.
func VerifyToken(tokenString string, secret []byte) (TokenClaims, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrTokenExpired
		}
		return TokenClaims{}, ErrTokenInvalid
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" || claims.IssuedAt == nil {
		return TokenClaims{}, ErrTokenInvalid
	}
	return TokenClaims{
		UserID:   claims.Subject,
		IssuedAt: claims.IssuedAt.Time,
	}, nil
}
