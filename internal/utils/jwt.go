package utils // package utils provides helpers for token creation and hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failure classes. ErrTokenExpired means the signature was
// good but the token aged out; ErrTokenInvalid covers malformed input and
// bad signatures, which the auth gate treats as tamper-suspected.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenPair bundles the access and refresh tokens minted for a user.
// The access token encodes only the user id and lives minutes; the
// refresh token additionally encodes the email and lives days. The two
// are signed with distinct secrets.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RefreshClaims are the claims decoded from a refresh token.
type RefreshClaims struct {
	UserID uint64
	Email  string
}

// GenerateTokens mints a fresh access+refresh pair for the user.
func GenerateTokens(accessSecret, refreshSecret string, userID uint64, email string, accessTTLMin, refreshTTLDays int) (TokenPair, error) {
	now := time.Now().UTC()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(userID, 10),
		"exp": now.Add(time.Duration(accessTTLMin) * time.Minute).Unix(),
		"iat": now.Unix(),
	})
	accessStr, err := access.SignedString([]byte(accessSecret))
	if err != nil {
		return TokenPair{}, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatUint(userID, 10),
		"email": email,
		"exp":   now.Add(time.Duration(refreshTTLDays) * 24 * time.Hour).Unix(),
		"iat":   now.Unix(),
	})
	refreshStr, err := refresh.SignedString([]byte(refreshSecret))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessStr, RefreshToken: refreshStr}, nil
}

// VerifyAccess validates an access token and returns the user id it
// encodes. Expired tokens return ErrTokenExpired so the caller can run
// the refresh cycle; everything else returns ErrTokenInvalid.
func VerifyAccess(secret, raw string) (uint64, error) {
	claims, err := parse(secret, raw)
	if err != nil {
		return 0, err
	}
	return subject(claims)
}

// VerifyRefresh validates a refresh token and returns its claims.
func VerifyRefresh(secret, raw string) (RefreshClaims, error) {
	claims, err := parse(secret, raw)
	if err != nil {
		return RefreshClaims{}, err
	}
	id, err := subject(claims)
	if err != nil {
		return RefreshClaims{}, err
	}
	email, _ := claims["email"].(string)
	return RefreshClaims{UserID: id, Email: email}, nil
}

func parse(secret, raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func subject(claims jwt.MapClaims) (uint64, error) {
	switch v := claims["sub"].(type) {
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, nil
		}
	case float64:
		return uint64(v), nil
	}
	return 0, ErrTokenInvalid
}
