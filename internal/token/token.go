package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

// Service mints and verifies the access/refresh pair. Each token class is
// signed with its own secret, so an access secret cannot mint refresh tokens.
// The service itself holds no state beyond the secrets and TTLs.
type Service struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

func NewService(accessSecret, refreshSecret []byte) *Service {
	return &Service{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessExpiry:  AccessTTL,
		RefreshExpiry: RefreshTTL,
	}
}

func (s *Service) Issue(userID uint) (string, string, error) {
	access, err := sign(userID, s.AccessSecret, s.AccessExpiry, "")
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := sign(userID, s.RefreshSecret, s.RefreshExpiry, "refresh")
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}

	return access, refresh, nil
}

// IssueAccess mints a fresh access token only. The refresh endpoint uses it:
// the refresh token itself is left untouched there.
func (s *Service) IssueAccess(userID uint) (string, error) {
	access, err := sign(userID, s.AccessSecret, s.AccessExpiry, "")
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return access, nil
}

func (s *Service) VerifyAccess(raw string) (uint, error) {
	claims, err := parse(raw, s.AccessSecret)
	if err != nil {
		return 0, err
	}
	return subject(claims)
}

func (s *Service) VerifyRefresh(raw string) (uint, error) {
	claims, err := parse(raw, s.RefreshSecret)
	if err != nil {
		return 0, err
	}
	if typ, ok := claims["typ"]; !ok || typ != "refresh" {
		return 0, ErrTokenInvalid
	}
	return subject(claims)
}

func sign(userID uint, secret []byte, ttl time.Duration, typ string) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(ttl).Unix(),
	}
	if typ != "" {
		claims["typ"] = typ
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func parse(raw string, secret []byte) (jwt.MapClaims, error) {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !t.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func subject(claims jwt.MapClaims) (uint, error) {
	id, ok := claims["userId"].(float64)
	if !ok || id <= 0 {
		return 0, ErrTokenInvalid
	}
	return uint(id), nil
}
