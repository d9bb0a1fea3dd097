package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	jwt.RegisteredClaims
}

// Service signs and verifies access and refresh tokens. Access and
// refresh tokens use independent secrets, so leaking one does not
// grant issuance authority over the other.
type Service struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (s *Service) SignAccessToken(userID uint, email string) (string, time.Time, error) {
	exp := time.Now().Add(s.AccessTTL)
	claims := AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.AccessSecret)
	return signed, exp, err
}

func (s *Service) SignRefreshToken(userID uint) (string, time.Time, error) {
	exp := time.Now().Add(s.RefreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.RefreshSecret)
	return signed, exp, err
}

func (s *Service) ParseAccessToken(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parse(tokenStr, &claims, s.AccessSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (s *Service) ParseRefreshToken(tokenStr string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := parse(tokenStr, &claims, s.RefreshSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !tkn.Valid {
		return ErrInvalidToken
	}
	return nil
}
