// Package auth issues and verifies the JWT access/refresh pairs and checks
// credentials. Refresh tokens are single use: their ids live in a Registry
// until they are redeemed, revoked or expire.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

const issuer = "alias"

type Claims struct {
	TokenType TokenType `json:"type"`
	jwt.RegisteredClaims
}

// UserID is the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokens(secret string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (t *Tokens) RefreshTTL() time.Duration {
	return t.refreshTTL
}

// Pair issues a new access/refresh pair for userID. The returned claims are
// those of the refresh token, whose ID must be registered.
func (t *Tokens) Pair(userID string) (TokenPair, *Claims, error) {
	now := time.Now()
	accessExp := now.Add(t.accessTTL)

	access, _, err := t.sign(userID, AccessToken, now, accessExp)
	if err != nil {
		return TokenPair{}, nil, err
	}
	refresh, claims, err := t.sign(userID, RefreshToken, now, now.Add(t.refreshTTL))
	if err != nil {
		return TokenPair{}, nil, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp.Unix(),
	}, claims, nil
}

func (t *Tokens) sign(userID string, typ TokenType, now, exp time.Time) (string, *Claims, error) {
	claims := &Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (t *Tokens) VerifyAccess(token string) (*Claims, error) {
	return t.verify(token, AccessToken)
}

func (t *Tokens) VerifyRefresh(token string) (*Claims, error) {
	return t.verify(token, RefreshToken)
}

func (t *Tokens) verify(token string, want TokenType) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.TokenType != want || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
