// Package auth mints and checks the service tokens exchanged with the
// data-access service and presented to the render server.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrEmptySubject  = errors.New("subject cannot be empty")
	ErrShortSecret   = errors.New("secret must be at least 32 characters")
)

// Claims identifies the service presenting a token
type Claims struct {
	Subject   string    `json:"sub"`
	Scope     string    `json:"scope"`
	ExpiresAt time.Time `json:"exp"`
	IssuedAt  time.Time `json:"iat"`
}

// JWTManager signs and validates HS256 service tokens
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// NewJWTManager creates a new JWT manager.
// Returns an error if the secret is shorter than 32 characters.
func NewJWTManager(secret string, tokenDuration time.Duration) (*JWTManager, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}

	return &JWTManager{
		secretKey:     []byte(secret),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}, nil
}

// TokenDuration returns how long generated tokens stay valid
func (m *JWTManager) TokenDuration() time.Duration { return m.tokenDuration }

// GenerateToken signs a token for subject limited to scope
func (m *JWTManager) GenerateToken(subject, scope string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrEmptySubject
	}

	now := m.now()
	expiresAt := now.Add(m.tokenDuration)

	claims := jwt.MapClaims{
		"sub":   subject,
		"scope": scope,
		"exp":   expiresAt.Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a token and returns its claims
func (m *JWTManager) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claimsMap, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	subject, ok := claimsMap["sub"].(string)
	if !ok || subject == "" {
		return nil, fmt.Errorf("%w: missing or invalid sub", ErrInvalidClaims)
	}
	scope, _ := claimsMap["scope"].(string)

	exp, err := claimsMap.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing or invalid exp", ErrInvalidClaims)
	}
	iat, err := claimsMap.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, fmt.Errorf("%w: missing or invalid iat", ErrInvalidClaims)
	}

	return &Claims{
		Subject:   subject,
		Scope:     scope,
		ExpiresAt: exp.Time,
		IssuedAt:  iat.Time,
	}, nil
}
