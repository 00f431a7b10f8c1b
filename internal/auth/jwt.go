// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package auth verifies the bearer tokens dashboard clients present when
// opening a WebSocket. Tokens are issued by the REST auth service; this
// package only decodes them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/itdash/internal/config"
)

// RefreshScope marks refresh tokens, which are not accepted on the socket.
const RefreshScope = "refresh_token"

var (
	// ErrInvalidToken covers every rejected token: missing, malformed,
	// expired, badly signed or refresh-scoped.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingSubject means the token verified but carries no sub claim.
	ErrMissingSubject = errors.New("token has no subject")
)

// Claims are the claims written by the auth service.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager decodes and, for tests and tooling, issues HMAC-signed tokens.
type JWTManager struct {
	secret []byte
	method jwt.SigningMethod
}

// NewJWTManager builds a manager from the security configuration.
//
//	jwtManager, err := auth.NewJWTManager(&cfg.Security)
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
//	}
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is required but was empty")
	}

	alg := cfg.JWTAlgorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported JWT algorithm %q", alg)
	}

	return &JWTManager{secret: []byte(cfg.JWTSecret), method: method}, nil
}

// GenerateToken signs a token for subject valid for ttl. scope is empty for
// access tokens.
func (m *JWTManager) GenerateToken(subject, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, algorithm and expiry and returns the claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{m.method.Alg()}), jwt.WithExpirationRequired(), jwt.WithLeeway(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	return claims, nil
}

// DecodeToken returns the principal (sub claim) of an access token.
func (m *JWTManager) DecodeToken(tokenString string) (string, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Scope == RefreshScope {
		return "", fmt.Errorf("%w: refresh token", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingSubject)
	}
	return claims.Subject, nil
}
