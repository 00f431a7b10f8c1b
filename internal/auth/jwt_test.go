// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/itdash/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_with_32_plus_characters"

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, JWTAlgorithm: "HS256"})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *config.SecurityConfig
		wantErr bool
	}{
		{"valid secret", &config.SecurityConfig{JWTSecret: testSecret, JWTAlgorithm: "HS512"}, false},
		{"default algorithm", &config.SecurityConfig{JWTSecret: testSecret}, false},
		{"empty secret", &config.SecurityConfig{JWTAlgorithm: "HS256"}, true},
		{"asymmetric algorithm", &config.SecurityConfig{JWTSecret: testSecret, JWTAlgorithm: "RS256"}, true},
		{"unknown algorithm", &config.SecurityConfig{JWTSecret: testSecret, JWTAlgorithm: "none"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			manager, err := NewJWTManager(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("NewJWTManager() expected error, got nil")
				}
				return
			}
			if err != nil || manager == nil {
				t.Errorf("NewJWTManager() = %v, %v", manager, err)
			}
		})
	}
}

func TestDecodeToken(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	token, err := m.GenerateToken("jdoe", "", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	principal, err := m.DecodeToken(token)
	if err != nil {
		t.Fatalf("DecodeToken() error = %v", err)
	}
	if principal != "jdoe" {
		t.Errorf("principal = %q, want jdoe", principal)
	}
}

func TestDecodeToken_Rejections(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	expired, _ := m.GenerateToken("jdoe", "", -time.Hour)
	refresh, _ := m.GenerateToken("jdoe", RefreshScope, time.Hour)
	noSubject, _ := m.GenerateToken("", "", time.Hour)

	other, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret + "-other"})
	wrongKey, _ := other.GenerateToken("jdoe", "", time.Hour)

	hs384, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, JWTAlgorithm: "HS384"})
	wrongAlg, _ := hs384.GenerateToken("jdoe", "", time.Hour)

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "jdoe",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"empty":      "",
		"garbage":    "not.a.token",
		"expired":    expired,
		"refresh":    refresh,
		"no subject": noSubject,
		"wrong key":  wrongKey,
		"wrong alg":  wrongAlg,
		"alg none":   unsigned,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := m.DecodeToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("DecodeToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
