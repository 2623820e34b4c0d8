// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidToken = errors.New("invalid token format")
	ErrBadSignature = errors.New("invalid token signature")
)

// Uppercase base36
const sessionCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateToken creates a random secure token for upload slots and identities
func GenerateToken() (string, error) {
	b := make([]byte, 24) // 24 bytes = 192 bits of entropy
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	// URL-safe base64 without padding
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// GenerateSessionCode creates a human-shareable code of n uppercase
// alphanumeric characters
func GenerateSessionCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session code: %w", err)
	}
	// 256 % 36 != 0, so reject the biased tail
	out := make([]byte, 0, n)
	for len(out) < n {
		for _, c := range b {
			if c >= 252 {
				continue
			}
			out = append(out, sessionCodeAlphabet[int(c)%len(sessionCodeAlphabet)])
			if len(out) == n {
				break
			}
		}
		if len(out) < n {
			if _, err := rand.Read(b); err != nil {
				return "", fmt.Errorf("failed to generate session code: %w", err)
			}
		}
	}
	return string(out), nil
}

// IsSessionCode reports whether s looks like a session code of length n
func IsSessionCode(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(sessionCodeAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

// NormalizeSessionCode upper-cases and trims user-typed codes
func NormalizeSessionCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// SignIdentity creates an HMAC-signed identity token: "<id>.<signature>"
// This is deterministic and verifiable
func SignIdentity(identityID, salt string) string {
	return identityID + "." + sign(identityID, salt)
}

// VerifyIdentity checks a token produced by SignIdentity and returns its id
func VerifyIdentity(token, salt string) (string, error) {
	id, sig, ok := strings.Cut(token, ".")
	if !ok || id == "" || sig == "" {
		return "", ErrInvalidToken
	}
	expected := sign(id, salt)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", ErrBadSignature
	}
	return id, nil
}

func sign(value, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(value))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}
