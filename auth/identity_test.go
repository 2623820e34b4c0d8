// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTokenProvider(t *testing.T) {
	p := NewTokenProvider("salt")
	issued, token := p.Issue("  Ana ")
	if issued.ID == "" {
		t.Fatal("Issue() returned empty identity")
	}
	if issued.DisplayName != "Ana" {
		t.Errorf("Issue() display name = %q, want Ana", issued.DisplayName)
	}

	tests := []struct {
		name    string
		setup   func(r *http.Request)
		wantID  string
		wantErr error
	}{
		{
			name:   "header token",
			setup:  func(r *http.Request) { r.Header.Set(IdentityTokenHeader, token) },
			wantID: issued.ID,
		},
		{
			name:   "cookie token",
			setup:  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: IdentityCookie, Value: token}) },
			wantID: issued.ID,
		},
		{
			name:    "no token",
			setup:   func(r *http.Request) {},
			wantErr: ErrNoIdentity,
		},
		{
			name:    "token signed with another salt",
			setup:   func(r *http.Request) { r.Header.Set(IdentityTokenHeader, SignIdentity(issued.ID, "other")) },
			wantErr: ErrBadSignature,
		},
		{
			name:    "garbage token",
			setup:   func(r *http.Request) { r.Header.Set(IdentityTokenHeader, "garbage") },
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			tt.setup(r)

			id, err := p.Resolve(r)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if id.ID != tt.wantID {
				t.Errorf("Resolve() id = %q, want %q", id.ID, tt.wantID)
			}
		})
	}

	// Each issue is a fresh identity
	other, _ := p.Issue("")
	if other.ID == issued.ID {
		t.Error("Issue() reused an identity")
	}
}

func TestHeaderProvider(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		setup    map[string]string
		wantID   string
		wantName string
		wantErr  bool
	}{
		{"default header", "", map[string]string{"X-User-ID": "alice"}, "alice", "", false},
		{"custom header", "X-Forwarded-User", map[string]string{"X-Forwarded-User": " bob "}, "bob", "", false},
		{"display name header", "", map[string]string{"X-User-ID": "carol", DisplayNameHeader: "Carol"}, "carol", "Carol", false},
		{"long display name is truncated", "", map[string]string{"X-User-ID": "dan", DisplayNameHeader: strings.Repeat("d", 80)}, "dan", strings.Repeat("d", 50), false},
		{"missing header", "", map[string]string{}, "", "", true},
		{"blank header", "", map[string]string{"X-User-ID": "   "}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewHeaderProvider(tt.header)
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.setup {
				r.Header.Set(k, v)
			}

			id, err := p.Resolve(r)
			if tt.wantErr {
				if !errors.Is(err, ErrNoIdentity) {
					t.Errorf("Resolve() error = %v, want ErrNoIdentity", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if id.ID != tt.wantID || id.DisplayName != tt.wantName {
				t.Errorf("Resolve() = %+v, want id %q name %q", id, tt.wantID, tt.wantName)
			}
		})
	}
}
