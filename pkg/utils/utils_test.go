package utils

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSignedStateRoundTrip(t *testing.T) {
	subject := uuid.New().String()
	state, err := CreateSignedState(subject, "secret")
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParseSignedState(state, "secret")
	if err != nil {
		t.Fatalf("ParseSignedState: %v", err)
	}
	if got != subject {
		t.Errorf("subject = %q, want %q", got, subject)
	}
}

func TestParseSignedStateRejects(t *testing.T) {
	valid, _ := CreateSignedState("admin", "secret")
	parts := strings.Split(valid, ".")

	old := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	expiredData := parts[0] + ".admin." + old
	expired := expiredData + "." + signState(expiredData, "secret")

	tests := []struct {
		name    string
		state   string
		secret  string
		wantErr error
	}{
		{"wrong secret", valid, "other", ErrBadSignature},
		{"tampered subject", parts[0] + ".root." + parts[2] + "." + parts[3], "secret", ErrBadSignature},
		{"too few parts", "a.b", "secret", ErrInvalidState},
		{"bad timestamp", parts[0] + ".admin.xyz." + parts[3], "secret", ErrInvalidState},
		{"expired", expired, "secret", ErrStateExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSignedState(tt.state, tt.secret); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	id := AdminUserID("admin")
	token, err := GenerateToken(id, "admin", RoleAdmin, "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	user, err := ValidateTokenStringToUUID("Bearer "+token, "secret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if user.ID != id || !user.IsAdmin() || user.Username != "admin" {
		t.Errorf("user = %+v", user)
	}

	if _, err := ValidateTokenStringToUUID(token, "wrong"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: err = %v", err)
	}

	expired, _ := GenerateToken(id, "admin", RoleAdmin, "secret", -time.Minute)
	if _, err := ValidateTokenStringToUUID(expired, "secret"); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expired: err = %v", err)
	}

	if _, err := ValidateTokenStringToUUID("", "secret"); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty: err = %v", err)
	}
}

func TestAdminUserIDIsStable(t *testing.T) {
	if AdminUserID("admin") != AdminUserID("admin") {
		t.Error("admin id should be deterministic")
	}
	if AdminUserID("admin") == AdminUserID("other") {
		t.Error("different usernames should map to different ids")
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	if got := ExtractTokenFromHeader("Bearer abc"); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := ExtractTokenFromHeader("Basic abc"); got != "" {
		t.Errorf("got %q", got)
	}
}
