package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	valid, err := m.Generate("user-1", "stage@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	expired, err := NewJWTManager("test-secret", -time.Minute).Generate("user-1", "")
	if err != nil {
		t.Fatal(err)
	}
	otherSecret, err := NewJWTManager("other-secret", time.Hour).Generate("user-1", "")
	if err != nil {
		t.Fatal(err)
	}
	subjectOnly, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-2",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "user-3"}).
		SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		token    string
		wantUser string
		wantErr  bool
	}{
		{name: "valid", token: valid, wantUser: "user-1"},
		{name: "subject fallback", token: subjectOnly, wantUser: "user-2"},
		{name: "expired", token: expired, wantErr: true},
		{name: "wrong secret", token: otherSecret, wantErr: true},
		{name: "no expiry", token: noExpiry, wantErr: true},
		{name: "garbage", token: "not-a-token", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := m.Validate(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if claims.UserID != tt.wantUser {
				t.Errorf("UserID = %q, want %q", claims.UserID, tt.wantUser)
			}
		})
	}
}
