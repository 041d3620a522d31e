package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewVerifier("my-test-secret", "taskhub", time.Hour)

	token, err := v.Issue("owner-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	subject, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if subject != "owner-1" {
		t.Errorf("subject = %q, want owner-1", subject)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	v := NewVerifier("my-test-secret", "taskhub", time.Hour)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "owner-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("my-test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = v.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := NewVerifier("correct-secret", "taskhub", time.Hour)
	token, _ := issuer.Issue("owner-1")

	v := NewVerifier("wrong-secret", "taskhub", time.Hour)
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	v := NewVerifier("my-test-secret", "taskhub", time.Hour)
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestVerify_RejectsNonHMAC(t *testing.T) {
	// alg=none tokens must never verify, regardless of payload.
	claims := jwt.RegisteredClaims{
		Subject:   "owner-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	v := NewVerifier("my-test-secret", "taskhub", time.Hour)
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	v := NewVerifier("my-test-secret", "taskhub", time.Hour)
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("my-test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSubjectContext(t *testing.T) {
	ctx := context.Background()
	if got := Subject(ctx); got != "" {
		t.Errorf("Subject on empty context = %q, want empty", got)
	}
	ctx = WithSubject(ctx, "owner-1")
	if got := Subject(ctx); got != "owner-1" {
		t.Errorf("Subject = %q, want owner-1", got)
	}
}
