package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func TestVerifyRoundTrip(t *testing.T) {
	token, err := IssueAccessToken(testSecret, "alice@relay.local", time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	principal, err := NewVerifier(testSecret).Verify(token, KindAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if principal.Email != "alice@relay.local" {
		t.Errorf("principal email = %q, want alice@relay.local", principal.Email)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	token, err := IssueAccessToken(testSecret, "alice@relay.local", -time.Minute)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	if _, err := NewVerifier(testSecret).Verify(token, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyMalformedToken(t *testing.T) {
	verifier := NewVerifier(testSecret)
	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := verifier.Verify(token, KindAccess); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _ := IssueAccessToken("other-secret", "alice@relay.local", time.Hour)
	if _, err := NewVerifier(testSecret).Verify(token, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyWrongKind(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":        "alice@relay.local",
		"token_type": "refresh",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	if _, err := NewVerifier(testSecret).Verify(token, KindAccess); !errors.Is(err, ErrWrongKind) {
		t.Errorf("Verify error = %v, want ErrWrongKind", err)
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"token_type": "access",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	if _, err := NewVerifier(testSecret).Verify(token, KindAccess); !errors.Is(err, ErrMissingClaims) {
		t.Errorf("Verify error = %v, want ErrMissingClaims", err)
	}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
