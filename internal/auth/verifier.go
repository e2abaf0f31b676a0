package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongKind     = errors.New("unexpected token kind")
	ErrMissingClaims = errors.New("token missing required claims")
)

const KindAccess = "access"

// Principal is the identity carried by a verified token. The relay resolves it
// to an account record before admitting the connection.
type Principal struct {
	Email string
}

// Verifier validates HS256 access tokens issued by the auth service.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses the token and checks that it is of the expected kind.
// Expired, malformed, and wrongly-signed tokens all come back as
// ErrInvalidToken; callers treat every failure the same way.
func (v *Verifier) Verify(tokenString, expectedKind string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	kind, _ := claims["token_type"].(string)
	if kind != expectedKind {
		return nil, ErrWrongKind
	}

	email, _ := claims["sub"].(string)
	if email == "" {
		return nil, ErrMissingClaims
	}

	return &Principal{Email: email}, nil
}

// IssueAccessToken signs a short-lived access token for the given email.
// Used by the seed tool and tests; the production issuer lives in the auth
// service.
func IssueAccessToken(secret, email string, expire time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        email,
		"token_type": KindAccess,
		"exp":        time.Now().Add(expire).Unix(),
	})
	return token.SignedString([]byte(secret))
}
