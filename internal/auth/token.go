// Package auth verifies the bearer tokens issued by the identity provider
// and turns them into an acting user.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/golang-jwt/jwt/v4"
)

const RoleAdmin = "admin"

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidSubject = errors.New("token has no subject")
)

// Claims carries the subject (user id) and role of the caller.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Verifier checks HS256 tokens against a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewVerifier constructs a Verifier. An empty issuer accepts any issuer.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}
}

// Actor validates tokenStr and returns the caller it identifies.
func (v *Verifier) Actor(tokenStr string) (model.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			if !withinLeeway(claims, v.leeway) {
				return model.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
			}
		} else {
			return model.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else if !token.Valid {
		return model.Actor{}, ErrInvalidToken
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return model.Actor{}, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return model.Actor{}, ErrInvalidSubject
	}

	return model.Actor{UserID: claims.Subject, IsAdmin: claims.Role == RoleAdmin}, nil
}

// Sign issues a token for actor. The service only verifies tokens; Sign
// exists for the token helper command and tests.
func (v *Verifier) Sign(actor model.Actor, now time.Time, ttl time.Duration) (string, error) {
	role := "user"
	if actor.IsAdmin {
		role = RoleAdmin
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// withinLeeway tolerates small clock skew on exp and nbf.
func withinLeeway(c *Claims, leeway time.Duration) bool {
	now := time.Now()
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return false
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return false
	}
	return true
}
