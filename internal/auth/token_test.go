package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("s3cret", "rooms-idp")

	tok, err := v.Sign(model.Actor{UserID: "u-1", IsAdmin: true}, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	actor, err := v.Actor(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if actor.UserID != "u-1" || !actor.IsAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestVerifier_RejectsForeignSecretAndIssuer(t *testing.T) {
	tok, _ := NewVerifier("other", "rooms-idp").Sign(model.Actor{UserID: "u-1"}, time.Now(), time.Hour)
	if _, err := NewVerifier("s3cret", "rooms-idp").Actor(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}

	tok, _ = NewVerifier("s3cret", "someone-else").Sign(model.Actor{UserID: "u-1"}, time.Now(), time.Hour)
	if _, err := NewVerifier("s3cret", "rooms-idp").Actor(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}

func TestVerifier_Expiry(t *testing.T) {
	v := NewVerifier("s3cret", "")

	stale, _ := v.Sign(model.Actor{UserID: "u-1"}, time.Now().Add(-2*time.Hour), time.Hour)
	if _, err := v.Actor(stale); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	justExpired, _ := v.Sign(model.Actor{UserID: "u-1"}, time.Now().Add(-time.Hour-5*time.Second), time.Hour)
	if _, err := v.Actor(justExpired); err != nil {
		t.Fatalf("token inside leeway rejected: %v", err)
	}
}

func TestVerifier_RequiresSubject(t *testing.T) {
	v := NewVerifier("s3cret", "")
	tok, _ := v.Sign(model.Actor{}, time.Now(), time.Hour)
	if _, err := v.Actor(tok); !errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
}
