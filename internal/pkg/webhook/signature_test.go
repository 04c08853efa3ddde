package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","eventType":"subscription.paid"}`)
	secret := "whsec_top-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	validSig := hex.EncodeToString(mac.Sum(nil))

	if err := VerifySignature(payload, validSig, secret); err != nil {
		t.Fatalf("expected signature to validate, got %v", err)
	}
	if err := VerifySignature(payload, validSig, "other-secret"); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected mismatch with wrong secret, got %v", err)
	}
}

func TestVerifySignature_DistinctFailures(t *testing.T) {
	payload := []byte(`{}`)

	if err := VerifySignature(payload, "abcd", ""); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected missing-secret error, got %v", err)
	}
	if err := VerifySignature(payload, "", "secret"); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected missing-signature error, got %v", err)
	}
	if err := VerifySignature(payload, "not-hex!!", "secret"); !errors.Is(err, ErrMalformedSignature) {
		t.Fatalf("expected malformed-signature error, got %v", err)
	}
}

func TestVerifySignature_SingleBitMutation(t *testing.T) {
	payload := []byte(`{"id":"evt_2","eventType":"checkout.completed","created_at":1700000000000}`)
	secret := "whsec_mutation"
	sig := SignPayload(payload, secret)

	for i := range payload {
		for bit := uint(0); bit < 8; bit++ {
			mutated := append([]byte(nil), payload...)
			mutated[i] ^= 1 << bit
			if err := VerifySignature(mutated, sig, secret); err == nil {
				t.Fatalf("expected mutated payload (byte %d bit %d) to fail verification", i, bit)
			}
		}
	}
}

func TestSignPayloadRoundTrip(t *testing.T) {
	payload := []byte(`{"ok":true}`)
	if err := VerifySignature(payload, SignPayload(payload, "s"), "s"); err != nil {
		t.Fatalf("expected self-signed payload to verify, got %v", err)
	}
}
