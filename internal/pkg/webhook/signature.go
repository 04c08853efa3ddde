package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Signature verification failures are distinct conditions so the controller
// can log them apart; all of them map to HTTP 401.
var (
	ErrMissingSignature   = errors.New("webhook: missing signature header")
	ErrMalformedSignature = errors.New("webhook: malformed signature encoding")
	ErrMissingSecret      = errors.New("webhook: webhook secret not configured")
	ErrSignatureMismatch  = errors.New("webhook: signature mismatch")
)

// VerifySignature authenticates the raw, unparsed request body against the
// shared secret. The payload must be the exact bytes received on the wire;
// reparsing and reserializing JSON changes the byte layout and invalidates
// the signature. Comparison is constant-time.
func VerifySignature(payload []byte, signatureHeader, webhookSecret string) error {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return ErrMissingSecret
	}
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" {
		return ErrMissingSignature
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return ErrMalformedSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), decodedSig) {
		return ErrSignatureMismatch
	}
	return nil
}

// SignPayload computes the hex-encoded HMAC-SHA256 signature for a payload.
// The provider does this on their side; we only need it for tests and for
// local replay tooling.
func SignPayload(payload []byte, webhookSecret string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
