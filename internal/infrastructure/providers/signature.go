package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw callback body.
const SignatureHeader = "X-Provider-Signature"

var ErrInvalidSignature = errors.New("invalid callback signature")

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(secret string, body []byte, signature string) error {
	got, err := hex.DecodeString(strings.TrimSpace(strings.TrimPrefix(signature, "sha256=")))
	if err != nil || len(got) == 0 {
		return ErrInvalidSignature
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	if !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}
