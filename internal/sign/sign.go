// Package sign computes integrity signatures for outbound automation
// webhook payloads.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
)

// Mode identifies how a payload was signed.
type Mode string

const (
	// ModeHMAC is the normal mode: HMAC-SHA256 keyed by the webhook secret.
	ModeHMAC Mode = "hmac"
	// ModeChecksum is the degraded mode used when no secret is
	// configured. The receiver treats these payloads as unverified.
	ModeChecksum Mode = "checksum"
)

// Sign computes the signature for payload. Without a secret it degrades
// to a plain checksum instead of failing delivery; callers should log
// the degraded mode.
func Sign(payload []byte, secret string) (signature string, mode Mode) {
	if secret == "" {
		return Checksum(payload), ModeChecksum
	}
	return HMAC(payload, secret), ModeHMAC
}

// HMAC returns the hex HMAC-SHA256 of payload keyed by secret.
func HMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Checksum returns a hex FNV-1a checksum of payload. It detects
// accidental corruption only; it proves nothing about origin.
func Checksum(payload []byte) string {
	h := fnv.New32a()
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature matches the HMAC of payload under
// secret, in constant time.
func Verify(payload []byte, secret, signature string) bool {
	expected := HMAC(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
