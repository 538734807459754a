// Package pii normalizes and hashes user-supplied contact fields before
// they are sent to advertising platforms. Hashing follows the platforms'
// matching specs: SHA-256 over the UTF-8 bytes of the normalized value.
package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/madarat/beacon/internal/model"
)

// Normalize derives the cleaned view of raw user data:
// email lower-cased and trimmed, phone reduced to digits, names trimmed.
// When only a combined name is present it is split on the first space
// boundary. Fields empty after trimming stay absent.
func Normalize(raw model.RawUserData) model.NormalizedUserData {
	n := model.NormalizedUserData{
		Email:      strings.ToLower(strings.TrimSpace(raw.Email)),
		Phone:      Digits(raw.Phone),
		FirstName:  strings.TrimSpace(raw.FirstName),
		LastName:   strings.TrimSpace(raw.LastName),
		ExternalID: strings.TrimSpace(raw.ExternalID),
	}

	if n.FirstName == "" && n.LastName == "" {
		if name := strings.TrimSpace(raw.Name); name != "" {
			first, rest, found := strings.Cut(name, " ")
			n.FirstName = first
			if found {
				n.LastName = strings.TrimSpace(rest)
			}
		}
	}

	return n
}

// Digits strips every non-digit character from s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// Hash returns the hex SHA-256 of the already-normalized value, or ""
// for an absent input. Callers must never hash a placeholder: an absent
// field stays absent downstream.
func Hash(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// HashLower lower-cases and trims before hashing. Used for values that
// skip Normalize, like geo fields on platforms that require hashed geo.
func HashLower(value string) string {
	return Hash(strings.ToLower(strings.TrimSpace(value)))
}

// HashUser maps normalized user data to its hashed view field by field.
// Absent fields map to absent fields.
func HashUser(n model.NormalizedUserData) model.HashedUserData {
	return model.HashedUserData{
		Email:      Hash(n.Email),
		Phone:      Hash(n.Phone),
		FirstName:  HashLower(n.FirstName),
		LastName:   HashLower(n.LastName),
		ExternalID: Hash(n.ExternalID),
	}
}
