// Package identity derives the stable event id used as the dedup key
// across client-side pixels and server-side reports of the same action.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/madarat/beacon/internal/model"
)

// derivedIDLen is the hex length of a content-addressed id.
const derivedIDLen = 32

// Derive returns the event id for e and whether it was randomly
// generated.
//
// A caller-supplied id is used verbatim: the client-side beacon may need
// to report the same id for the receiving platform to deduplicate. With
// no caller id, the id is content-addressed over the event name, the
// occurrence time and the first available identity field (email, phone,
// external id, in that priority order), so two channels reporting the
// same action independently converge on the same id.
//
// With no identity field at all the id is a random UUID and carries no
// cross-channel dedup guarantee.
func Derive(e model.ConversionEvent, n model.NormalizedUserData) (id string, random bool) {
	if e.ID != "" {
		return e.ID, false
	}

	identityField := n.Email
	if identityField == "" {
		identityField = n.Phone
	}
	if identityField == "" {
		identityField = n.ExternalID
	}
	if identityField == "" {
		return uuid.NewString(), true
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", e.Name, e.OccurredAt, identityField)))
	return hex.EncodeToString(sum[:])[:derivedIDLen], false
}
