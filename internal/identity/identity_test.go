package identity

import (
	"testing"

	"github.com/madarat/beacon/internal/model"
)

func event(name string, at int64) model.ConversionEvent {
	return model.ConversionEvent{Name: name, OccurredAt: at}
}

func TestDeriveCallerSuppliedIDWinsVerbatim(t *testing.T) {
	e := event("Lead", 1736600000)
	e.ID = "client-beacon-id-42"

	id, random := Derive(e, model.NormalizedUserData{Email: "a@b.com"})
	if id != "client-beacon-id-42" {
		t.Errorf("Derive() = %q, want caller-supplied id verbatim", id)
	}
	if random {
		t.Error("caller-supplied id must not be flagged random")
	}
}

func TestDeriveIsStableAcrossChannels(t *testing.T) {
	n := model.NormalizedUserData{Email: "a@b.com", Phone: "0555123456"}

	id1, _ := Derive(event("Lead", 1736600000), n)
	id2, _ := Derive(event("Lead", 1736600000), n)
	if id1 != id2 {
		t.Errorf("same logical action must yield same id: %q != %q", id1, id2)
	}
	if len(id1) != derivedIDLen {
		t.Errorf("derived id length = %d, want %d", len(id1), derivedIDLen)
	}
}

func TestDeriveDistinguishesActions(t *testing.T) {
	n := model.NormalizedUserData{Email: "a@b.com"}

	base, _ := Derive(event("Lead", 1736600000), n)

	if id, _ := Derive(event("Purchase", 1736600000), n); id == base {
		t.Error("different event name must yield different id")
	}
	if id, _ := Derive(event("Lead", 1736600001), n); id == base {
		t.Error("different event time must yield different id")
	}
	if id, _ := Derive(event("Lead", 1736600000), model.NormalizedUserData{Email: "x@y.com"}); id == base {
		t.Error("different identity field must yield different id")
	}
}

func TestDeriveIdentityFieldPriority(t *testing.T) {
	// Email present: phone must not influence the id.
	withPhone, _ := Derive(event("Lead", 1), model.NormalizedUserData{Email: "a@b.com", Phone: "0555123456"})
	without, _ := Derive(event("Lead", 1), model.NormalizedUserData{Email: "a@b.com"})
	if withPhone != without {
		t.Error("email takes priority; phone must not change the id")
	}

	// No email: phone is used ahead of external id.
	phoneOnly, _ := Derive(event("Lead", 1), model.NormalizedUserData{Phone: "0555123456", ExternalID: "ext-1"})
	phoneNoExt, _ := Derive(event("Lead", 1), model.NormalizedUserData{Phone: "0555123456"})
	if phoneOnly != phoneNoExt {
		t.Error("phone takes priority over external id")
	}
}

func TestDeriveNoIdentityFallsBackToRandom(t *testing.T) {
	id1, random1 := Derive(event("PageView", 1736600000), model.NormalizedUserData{})
	id2, random2 := Derive(event("PageView", 1736600000), model.NormalizedUserData{})

	if !random1 || !random2 {
		t.Error("missing identity fields must produce a random id")
	}
	if id1 == id2 {
		t.Error("random fallback ids must not collide")
	}
}
