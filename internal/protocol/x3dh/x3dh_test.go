package x3dh_test

import (
	"bytes"
	"errors"
	"testing"

	"cloak/internal/crypto"
	"cloak/internal/domain"
	"cloak/internal/protocol/x3dh"
)

func makeIdentity(t *testing.T) domain.Identity {
	t.Helper()
	id, err := crypto.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	return id
}

func makeBundle(t *testing.T, bob domain.Identity, withOPK bool) (domain.PreKeyBundle, domain.X25519Private, *domain.X25519Private) {
	t.Helper()
	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bundle := domain.PreKeyBundle{
		Identity:              domain.RemoteIdentity("bob"),
		IdentityKey:           bob.XPub,
		SigningKey:            bob.EdPub,
		SignedPreKeyID:        domain.SignedPreKeyID("spk-test"),
		SignedPreKey:          spkPub,
		SignedPreKeySignature: crypto.SignEd25519(bob.EdPriv, spkPub.Slice()),
	}

	var opkPriv *domain.X25519Private
	if withOPK {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			t.Fatalf("GenerateX25519 (opk): %v", err)
		}
		bundle.OneTimePreKeys = []domain.OneTimePreKeyPublic{
			{ID: domain.OneTimePreKeyID("opk-1"), Pub: pub},
		}
		opkPriv = &priv
	}
	return bundle, spkPriv, opkPriv
}

func TestRootAgreement_NoOneTimePreKey(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, spkPriv, _ := makeBundle(t, bob, false)

	rootA, spkID, opkID, ephPub, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if spkID != bundle.SignedPreKeyID {
		t.Fatalf("signed pre-key id %q, want %q", spkID, bundle.SignedPreKeyID)
	}
	if opkID != "" {
		t.Fatalf("one-time pre-key id %q, want empty", opkID)
	}

	pm := domain.PreKeyMessage{
		InitiatorIdentityKey: alice.XPub,
		EphemeralKey:         ephPub,
		SignedPreKeyID:       spkID,
	}
	rootB, err := x3dh.ResponderRoot(bob, spkPriv, nil, pm)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if !bytes.Equal(rootA, rootB) {
		t.Fatal("root keys differ (no OPK)")
	}
}

func TestRootAgreement_WithOneTimePreKey(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, spkPriv, opkPriv := makeBundle(t, bob, true)

	rootA, spkID, opkID, ephPub, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if opkID != domain.OneTimePreKeyID("opk-1") {
		t.Fatalf("one-time pre-key id %q, want opk-1", opkID)
	}

	pm := domain.PreKeyMessage{
		InitiatorIdentityKey: alice.XPub,
		EphemeralKey:         ephPub,
		SignedPreKeyID:       spkID,
		OneTimePreKeyID:      opkID,
	}
	rootB, err := x3dh.ResponderRoot(bob, spkPriv, opkPriv, pm)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if !bytes.Equal(rootA, rootB) {
		t.Fatal("root keys differ (with OPK)")
	}
}

func TestBadSignedPreKeySignature(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, _, _ := makeBundle(t, bob, false)
	bundle.SignedPreKeySignature[0] ^= 0xFF

	if _, _, _, _, err := x3dh.InitiatorRoot(alice, bundle); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}
}

func TestRootsDifferAcrossHandshakes(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, _, _ := makeBundle(t, bob, false)

	rootOne, _, _, _, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	rootTwo, _, _, _, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if bytes.Equal(rootOne, rootTwo) {
		t.Fatal("two handshakes derived the same root key")
	}
}
