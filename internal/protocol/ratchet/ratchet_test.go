package ratchet_test

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"cloak/internal/crypto"
	"cloak/internal/domain"
	"cloak/internal/protocol/ratchet"
)

// makePair returns a fresh X25519 key pair.
func makePair(t *testing.T) (priv domain.X25519Private, pub domain.X25519Public) {
	t.Helper()
	p, P, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	return p, P
}

// makeSession seeds both ends of a ratchet from a simulated X3DH root.
func makeSession(t *testing.T) (alice, bob domain.RatchetState) {
	t.Helper()
	rk := bytes.Repeat([]byte{0x42}, 32)
	bobPriv, bobPub := makePair(t)

	alice, err := ratchet.InitAsInitiator(rk, bobPub)
	if err != nil {
		t.Fatalf("InitAsInitiator: %v", err)
	}
	bob, err = ratchet.InitAsResponder(rk, bobPriv, alice.DHPub)
	if err != nil {
		t.Fatalf("InitAsResponder: %v", err)
	}
	return alice, bob
}

func encrypt(t *testing.T, st *domain.RatchetState, msg string) (domain.RatchetHeader, []byte) {
	t.Helper()
	h, ct, err := ratchet.Encrypt(st, nil, []byte(msg))
	if err != nil {
		t.Fatalf("Encrypt(%q): %v", msg, err)
	}
	return h, ct
}

func decrypt(t *testing.T, st *domain.RatchetState, h domain.RatchetHeader, ct []byte, want string) {
	t.Helper()
	pt, err := ratchet.Decrypt(st, nil, h, ct)
	if err != nil {
		t.Fatalf("Decrypt(%q): %v", want, err)
	}
	if string(pt) != want {
		t.Fatalf("got %q, want %q", pt, want)
	}
}

func TestRoundTripBothDirections(t *testing.T) {
	alice, bob := makeSession(t)

	h1, ct1 := encrypt(t, &alice, "hello bob")
	h2, ct2 := encrypt(t, &alice, "second")
	decrypt(t, &bob, h1, ct1, "hello bob")
	decrypt(t, &bob, h2, ct2, "second")

	// Bob's first send triggers his DH ratchet step.
	h3, ct3 := encrypt(t, &bob, "hello alice")
	decrypt(t, &alice, h3, ct3, "hello alice")

	// And back again, forcing a second turn.
	h4, ct4 := encrypt(t, &alice, "round three")
	decrypt(t, &bob, h4, ct4, "round three")
}

func TestSendCounterAdvancesPerMessage(t *testing.T) {
	alice, _ := makeSession(t)

	h1, ct1 := encrypt(t, &alice, "a")
	h2, ct2 := encrypt(t, &alice, "a")
	if h1.MessageNumber != 0 || h2.MessageNumber != 1 {
		t.Fatalf("message numbers %d, %d; want 0, 1", h1.MessageNumber, h2.MessageNumber)
	}
	if bytes.Equal(ct1, ct2) {
		t.Fatal("same plaintext produced identical ciphertexts")
	}
}

func TestOutOfOrderWithinChain(t *testing.T) {
	alice, bob := makeSession(t)

	h0, ct0 := encrypt(t, &alice, "m0")
	h1, ct1 := encrypt(t, &alice, "m1")
	h2, ct2 := encrypt(t, &alice, "m2")

	decrypt(t, &bob, h0, ct0, "m0")
	decrypt(t, &bob, h2, ct2, "m2")
	if len(bob.Skipped) != 1 {
		t.Fatalf("skipped cache size %d, want 1", len(bob.Skipped))
	}
	decrypt(t, &bob, h1, ct1, "m1")
	if len(bob.Skipped) != 0 {
		t.Fatalf("skipped key not removed after use, cache size %d", len(bob.Skipped))
	}
}

func TestOutOfOrderAcrossRatchetStep(t *testing.T) {
	alice, bob := makeSession(t)

	h0, ct0 := encrypt(t, &alice, "m0")
	decrypt(t, &bob, h0, ct0, "m0")

	// m1 is delayed in transit.
	h1, ct1 := encrypt(t, &alice, "m1")

	hr, ctr := encrypt(t, &bob, "reply")
	decrypt(t, &alice, hr, ctr, "reply")

	// Alice's next message rides a new sending chain; decrypting it makes
	// bob close out the old chain and cache the key for the delayed m1.
	h2, ct2 := encrypt(t, &alice, "m2")
	decrypt(t, &bob, h2, ct2, "m2")
	decrypt(t, &bob, h1, ct1, "m1")
}

func TestReplayRejected(t *testing.T) {
	alice, bob := makeSession(t)

	h, ct := encrypt(t, &alice, "once")
	decrypt(t, &bob, h, ct, "once")

	if _, err := ratchet.Decrypt(&bob, nil, h, ct); !errors.Is(err, domain.ErrAuthenticationFailure) {
		t.Fatalf("replay: got %v, want ErrAuthenticationFailure", err)
	}
}

func TestSkippedKeyIsSingleUse(t *testing.T) {
	alice, bob := makeSession(t)

	h0, ct0 := encrypt(t, &alice, "m0")
	h1, ct1 := encrypt(t, &alice, "m1")
	decrypt(t, &bob, h1, ct1, "m1")
	decrypt(t, &bob, h0, ct0, "m0")

	if _, err := ratchet.Decrypt(&bob, nil, h0, ct0); !errors.Is(err, domain.ErrAuthenticationFailure) {
		t.Fatalf("reused skipped key: got %v, want ErrAuthenticationFailure", err)
	}
}

func TestTamperedCiphertextLeavesStateIntact(t *testing.T) {
	alice, bob := makeSession(t)

	h, ct := encrypt(t, &alice, "payload")
	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 0xFF

	before := bob.Clone()
	if _, err := ratchet.Decrypt(&bob, nil, h, tampered); !errors.Is(err, domain.ErrAuthenticationFailure) {
		t.Fatalf("tampered: got %v, want ErrAuthenticationFailure", err)
	}
	if bob.Nr != before.Nr || !bytes.Equal(bob.RecvCK, before.RecvCK) {
		t.Fatal("failed decrypt mutated receiving chain")
	}

	// The genuine envelope still decrypts.
	decrypt(t, &bob, h, ct, "payload")
}

func TestWrongADRejected(t *testing.T) {
	alice, bob := makeSession(t)

	h, ct, err := ratchet.Encrypt(&alice, []byte("ad-one"), []byte("bound"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := ratchet.Decrypt(&bob, []byte("ad-two"), h, ct); !errors.Is(err, domain.ErrAuthenticationFailure) {
		t.Fatalf("wrong AD: got %v, want ErrAuthenticationFailure", err)
	}
	pt, err := ratchet.Decrypt(&bob, []byte("ad-one"), h, ct)
	if err != nil || string(pt) != "bound" {
		t.Fatalf("correct AD: got %q, %v", pt, err)
	}
}

func TestSkipWindowBound(t *testing.T) {
	alice, bob := makeSession(t)

	h, ct := encrypt(t, &alice, "far ahead")
	h.MessageNumber = ratchet.MaxSkipped + 1
	if _, err := ratchet.Decrypt(&bob, nil, h, ct); !errors.Is(err, domain.ErrSkipWindowExceeded) {
		t.Fatalf("got %v, want ErrSkipWindowExceeded", err)
	}
}

func TestSendCounterExhaustion(t *testing.T) {
	alice, _ := makeSession(t)
	alice.Ns = math.MaxUint32

	if _, _, err := ratchet.Encrypt(&alice, nil, []byte("x")); !errors.Is(err, domain.ErrCounterExhausted) {
		t.Fatalf("got %v, want ErrCounterExhausted", err)
	}
}

func TestMalformedHeaderKey(t *testing.T) {
	alice, bob := makeSession(t)

	h, ct := encrypt(t, &alice, "x")
	h.SenderRatchetKey = h.SenderRatchetKey[:16]
	if _, err := ratchet.Decrypt(&bob, nil, h, ct); !errors.Is(err, domain.ErrDecryptionFailed) {
		t.Fatalf("got %v, want ErrDecryptionFailed", err)
	}
}
