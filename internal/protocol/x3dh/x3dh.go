package x3dh

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"cloak/internal/crypto"
	"cloak/internal/domain"
	"cloak/internal/util/memzero"
)

const rootKeyBytes = 32

// InitiatorRoot runs X3DH as the initiator against the peer's published
// bundle. It verifies the signed pre-key signature, consumes one one-time
// pre-key from the bundle when present, and derives the shared root key.
//
// The DH pattern follows Signal's X3DH:
//
//	DH1 = DH(IK_A, SPK_B)
//	DH2 = DH(EK_A, IK_B)
//	DH3 = DH(EK_A, SPK_B)
//	DH4 = DH(EK_A, OPK_B)   (only when an OPK is offered)
func InitiatorRoot(id domain.Identity, bundle domain.PreKeyBundle) (
	root []byte,
	spkID domain.SignedPreKeyID,
	opkID domain.OneTimePreKeyID,
	ephemeralPub domain.X25519Public,
	err error,
) {
	if !crypto.VerifyEd25519(bundle.SigningKey, bundle.SignedPreKey.Slice(), bundle.SignedPreKeySignature) {
		err = domain.ErrInvalidSignature
		return
	}

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return
	}

	dh1, err := crypto.DH(id.XPriv, bundle.SignedPreKey)
	if err != nil {
		return
	}
	dh2, err := crypto.DH(ephPriv, bundle.IdentityKey)
	if err != nil {
		return
	}
	dh3, err := crypto.DH(ephPriv, bundle.SignedPreKey)
	if err != nil {
		return
	}

	concat := make([]byte, 0, 32*4)
	concat = append(concat, dh1[:]...)
	concat = append(concat, dh2[:]...)
	concat = append(concat, dh3[:]...)

	if len(bundle.OneTimePreKeys) > 0 {
		opk := bundle.OneTimePreKeys[0]
		var dh4 [32]byte
		dh4, err = crypto.DH(ephPriv, opk.Pub)
		if err != nil {
			return
		}
		concat = append(concat, dh4[:]...)
		opkID = opk.ID
	}

	root = deriveRoot(concat)
	memzero.Zero(concat)
	memzero.Zero(ephPriv[:])

	return root, bundle.SignedPreKeyID, opkID, ephPub, nil
}

// ResponderRoot recomputes the shared root key from the initiator's pre-key
// message, using our signed pre-key private and the consumed one-time
// pre-key private (nil when the initiator used none).
func ResponderRoot(
	id domain.Identity,
	spkPriv domain.X25519Private,
	opkPriv *domain.X25519Private,
	pm domain.PreKeyMessage,
) ([]byte, error) {
	dh1, err := crypto.DH(spkPriv, pm.InitiatorIdentityKey)
	if err != nil {
		return nil, err
	}
	dh2, err := crypto.DH(id.XPriv, pm.EphemeralKey)
	if err != nil {
		return nil, err
	}
	dh3, err := crypto.DH(spkPriv, pm.EphemeralKey)
	if err != nil {
		return nil, err
	}

	concat := make([]byte, 0, 32*4)
	concat = append(concat, dh1[:]...)
	concat = append(concat, dh2[:]...)
	concat = append(concat, dh3[:]...)

	if opkPriv != nil {
		dh4, err := crypto.DH(*opkPriv, pm.EphemeralKey)
		if err != nil {
			return nil, err
		}
		concat = append(concat, dh4[:]...)
	}

	root := deriveRoot(concat)
	memzero.Zero(concat)
	return root, nil
}

func deriveRoot(concat []byte) []byte {
	r := hkdf.New(sha256.New, concat, nil, []byte("cloak-x3dh"))
	root := make([]byte, rootKeyBytes)
	_, _ = io.ReadFull(r, root)
	return root
}
