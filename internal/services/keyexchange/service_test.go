package keyexchange_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cloak/internal/crypto"
	"cloak/internal/domain"
	"cloak/internal/protocol/ratchet"
	"cloak/internal/services/keyexchange"
	"cloak/internal/store"
	"cloak/internal/transport"
)

const testPassphrase = "pw"

type party struct {
	name     domain.RemoteIdentity
	ids      *store.MemoryIdentityStore
	prekeys  *store.MemoryPreKeyStore
	sessions *store.MemorySessionStore
	svc      *keyexchange.Service
}

// newParty creates an identity and wires a key-exchange service over hub.
func newParty(t *testing.T, hub *transport.MemoryHub, name string) *party {
	t.Helper()
	p := &party{
		name:     domain.RemoteIdentity(name),
		ids:      store.NewMemoryIdentityStore(),
		prekeys:  store.NewMemoryPreKeyStore(),
		sessions: store.NewMemorySessionStore(),
	}
	id, err := crypto.NewIdentity()
	require.NoError(t, err)
	require.NoError(t, p.ids.SaveIdentity(testPassphrase, id))
	p.svc = keyexchange.New(p.ids, p.prekeys, p.sessions, hub, zap.NewNop())
	return p
}

// publishBundle registers the party's pre-key bundle on hub and returns it.
func publishBundle(t *testing.T, hub *transport.MemoryHub, p *party, opkCount int) domain.PreKeyBundle {
	t.Helper()
	id, err := p.ids.LoadIdentity(testPassphrase)
	require.NoError(t, err)

	spkPriv, spkPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	spkID := domain.SignedPreKeyID("spk-" + string(p.name))
	sig := crypto.SignEd25519(id.EdPriv, spkPub.Slice())
	require.NoError(t, p.prekeys.SaveSignedPreKey(spkID, spkPriv, spkPub, sig))
	require.NoError(t, p.prekeys.SetCurrentSignedPreKeyID(spkID))

	var publics []domain.OneTimePreKeyPublic
	var pairs []domain.OneTimePreKeyPair
	for i := 0; i < opkCount; i++ {
		priv, pub, err := crypto.GenerateX25519()
		require.NoError(t, err)
		opkID := domain.OneTimePreKeyID("opk-" + string(rune('a'+i)))
		pairs = append(pairs, domain.OneTimePreKeyPair{ID: opkID, Priv: priv, Pub: pub})
		publics = append(publics, domain.OneTimePreKeyPublic{ID: opkID, Pub: pub})
	}
	require.NoError(t, p.prekeys.SaveOneTimePreKeys(pairs))

	bundle := domain.PreKeyBundle{
		Identity:              p.name,
		IdentityKey:           id.XPub,
		SigningKey:            id.EdPub,
		SignedPreKeyID:        spkID,
		SignedPreKey:          spkPub,
		SignedPreKeySignature: sig,
		OneTimePreKeys:        publics,
	}
	require.NoError(t, hub.RegisterPreKeyBundle(context.Background(), bundle))
	return bundle
}

// firstEnvelope encrypts plaintext on the freshly initiated record and
// packages it as the first wire envelope.
func firstEnvelope(t *testing.T, record *domain.SessionRecord, from domain.RemoteIdentity, plaintext string) domain.EncryptedEnvelope {
	t.Helper()
	header, ct, err := ratchet.Encrypt(&record.Ratchet, nil, []byte(plaintext))
	require.NoError(t, err)
	return domain.EncryptedEnvelope{
		From:         from,
		To:           record.Remote,
		Conversation: record.Conversation,
		Header:       header,
		Cipher:       ct,
		PreKey:       record.PendingPreKey,
	}
}

func TestInitiateAndRespond(t *testing.T) {
	ctx := context.Background()
	hub := transport.NewMemoryHub()
	alice := newParty(t, hub, "alice")
	bob := newParty(t, hub, "bob")
	publishBundle(t, hub, bob, 2)

	record, err := alice.svc.Initiate(ctx, testPassphrase, alice.name, bob.name)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEstablished, record.Status)
	assert.NotEmpty(t, record.Fingerprint)
	require.NotNil(t, record.PendingPreKey)
	assert.NotEmpty(t, record.PendingPreKey.OneTimePreKeyID)

	env := firstEnvelope(t, &record, alice.name, "hello bob")
	bobRecord, err := bob.svc.Respond(ctx, testPassphrase, bob.name, env)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEstablished, bobRecord.Status)

	// Both parties display the same safety number.
	assert.Equal(t, record.Fingerprint, bobRecord.Fingerprint)

	// The derived chains agree: bob can read the first message.
	pt, err := ratchet.Decrypt(&bobRecord.Ratchet, nil, env.Header, env.Cipher)
	require.NoError(t, err)
	assert.Equal(t, "hello bob", string(pt))

	// The consumed one-time pre-key is gone.
	_, _, ok, err := bob.prekeys.ConsumeOneTimePreKey(env.PreKey.OneTimePreKeyID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInitiateWithoutOneTimePreKeys(t *testing.T) {
	ctx := context.Background()
	hub := transport.NewMemoryHub()
	alice := newParty(t, hub, "alice")
	bob := newParty(t, hub, "bob")
	publishBundle(t, hub, bob, 0)

	record, err := alice.svc.Initiate(ctx, testPassphrase, alice.name, bob.name)
	require.NoError(t, err)
	require.NotNil(t, record.PendingPreKey)
	assert.Empty(t, record.PendingPreKey.OneTimePreKeyID)

	env := firstEnvelope(t, &record, alice.name, "no opk")
	bobRecord, err := bob.svc.Respond(ctx, testPassphrase, bob.name, env)
	require.NoError(t, err)
	assert.Equal(t, record.Fingerprint, bobRecord.Fingerprint)
}

func TestInitiateMissingBundle(t *testing.T) {
	ctx := context.Background()
	hub := transport.NewMemoryHub()
	alice := newParty(t, hub, "alice")

	_, err := alice.svc.Initiate(ctx, testPassphrase, alice.name, "nobody")
	require.ErrorIs(t, err, domain.ErrNoPreKeyBundle)

	record, ok, err := alice.sessions.LoadSession(domain.ConversationID("nobody"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, record.Status)
	assert.Equal(t, "NoPreKeyBundle", record.FailureReason)
}

func TestInitiateBadSignature(t *testing.T) {
	ctx := context.Background()
	hub := transport.NewMemoryHub()
	alice := newParty(t, hub, "alice")
	bob := newParty(t, hub, "bob")
	bundle := publishBundle(t, hub, bob, 1)

	bundle.SignedPreKeySignature[0] ^= 0xFF
	require.NoError(t, hub.RegisterPreKeyBundle(ctx, bundle))

	_, err := alice.svc.Initiate(ctx, testPassphrase, alice.name, bob.name)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	record, ok, err := alice.sessions.LoadSession(domain.ConversationID("bob"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, record.Status)
	assert.Equal(t, "InvalidSignature", record.FailureReason)
}

func TestInitiateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	hub := transport.NewMemoryHub()
	alice := newParty(t, hub, "alice")
	bob := newParty(t, hub, "bob")
	publishBundle(t, hub, bob, 2)

	first, err := alice.svc.Initiate(ctx, testPassphrase, alice.name, bob.name)
	require.NoError(t, err)
	second, err := alice.svc.Initiate(ctx, testPassphrase, alice.name, bob.name)
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.CreatedUTC, second.CreatedUTC)
}

func TestRespondIsIdempotent(t *testing.T) {
	ctx := context.Background()
	hub := transport.NewMemoryHub()
	alice := newParty(t, hub, "alice")
	bob := newParty(t, hub, "bob")
	publishBundle(t, hub, bob, 1)

	record, err := alice.svc.Initiate(ctx, testPassphrase, alice.name, bob.name)
	require.NoError(t, err)
	env := firstEnvelope(t, &record, alice.name, "x")

	first, err := bob.svc.Respond(ctx, testPassphrase, bob.name, env)
	require.NoError(t, err)
	second, err := bob.svc.Respond(ctx, testPassphrase, bob.name, env)
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}
