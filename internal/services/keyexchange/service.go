package keyexchange

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"cloak/internal/crypto"
	"cloak/internal/domain"
	"cloak/internal/domain/types"
	"cloak/internal/protocol/ratchet"
	"cloak/internal/protocol/x3dh"
	"cloak/internal/util/memzero"
)

// fetchAttempts bounds the internally-timed retry loop for bundle fetches.
// Everything past it surfaces to the caller for explicit retry.
const fetchAttempts = 3

// Service coordinates the X3DH handshake: fetching the peer's pre-key
// bundle, deriving the shared root key, seeding the Double Ratchet and
// persisting the resulting session record.
type Service struct {
	ids       domain.IdentityStore
	prekeys   domain.PreKeyStore
	sessions  domain.SessionStore
	directory domain.Directory
	log       *zap.Logger
}

// New constructs a key-exchange Service.
func New(
	ids domain.IdentityStore,
	prekeys domain.PreKeyStore,
	sessions domain.SessionStore,
	directory domain.Directory,
	log *zap.Logger,
) *Service {
	return &Service{
		ids:       ids,
		prekeys:   prekeys,
		sessions:  sessions,
		directory: directory,
		log:       log,
	}
}

// Initiate establishes a session with remote as the initiator.
//
// Steps:
//  1. Idempotence: an existing ESTABLISHED or VERIFIED session is returned
//     unchanged.
//  2. Persist a KEY_EXCHANGE record so the attempt is observable.
//  3. Fetch the peer's bundle (retried with exponential backoff on
//     transient failures; a missing bundle is permanent).
//  4. Run X3DH as initiator. A bad signed-pre-key signature fails the
//     session; it is never downgraded to an unauthenticated exchange.
//  5. Seed the sending ratchet chain, derive the fingerprint and persist
//     the record as ESTABLISHED.
func (s *Service) Initiate(
	ctx context.Context,
	passphrase string,
	me domain.RemoteIdentity,
	remote domain.RemoteIdentity,
) (domain.SessionRecord, error) {
	conv := domain.ConversationID(remote.String())

	existing, ok, err := s.sessions.LoadSession(conv)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	if ok && existing.Status.Secure() {
		return existing, nil
	}

	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.SessionRecord{}, err
	}

	now := time.Now().Unix()
	record := domain.SessionRecord{
		Conversation: conv,
		Remote:       remote,
		Status:       types.StatusKeyExchange,
		Verification: domain.VerificationRecord{Method: types.VerifyMethodNone},
		CreatedUTC:   now,
		UpdatedUTC:   now,
	}
	if ok {
		record.CreatedUTC = existing.CreatedUTC
	}
	if err := s.sessions.SaveSession(record); err != nil {
		return domain.SessionRecord{}, err
	}

	bundle, err := s.fetchBundle(ctx, remote)
	if err != nil {
		return s.fail(record, "NoPreKeyBundle", err)
	}

	root, spkID, opkID, ephPub, err := x3dh.InitiatorRoot(id, bundle)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			s.log.Warn("signed pre-key signature rejected",
				zap.String("remote", remote.String()))
			return s.fail(record, "InvalidSignature", err)
		}
		return s.fail(record, "KeyAgreement", err)
	}

	state, err := ratchet.InitAsInitiator(root, bundle.IdentityKey)
	if err != nil {
		memzero.Zero(root)
		return s.fail(record, "RatchetInit", err)
	}

	record.Status = types.StatusEstablished
	record.Ratchet = state
	record.PeerIdentityKey = bundle.IdentityKey
	record.PeerSigningKey = bundle.SigningKey
	record.Fingerprint = domain.Fingerprint(crypto.SafetyNumber(root, conversationLabel(me, remote)))
	record.PendingPreKey = &domain.PreKeyMessage{
		InitiatorIdentityKey: id.XPub,
		EphemeralKey:         ephPub,
		SignedPreKeyID:       spkID,
		OneTimePreKeyID:      opkID,
	}
	record.UpdatedUTC = time.Now().Unix()
	memzero.Zero(root)

	if err := s.sessions.SaveSession(record); err != nil {
		return domain.SessionRecord{}, err
	}
	s.log.Info("session established",
		zap.String("conversation", conv.String()),
		zap.String("fingerprint", record.Fingerprint.String()))
	return record, nil
}

// Respond bootstraps our side of a session from the pre-key message on a
// first envelope. Idempotent when a secure session already exists.
func (s *Service) Respond(
	ctx context.Context,
	passphrase string,
	me domain.RemoteIdentity,
	env domain.EncryptedEnvelope,
) (domain.SessionRecord, error) {
	conv := domain.ConversationID(env.From.String())

	existing, ok, err := s.sessions.LoadSession(conv)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	if ok && existing.Status.Secure() {
		return existing, nil
	}

	if env.PreKey == nil || len(env.Header.SenderRatchetKey) != 32 {
		return domain.SessionRecord{}, errors.Wrap(domain.ErrDecryptionFailed,
			"first envelope carries no usable pre-key message")
	}

	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.SessionRecord{}, err
	}

	spkPriv, _, _, okSPK, err := s.prekeys.LoadSignedPreKey(env.PreKey.SignedPreKeyID)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	if !okSPK {
		return domain.SessionRecord{}, errors.Errorf("signed pre-key %q not found", env.PreKey.SignedPreKeyID)
	}

	var opkPriv *domain.X25519Private
	if env.PreKey.OneTimePreKeyID != "" {
		priv, _, okOPK, err := s.prekeys.ConsumeOneTimePreKey(env.PreKey.OneTimePreKeyID)
		if err != nil {
			return domain.SessionRecord{}, err
		}
		if okOPK {
			opkPriv = &priv
		}
	}

	root, err := x3dh.ResponderRoot(id, spkPriv, opkPriv, *env.PreKey)
	if err != nil {
		return domain.SessionRecord{}, errors.Wrap(err, "x3dh responder root")
	}

	var senderPub domain.X25519Public
	copy(senderPub[:], env.Header.SenderRatchetKey)

	state, err := ratchet.InitAsResponder(root, id.XPriv, senderPub)
	if err != nil {
		memzero.Zero(root)
		return domain.SessionRecord{}, err
	}

	now := time.Now().Unix()
	record := domain.SessionRecord{
		Conversation:    conv,
		Remote:          env.From,
		Status:          types.StatusEstablished,
		Ratchet:         state,
		PeerIdentityKey: env.PreKey.InitiatorIdentityKey,
		Fingerprint:     domain.Fingerprint(crypto.SafetyNumber(root, conversationLabel(me, env.From))),
		Verification:    domain.VerificationRecord{Method: types.VerifyMethodNone},
		CreatedUTC:      now,
		UpdatedUTC:      now,
	}
	memzero.Zero(root)

	if err := s.sessions.SaveSession(record); err != nil {
		return domain.SessionRecord{}, err
	}
	s.log.Info("session established as responder",
		zap.String("conversation", conv.String()),
		zap.String("fingerprint", record.Fingerprint.String()))
	return record, nil
}

// GetSession retrieves a stored session record.
func (s *Service) GetSession(id domain.ConversationID) (domain.SessionRecord, bool, error) {
	return s.sessions.LoadSession(id)
}

func (s *Service) fetchBundle(ctx context.Context, remote domain.RemoteIdentity) (domain.PreKeyBundle, error) {
	var bundle domain.PreKeyBundle
	op := func() error {
		b, err := s.directory.FetchPreKeyBundle(ctx, remote)
		if err != nil {
			if errors.Is(err, domain.ErrNoPreKeyBundle) {
				return backoff.Permanent(err)
			}
			return err
		}
		bundle = b
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetchAttempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return domain.PreKeyBundle{}, errors.Wrapf(err, "fetch pre-key bundle for %q", remote)
	}
	return bundle, nil
}

// fail persists the FAILED transition before surfacing the error.
func (s *Service) fail(record domain.SessionRecord, reason string, cause error) (domain.SessionRecord, error) {
	record.Status = types.StatusFailed
	record.FailureReason = reason
	record.UpdatedUTC = time.Now().Unix()
	if err := s.sessions.SaveSession(record); err != nil {
		s.log.Error("persisting failed session", zap.Error(err))
	}
	return domain.SessionRecord{}, cause
}

// conversationLabel is the order-independent label both parties feed into
// the fingerprint KDF so their safety numbers match.
func conversationLabel(a, b domain.RemoteIdentity) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return x + "|" + y
}

// Compile-time assertion that Service implements domain.KeyExchangeService.
var _ domain.KeyExchangeService = (*Service)(nil)
