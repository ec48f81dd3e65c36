package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"cloak/internal/domain"
	"cloak/internal/protocol/ratchet"
)

// Policy configures the outbound gates.
type Policy struct {
	// RequireVerified restricts encryption to VERIFIED sessions; the
	// default also accepts ESTABLISHED ones.
	RequireVerified bool
}

// Service orchestrates scanner -> ratchet -> transport on the outbound path
// and transport -> ratchet -> delivery on the inbound path.
//
// Per-conversation state is serialised behind a mutex keyed by conversation:
// ratchet mutation is not associative, so encrypt/decrypt on one
// conversation must never interleave. Different conversations run freely in
// parallel.
type Service struct {
	me        domain.RemoteIdentity
	sessions  domain.SessionStore
	exchange  domain.KeyExchangeService
	scanner   domain.Scanner
	transport domain.Transport
	policy    Policy
	log       *zap.Logger

	locksMu sync.Mutex
	locks   map[domain.ConversationID]*sync.Mutex

	pendingMu sync.Mutex
	pending   map[domain.ConfirmationToken]pendingSend

	cbMu        sync.RWMutex
	onDecrypted func(domain.DecryptedMessage)
	onFailed    func(domain.Tombstone)
}

// pendingSend is a scan-approved message suspended on user confirmation.
// Nothing has been encrypted yet; cancellation just drops it.
type pendingSend struct {
	conversation domain.ConversationID
	plaintext    string
	decision     domain.ScanDecision
}

// New constructs a message pipeline for the local identity me.
func New(
	me domain.RemoteIdentity,
	sessions domain.SessionStore,
	exchange domain.KeyExchangeService,
	scanner domain.Scanner,
	transport domain.Transport,
	policy Policy,
	log *zap.Logger,
) *Service {
	return &Service{
		me:        me,
		sessions:  sessions,
		exchange:  exchange,
		scanner:   scanner,
		transport: transport,
		policy:    policy,
		log:       log,
		locks:     make(map[domain.ConversationID]*sync.Mutex),
		pending:   make(map[domain.ConfirmationToken]pendingSend),
	}
}

// Send scans plaintext and, policy permitting, encrypts and transmits it.
//
// A BLOCK decision aborts with the violations attached; nothing is sent. A
// decision requiring confirmation suspends the send: the returned receipt
// carries a token the caller must Resolve or Cancel. The suspension has no
// timeout; until resolved, no encryption has occurred.
func (s *Service) Send(ctx context.Context, id domain.ConversationID, plaintext string) (domain.SendReceipt, error) {
	decision := s.scanner.Scan(ctx, plaintext, domain.ScanContext{
		UserID:       s.me.String(),
		Conversation: id,
	})
	for _, w := range decision.Warnings {
		// Fail-open scans still get flagged for audit.
		s.log.Warn("scan warning", zap.String("conversation", id.String()), zap.String("warning", w))
	}

	if !decision.Allowed {
		return domain.SendReceipt{State: domain.SendBlocked, Decision: decision},
			errors.Wrapf(domain.ErrPolicyBlocked, "categories %v", categoryNames(decision))
	}

	if decision.RequiresConfirmation && len(decision.Violations) > 0 {
		token := newToken()
		s.pendingMu.Lock()
		s.pending[token] = pendingSend{conversation: id, plaintext: plaintext, decision: decision}
		s.pendingMu.Unlock()
		return domain.SendReceipt{State: domain.SendAwaitingUser, Decision: decision, Token: token}, nil
	}

	return s.dispatch(ctx, id, applyAction(plaintext, decision, decision.SuggestedAction), decision,
		decision.SuggestedAction == domain.ActionForceEncrypt)
}

// Resolve completes a suspended send with the user's choice: PROCEED sends
// the original text, REDACT the sanitized text, FORCE_ENCRYPT the original
// text only if the session can encrypt.
func (s *Service) Resolve(ctx context.Context, token domain.ConfirmationToken, choice domain.ScanAction) (domain.SendReceipt, error) {
	s.pendingMu.Lock()
	p, ok := s.pending[token]
	if ok {
		delete(s.pending, token)
	}
	s.pendingMu.Unlock()
	if !ok {
		return domain.SendReceipt{}, domain.ErrUnknownToken
	}

	switch choice {
	case domain.ActionProceed, domain.ActionRedact, domain.ActionForceEncrypt:
	default:
		return domain.SendReceipt{}, errors.Errorf("cannot resolve a send with %q", choice)
	}
	return s.dispatch(ctx, p.conversation, applyAction(p.plaintext, p.decision, choice), p.decision,
		choice == domain.ActionForceEncrypt)
}

// Cancel discards a suspended send. The pending scan decision is dropped;
// no partial encryption has occurred.
func (s *Service) Cancel(token domain.ConfirmationToken) error {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if _, ok := s.pending[token]; !ok {
		return domain.ErrUnknownToken
	}
	delete(s.pending, token)
	return nil
}

// dispatch encrypts (or marks plaintext) and transmits. The updated session
// record is persisted before the envelope reaches the transport: durability
// precedes external visibility, so a crash in between can at worst resend
// with a fresh envelope, never replay a consumed message key.
func (s *Service) dispatch(
	ctx context.Context,
	id domain.ConversationID,
	text string,
	decision domain.ScanDecision,
	forceEncrypt bool,
) (domain.SendReceipt, error) {
	unlock := s.lock(id)
	defer unlock()

	record, ok, err := s.sessions.LoadSession(id)
	if err != nil {
		return domain.SendReceipt{}, err
	}
	if !ok {
		return domain.SendReceipt{}, errors.Wrapf(domain.ErrNoSession, "conversation %q", id)
	}

	now := time.Now().Unix()
	env := domain.EncryptedEnvelope{
		From:         s.me,
		To:           record.Remote,
		Conversation: id,
		Timestamp:    now,
	}

	encrypted := false
	if record.CanEncrypt(s.policy.RequireVerified) {
		header, ct, err := ratchet.Encrypt(&record.Ratchet, nil, []byte(text))
		if err != nil {
			if errors.Is(err, domain.ErrCounterExhausted) {
				s.log.Error("send counter exhausted; session must be renegotiated",
					zap.String("conversation", id.String()))
			}
			return domain.SendReceipt{}, err
		}
		env.Header = header
		env.Cipher = ct
		env.PreKey = record.PendingPreKey
		encrypted = true
	} else if forceEncrypt {
		return domain.SendReceipt{State: domain.SendBlocked, Decision: decision},
			errors.Wrapf(domain.ErrPolicyBlocked,
				"force-encrypt requested but session %q is %s", id, record.Status)
	} else {
		env.Unencrypted = true
		env.Cipher = []byte(text)
		s.log.Warn("sending without encryption",
			zap.String("conversation", id.String()),
			zap.String("status", string(record.Status)))
	}

	record.UpdatedUTC = now
	if err := s.sessions.SaveSession(record); err != nil {
		return domain.SendReceipt{}, errors.Wrap(err, "persist session before send")
	}

	if err := s.transport.SendEnvelope(ctx, env); err != nil {
		// Ratchet state is already durable; the caller may retry, which
		// produces a fresh envelope with the next message key.
		return domain.SendReceipt{}, errors.Wrap(err, "transport send")
	}

	if encrypted && record.PendingPreKey != nil {
		record.PendingPreKey = nil
		if err := s.sessions.SaveSession(record); err != nil {
			s.log.Error("clearing pending pre-key", zap.Error(err))
		}
	}

	return domain.SendReceipt{State: domain.SendCompleted, Encrypted: encrypted, Decision: decision}, nil
}

// Receive fetches queued envelopes, decrypts them in order and acks exactly
// the processed prefix. A tombstone counts as processed: the failure is
// delivered visibly rather than leaving the envelope queued forever.
func (s *Service) Receive(ctx context.Context, passphrase string, limit int) ([]domain.DecryptedMessage, error) {
	envs, err := s.transport.FetchEnvelopes(ctx, s.me, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DecryptedMessage, 0, len(envs))
	processed := 0
	var failed error
	for _, env := range envs {
		msg, tomb, err := s.handleEnvelope(ctx, passphrase, env)
		if err != nil {
			// Storage-level trouble: leave this and later envelopes queued.
			failed = err
			break
		}
		processed++
		if tomb != nil {
			s.emitFailed(*tomb)
			continue
		}
		out = append(out, *msg)
		s.emitDecrypted(*msg)
	}

	if processed > 0 {
		if err := s.transport.AckEnvelopes(ctx, s.me, processed); err != nil {
			return out, errors.Wrapf(err, "ack %d envelopes", processed)
		}
	}
	return out, failed
}

// handleEnvelope decrypts one envelope under the conversation lock. A
// decryption failure returns a tombstone and leaves session state untouched
// (the ratchet commits only on success); an error return means persistence
// trouble and stops the batch.
func (s *Service) handleEnvelope(ctx context.Context, passphrase string, env domain.EncryptedEnvelope) (*domain.DecryptedMessage, *domain.Tombstone, error) {
	conv := domain.ConversationID(env.From.String())
	unlock := s.lock(conv)
	defer unlock()

	if env.Unencrypted {
		msg := domain.DecryptedMessage{
			From:         env.From,
			Conversation: conv,
			Plaintext:    env.Cipher,
			Encrypted:    false,
			Timestamp:    env.Timestamp,
		}
		return &msg, nil, nil
	}

	record, ok, err := s.sessions.LoadSession(conv)
	if err != nil {
		return nil, nil, err
	}
	if !ok || !record.Status.Secure() {
		record, err = s.exchange.Respond(ctx, passphrase, s.me, env)
		if err != nil {
			s.log.Warn("inbound session bootstrap failed",
				zap.String("conversation", conv.String()), zap.Error(err))
			return nil, &domain.Tombstone{
				From:         env.From,
				Conversation: conv,
				Reason:       "session_bootstrap_failed",
				Timestamp:    env.Timestamp,
			}, nil
		}
	}

	pt, err := ratchet.Decrypt(&record.Ratchet, nil, env.Header, env.Cipher)
	if err != nil {
		reason := "decryption_failed"
		if errors.Is(err, domain.ErrAuthenticationFailure) {
			reason = "authentication_failure"
		}
		s.log.Warn("envelope rejected",
			zap.String("conversation", conv.String()),
			zap.String("reason", reason))
		return nil, &domain.Tombstone{
			From:         env.From,
			Conversation: conv,
			Reason:       reason,
			Timestamp:    env.Timestamp,
		}, nil
	}

	record.UpdatedUTC = time.Now().Unix()
	if err := s.sessions.SaveSession(record); err != nil {
		return nil, nil, errors.Wrap(err, "persist session after decrypt")
	}

	msg := domain.DecryptedMessage{
		From:         env.From,
		Conversation: conv,
		Plaintext:    pt,
		Encrypted:    true,
		Timestamp:    env.Timestamp,
	}
	return &msg, nil, nil
}

// OnMessageDecrypted registers the delivery callback for decrypted messages.
func (s *Service) OnMessageDecrypted(fn func(domain.DecryptedMessage)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onDecrypted = fn
}

// OnDecryptionFailed registers the callback for tombstones.
func (s *Service) OnDecryptionFailed(fn func(domain.Tombstone)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onFailed = fn
}

func (s *Service) emitDecrypted(msg domain.DecryptedMessage) {
	s.cbMu.RLock()
	fn := s.onDecrypted
	s.cbMu.RUnlock()
	if fn != nil {
		fn(msg)
	}
}

func (s *Service) emitFailed(t domain.Tombstone) {
	s.cbMu.RLock()
	fn := s.onFailed
	s.cbMu.RUnlock()
	if fn != nil {
		fn(t)
	}
}

// lock returns the unlock func for the conversation's mutex, creating it on
// first use.
func (s *Service) lock(id domain.ConversationID) func() {
	s.locksMu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

func applyAction(plaintext string, decision domain.ScanDecision, choice domain.ScanAction) string {
	if choice == domain.ActionRedact && decision.SanitizedContent != "" {
		return decision.SanitizedContent
	}
	return plaintext
}

func categoryNames(decision domain.ScanDecision) []string {
	out := make([]string, 0, len(decision.Violations))
	for _, v := range decision.Violations {
		out = append(out, string(v.Category))
	}
	return out
}

func newToken() domain.ConfirmationToken {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return domain.ConfirmationToken(hex.EncodeToString(b[:]))
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
