package verify

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"cloak/internal/crypto"
	"cloak/internal/domain"
	"cloak/internal/domain/types"
)

// Service compares user-supplied fingerprints against the stored session
// fingerprint and records verification provenance.
type Service struct {
	sessions domain.SessionStore
	auth     domain.Authenticator
	log      *zap.Logger
}

// New constructs a verification Service. auth may be nil when biometric
// verification is not available on this platform.
func New(sessions domain.SessionStore, auth domain.Authenticator, log *zap.Logger) *Service {
	return &Service{sessions: sessions, auth: auth, log: log}
}

// Verify compares fingerprint against the session's stored one in constant
// time.
//
// With method BIOMETRIC the external assertion must succeed first; a denied
// assertion changes no state. A mismatch transitions the session to FAILED
// and returns ErrFingerprintMismatch: it may indicate active interception
// and is surfaced as a security event, never a routine error. A match
// transitions the session to VERIFIED.
func (s *Service) Verify(
	ctx context.Context,
	id domain.ConversationID,
	fingerprint string,
	method domain.VerificationMethod,
) (domain.VerificationResult, error) {
	record, ok, err := s.sessions.LoadSession(id)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	if !ok {
		return domain.VerificationResult{}, errors.Wrapf(domain.ErrNoSession, "conversation %q", id)
	}
	if !record.Status.Secure() {
		return domain.VerificationResult{Verified: false, Reason: "session_not_established"},
			errors.Wrapf(domain.ErrNoSession, "conversation %q is %s", id, record.Status)
	}

	assertion := ""
	if method == types.VerifyMethodBiometric {
		if s.auth == nil {
			return domain.VerificationResult{Verified: false, Reason: "biometric_unavailable"}, nil
		}
		okAuth, err := s.auth.Authenticate(ctx, "Confirm security code for "+id.String())
		if err != nil {
			return domain.VerificationResult{}, errors.Wrap(err, "biometric assertion")
		}
		if !okAuth {
			// Assertion denied: verification does not proceed, no state change.
			return domain.VerificationResult{Verified: false, Reason: "biometric_rejected"}, nil
		}
		assertion = "biometric:" + time.Now().UTC().Format(time.RFC3339)
	}

	supplied := crypto.NormalizeFingerprint(fingerprint)
	stored := crypto.NormalizeFingerprint(record.Fingerprint.String())
	if len(supplied) != len(stored) || subtle.ConstantTimeCompare([]byte(supplied), []byte(stored)) != 1 {
		record.Status = types.StatusFailed
		record.FailureReason = "FingerprintMismatch"
		record.UpdatedUTC = time.Now().Unix()
		if serr := s.sessions.SaveSession(record); serr != nil {
			s.log.Error("persisting failed session", zap.Error(serr))
		}
		s.log.Warn("fingerprint mismatch, possible interception",
			zap.String("conversation", id.String()))
		return domain.VerificationResult{Verified: false, Reason: "mismatch"},
			errors.Wrapf(domain.ErrFingerprintMismatch, "conversation %q", id)
	}

	record.Status = types.StatusVerified
	record.Verification = domain.VerificationRecord{
		Method:      method,
		VerifiedUTC: time.Now().Unix(),
		Assertion:   assertion,
	}
	record.UpdatedUTC = time.Now().Unix()
	if err := s.sessions.SaveSession(record); err != nil {
		return domain.VerificationResult{}, err
	}
	s.log.Info("session verified",
		zap.String("conversation", id.String()),
		zap.String("method", string(method)))
	return domain.VerificationResult{Verified: true}, nil
}

// Compile-time assertion that Service implements domain.VerificationService.
var _ domain.VerificationService = (*Service)(nil)
