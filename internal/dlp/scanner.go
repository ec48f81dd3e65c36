package dlp

import (
	"context"

	"go.uber.org/zap"

	"cloak/internal/domain"
)

// Config tunes the decision policy.
type Config struct {
	// ConfirmOnWarn suspends sends with WARN-tier hits on an explicit user
	// decision instead of applying the suggested action silently.
	ConfirmOnWarn bool

	// WarnFallback is suggested when a WARN-tier category has no sanitizer.
	// Defaults to FORCE_ENCRYPT.
	WarnFallback domain.ScanAction
}

// Scanner classifies outbound plaintext against the configured category
// matchers. A Scanner is immutable after construction and safe for
// concurrent use.
type Scanner struct {
	log      *zap.Logger
	cfg      Config
	matchers []Matcher
}

// New returns a Scanner with the default category set.
func New(log *zap.Logger, cfg Config) *Scanner {
	return NewWithMatchers(log, cfg, DefaultMatchers())
}

// NewWithMatchers returns a Scanner with an explicit matcher set.
func NewWithMatchers(log *zap.Logger, cfg Config, matchers []Matcher) *Scanner {
	if cfg.WarnFallback == "" {
		cfg.WarnFallback = domain.ActionForceEncrypt
	}
	return &Scanner{log: log, cfg: cfg, matchers: matchers}
}

// Scan classifies text and returns a decision. Scan never fails: a panic in
// any matcher is recovered and the decision fails OPEN with a recorded
// warning, so messaging is never blocked by scanner trouble. The fail-open
// is still visible to the pipeline for auditing.
func (s *Scanner) Scan(ctx context.Context, text string, sctx domain.ScanContext) (dec domain.ScanDecision) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("content scan failed open",
				zap.Any("panic", r),
				zap.String("conversation", sctx.Conversation.String()))
			dec = domain.ScanDecision{
				Allowed:         true,
				SuggestedAction: domain.ActionProceed,
				Warnings:        []string{"scan_unavailable"},
			}
		}
	}()

	working := text
	var violations []domain.Violation
	blocked := false
	redactable := false

	for _, m := range s.matchers {
		count := 0
		working = m.Pattern.ReplaceAllStringFunc(working, func(match string) string {
			if m.Validate != nil && !m.Validate(match) {
				return match
			}
			count++
			if m.Redactable {
				return "[REDACTED:" + string(m.Category) + "]"
			}
			return match
		})
		if count == 0 {
			continue
		}
		violations = append(violations, domain.Violation{Category: m.Category, MatchCount: count})
		if m.Tier == TierBlock {
			blocked = true
		}
		if m.Redactable {
			redactable = true
		}
	}

	switch {
	case blocked:
		dec = domain.ScanDecision{
			Allowed:          false,
			Violations:       violations,
			SuggestedAction:  domain.ActionBlock,
			SanitizedContent: working,
		}
		s.log.Warn("content blocked by policy",
			zap.String("conversation", sctx.Conversation.String()),
			zap.Int("categories", len(violations)))
	case len(violations) > 0:
		action := s.cfg.WarnFallback
		if redactable {
			action = domain.ActionRedact
		}
		dec = domain.ScanDecision{
			Allowed:              true,
			Violations:           violations,
			SuggestedAction:      action,
			SanitizedContent:     working,
			RequiresConfirmation: s.cfg.ConfirmOnWarn,
		}
	default:
		dec = domain.ScanDecision{Allowed: true, SuggestedAction: domain.ActionProceed}
	}
	return dec
}

// Compile-time assertion that Scanner implements domain.Scanner.
var _ domain.Scanner = (*Scanner)(nil)
