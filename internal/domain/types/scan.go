package types

// ScanAction is what the content scanner suggests doing with a message.
type ScanAction string

const (
	ActionProceed      ScanAction = "PROCEED"
	ActionRedact       ScanAction = "REDACT"
	ActionForceEncrypt ScanAction = "FORCE_ENCRYPT"
	ActionBlock        ScanAction = "BLOCK"
)

// ScanCategory names a sensitive-content class.
type ScanCategory string

const (
	CategoryPaymentCard ScanCategory = "PAYMENT_CARD"
	CategoryNationalID  ScanCategory = "NATIONAL_ID"
	CategoryIBAN        ScanCategory = "IBAN"
	CategoryEmail       ScanCategory = "EMAIL"
	CategoryPhone       ScanCategory = "PHONE"
	CategoryCredential  ScanCategory = "CREDENTIAL"
)

// Violation aggregates matches of one category within a scanned text.
type Violation struct {
	Category   ScanCategory `json:"category"`
	MatchCount int          `json:"match_count"`
}

// ScanContext identifies who is sending and where.
type ScanContext struct {
	UserID       string         `json:"user_id,omitempty"`
	Conversation ConversationID `json:"conversation,omitempty"`
}

// ScanDecision is produced once per outbound message and consumed by the
// pipeline. It is never persisted.
type ScanDecision struct {
	Allowed              bool       `json:"allowed"`
	Violations           []Violation `json:"violations,omitempty"`
	SuggestedAction      ScanAction `json:"suggested_action"`
	SanitizedContent     string     `json:"sanitized_content,omitempty"`
	RequiresConfirmation bool       `json:"requires_confirmation,omitempty"`
	Warnings             []string   `json:"warnings,omitempty"`
}
