package types

// VerificationMethod records how a fingerprint was confirmed.
type VerificationMethod string

const (
	VerifyMethodNone      VerificationMethod = "NONE"
	VerifyMethodBiometric VerificationMethod = "BIOMETRIC"
	VerifyMethodManual    VerificationMethod = "MANUAL"
)

// VerificationRecord stamps a successful fingerprint comparison.
type VerificationRecord struct {
	Method      VerificationMethod `json:"method"`
	VerifiedUTC int64              `json:"verified_utc,omitempty"`
	Assertion   string             `json:"assertion,omitempty"`
}

// VerificationResult is returned to the caller of a verify attempt.
type VerificationResult struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}
