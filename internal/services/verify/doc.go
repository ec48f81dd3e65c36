// Package verify handles out-of-band fingerprint verification: constant-time
// comparison, optional biometric gating, and the FAILED-on-mismatch rule.
package verify
