// Package dlp is the outbound content-policy scanner. It runs a fixed
// ordered set of category matchers (payment cards, national IDs, IBANs,
// emails, phone numbers, credential-like tokens) over plaintext before it
// ever reaches the ratchet, and produces an allow/redact/force-encrypt/block
// decision. Scanner trouble fails open with a recorded warning.
package dlp
