package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const safetyNumberBytes = 20

// SafetyNumber derives the human-comparable session fingerprint from the
// handshake secret and a conversation label that both parties compute
// identically. The output is uppercase hex in 4-character groups, e.g.
// "3FA0 91C2 ...".
func SafetyNumber(secret []byte, label string) string {
	r := hkdf.New(sha256.New, secret, []byte(label), []byte("cloak-fingerprint"))
	buf := make([]byte, safetyNumberBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		// HKDF over SHA-256 cannot fail for this output length.
		panic(err)
	}
	return groupHex(strings.ToUpper(hex.EncodeToString(buf)))
}

// IdentityFingerprint returns a short hex fingerprint of a public key, used
// for identity keys rather than sessions.
func IdentityFingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

// NormalizeFingerprint strips grouping whitespace and upcases, so users can
// paste fingerprints with or without the display formatting.
func NormalizeFingerprint(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

func groupHex(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}
