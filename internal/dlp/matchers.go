package dlp

import (
	"regexp"
	"strings"

	"cloak/internal/domain"
)

// Tier decides how a category hit is handled: WARN hits stay sendable with a
// suggested remediation, BLOCK hits veto the send outright.
type Tier int

const (
	TierWarn Tier = iota
	TierBlock
)

// Matcher recognises one sensitive-content category. Pattern proposes
// candidate spans; Validate (optional) filters them with a checksum so that
// arbitrary digit runs do not trigger violations.
type Matcher struct {
	Category   domain.ScanCategory
	Tier       Tier
	Pattern    *regexp.Regexp
	Validate   func(match string) bool
	Redactable bool
}

var (
	cardPattern       = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)
	nationalIDPattern = regexp.MustCompile(`\b[1-9]\d{10}\b`)
	ibanPattern       = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{12,30}\b`)
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern      = regexp.MustCompile(`\+\d{10,14}\b|\b0\d{9,10}\b`)
	credentialPattern = regexp.MustCompile(`(?i:\b(?:password|passwd|pwd|secret|token|api[_-]?key)\s*[:=]\s*\S+)|\bAKIA[0-9A-Z]{16}\b|(?i:\bbearer\s+[A-Za-z0-9._\-]{12,})`)
)

// DefaultMatchers returns the fixed, ordered category set. Order matters:
// card numbers must consume long digit runs before the shorter numeric
// matchers see them.
func DefaultMatchers() []Matcher {
	return []Matcher{
		{Category: domain.CategoryCredential, Tier: TierWarn, Pattern: credentialPattern, Redactable: true},
		{Category: domain.CategoryPaymentCard, Tier: TierBlock, Pattern: cardPattern, Validate: luhnValid, Redactable: true},
		{Category: domain.CategoryIBAN, Tier: TierWarn, Pattern: ibanPattern, Validate: ibanValid, Redactable: true},
		{Category: domain.CategoryNationalID, Tier: TierWarn, Pattern: nationalIDPattern, Validate: nationalIDValid, Redactable: true},
		{Category: domain.CategoryEmail, Tier: TierWarn, Pattern: emailPattern, Redactable: true},
		{Category: domain.CategoryPhone, Tier: TierWarn, Pattern: phonePattern, Redactable: true},
	}
}

// luhnValid reports whether the digits in s (separators stripped) form a
// 13-19 digit number passing the Luhn check.
func luhnValid(s string) bool {
	digits := stripSeparators(s)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ibanValid runs the ISO 13616 mod-97 check.
func ibanValid(s string) bool {
	if len(s) < 15 || len(s) > 34 {
		return false
	}
	rearranged := s[4:] + s[:4]
	rem := 0
	for _, r := range rearranged {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		case r >= 'A' && r <= 'Z':
			v = int(r-'A') + 10
		default:
			return false
		}
		if v > 9 {
			rem = (rem*100 + v) % 97
		} else {
			rem = (rem*10 + v) % 97
		}
	}
	return rem == 1
}

// nationalIDValid applies the 11-digit checksum: digit 10 is derived from a
// weighted difference of the first nine, digit 11 is the sum of the first
// ten mod 10.
func nationalIDValid(s string) bool {
	if len(s) != 11 {
		return false
	}
	var d [11]int
	for i := 0; i < 11; i++ {
		d[i] = int(s[i] - '0')
	}
	odd := d[0] + d[2] + d[4] + d[6] + d[8]
	even := d[1] + d[3] + d[5] + d[7]
	c10 := ((odd*7 - even) % 10 + 10) % 10
	if d[9] != c10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		sum += d[i]
	}
	return d[10] == sum%10
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, s)
}
