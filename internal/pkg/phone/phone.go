// internal/pkg/phone/phone.go
package phone

import "strings"

// Normalize canonicalizes a phone number into a digit-only,
// country-code-prefixed form. It is total: any input yields a best-effort
// digit string and never panics. Gateway JID suffixes (number@s.whatsapp.net,
// number@lid) and device suffixes (number:17) are stripped before digit
// extraction. Local Indonesian numbers (0xxx, bare 8xx) are completed with
// the 62 country code.
func Normalize(raw string) string {
	s := raw

	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if digits == "" {
		return digits
	}

	if digits[0] == '0' {
		return "62" + digits[1:]
	}
	if digits[0] == '8' && len(digits) >= 9 && len(digits) <= 13 {
		return "62" + digits
	}
	return digits
}

// Equal reports whether two raw phone strings identify the same counterparty.
// Numbers are equal when their normalized forms match, or when one is the
// other under a leading 0 <-> 62 substitution. Directory entries stored in
// the local convention still have to match inbound international numbers.
// This is the single comparison predicate for the whole service; nothing
// else may reimplement the alternation.
func Equal(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return na == nb && na != ""
	}
	if na == nb {
		return true
	}
	return alternate(na) == nb || na == alternate(nb)
}

// Variants returns the storage forms a number may appear under: the
// normalized form plus its 0/62 alternate. Used for lookups against columns
// written in either convention.
func Variants(raw string) []string {
	n := Normalize(raw)
	if n == "" {
		return nil
	}
	if alt := alternate(n); alt != n {
		return []string{n, alt}
	}
	return []string{n}
}

// alternate flips the leading 62 prefix to 0 and vice versa.
func alternate(n string) string {
	if strings.HasPrefix(n, "62") {
		return "0" + n[2:]
	}
	if strings.HasPrefix(n, "0") {
		return "62" + n[1:]
	}
	return n
}

// opaquePrefixes are reserved gateway ranges that never belong to dialable
// numbers once they reach 14 digits.
var opaquePrefixes = []string{"3", "44", "5", "7", "9"}

// LooksLikeOpaqueID reports whether a normalized number is almost certainly
// an internal gateway identifier rather than a dialable phone number. Such
// numbers are unsafe to display or to match against the staff directory.
func LooksLikeOpaqueID(normalized string) bool {
	n := len(normalized)
	if n == 0 {
		return false
	}
	if n >= 16 {
		return true
	}
	if n >= 14 {
		for _, p := range opaquePrefixes {
			if strings.HasPrefix(normalized, p) {
				return true
			}
		}
	}
	if strings.HasPrefix(normalized, "62") && n > 14 {
		return true
	}
	if strings.HasPrefix(normalized, "1") && n > 11 && !strings.HasPrefix(normalized, "1800") {
		return true
	}
	return false
}
