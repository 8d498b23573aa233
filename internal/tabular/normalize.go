package tabular

import "strings"

// ── Header Normalizer ──────────────────────────────────────
// Raw column labels from uploads are unreliable: mixed case, units in
// parentheses, currency symbols, stray whitespace. Every label is
// canonicalized once at decode time and the normalized name is used as
// the field key everywhere downstream.

// InvalidHeader is the sentinel used when a label normalizes to nothing.
const InvalidHeader = "_invalid_header_"

// NormalizeHeader canonicalizes a raw column label into a storage-safe
// field name: lowercase, runs of non-alphanumeric characters collapsed
// to a single underscore, leading/trailing underscores stripped.
// Idempotent: NormalizeHeader(NormalizeHeader(s)) == NormalizeHeader(s).
func NormalizeHeader(label string) string {
	if label == InvalidHeader {
		return InvalidHeader
	}

	var b strings.Builder
	b.Grow(len(label))

	pendingSep := false
	for _, r := range strings.ToLower(label) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			if b.Len() > 0 {
				pendingSep = true
			}
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if out == "" {
		return InvalidHeader
	}
	return out
}
