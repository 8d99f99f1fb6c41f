// Package normalize turns free-text company names and account numbers into
// canonical comparison keys so entity resolution is exact-match instead of
// fuzzy. Extraction output varies in formatting ("ABC Corp." vs
// "ABC CORPORATION"); both must map to the same key.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// legalSuffixes are removed as whole words from the end of normalized names.
// Order matters: longer forms are checked before their abbreviations.
var legalSuffixes = []string{
	"CORPORATION",
	"INCORPORATED",
	"L.L.C",
	"LLC",
	"PLLC",
	"INC",
	"CORP",
	"LTD",
	"CO",
}

// CompanyName returns the canonical comparison key for a legal name:
// uppercase, punctuation stripped, whitespace collapsed, legal-entity
// suffixes removed as whole words. Deterministic and total.
func CompanyName(name string) string {
	upper := strings.ToUpper(name)

	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ',' || r == '\'' || r == '"' || r == '&' || r == '-' || r == '/':
			// punctuation noise, dropped
		default:
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	// Remove legal-entity suffixes as whole words; "ABC HOLDINGS CO LLC"
	// and "ABC Holdings" produce the same key.
	kept := words[:0]
	for _, w := range words {
		if !isLegalSuffix(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		// A name that is nothing but suffixes ("LLC") keeps its cleaned form.
		return strings.Join(words, " ")
	}
	return strings.Join(kept, " ")
}

func isLegalSuffix(word string) bool {
	for _, s := range legalSuffixes {
		// Suffix list entries containing dots were already stripped of
		// punctuation above, so compare the cleaned form.
		if word == strings.ReplaceAll(s, ".", "") {
			return true
		}
	}
	return false
}

// AccountNumber strips every non-digit character. Deterministic and total.
func AccountNumber(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AccountHash returns the hex SHA-256 of the normalized account number. This
// is the account's identity key; the plaintext number is never persisted.
func AccountHash(accountNumber string) string {
	sum := sha256.Sum256([]byte(AccountNumber(accountNumber)))
	return hex.EncodeToString(sum[:])
}

// MaskAccountNumber returns the display form: **** plus the last 4 digits of
// the raw input. Shorter inputs are masked in full.
func MaskAccountNumber(accountNumber string) string {
	digits := AccountNumber(accountNumber)
	if len(digits) < 4 {
		return "****"
	}
	return "****" + digits[len(digits)-4:]
}
