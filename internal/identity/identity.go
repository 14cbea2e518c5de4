// Package identity decides whether two differently-sourced records refer to
// the same counterparty.
package identity

import "strings"

// codeWidth is the zero-pad width applied to numeric partner codes. Import
// feeds drop leading zeroes, so short numeric codes are padded to a common
// width before comparison.
const codeWidth = 4

// Resolve reports whether the two identities refer to the same counterparty.
// Trimmed name equality or normalized code equality is sufficient; a field
// missing on either side never matches. With neither field present on both
// sides the verdict is false.
func Resolve(nameA, codeA, nameB, codeB string) bool {
	nameA = strings.TrimSpace(nameA)
	nameB = strings.TrimSpace(nameB)
	if nameA != "" && nameB != "" && nameA == nameB {
		return true
	}

	codeA = NormalizeCode(codeA)
	codeB = NormalizeCode(codeB)
	if codeA != "" && codeB != "" && codeA == codeB {
		return true
	}

	return false
}

// NormalizeCode trims a partner code and zero-pads digit-only codes to the
// common width. Mixed alphanumeric codes (e.g. "A001") pass through as-is.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if !isDigits(code) {
		return code
	}
	for len(code) < codeWidth {
		code = "0" + code
	}
	return code
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
