package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// CodeLength is the exact length of an access code.
const CodeLength = 6

// NormalizeCode trims surrounding whitespace and upper-cases the code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CodeLengthError is returned when a normalized code is not CodeLength long.
type CodeLengthError struct {
	Length int
}

func (e *CodeLengthError) Error() string {
	return fmt.Sprintf("access code must be exactly %d characters (got %d)", CodeLength, e.Length)
}

// ValidateCode normalizes a code and checks its length.
func ValidateCode(code string) (string, error) {
	normalized := NormalizeCode(code)
	if n := utf8.RuneCountInString(normalized); n != CodeLength {
		return normalized, &CodeLengthError{Length: n}
	}
	return normalized, nil
}
