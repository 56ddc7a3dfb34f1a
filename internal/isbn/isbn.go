// Package isbn normalizes and validates ISBN-10 and ISBN-13 identifiers.
package isbn

import (
	"strings"
)

// Normalize strips hyphens and spaces and upper-cases a trailing check
// character, so "0-14-044793-x" becomes "014044793X".
func Normalize(isbn string) string {
	normalized := strings.ReplaceAll(isbn, "-", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	return strings.ToUpper(strings.TrimSpace(normalized))
}

// IsValid reports whether isbn (after normalization) is a well-formed
// ISBN-10 or ISBN-13 with a correct check digit.
func IsValid(isbn string) bool {
	n := Normalize(isbn)
	switch len(n) {
	case 10:
		return validISBN10(n)
	case 13:
		return validISBN13(n)
	default:
		return false
	}
}

// ToISBN13 converts a valid ISBN-10 to its 978-prefixed ISBN-13 form.
// ISBN-13 input is returned normalized; anything else yields "".
func ToISBN13(isbn string) string {
	n := Normalize(isbn)
	if len(n) == 13 && validISBN13(n) {
		return n
	}
	if len(n) != 10 || !validISBN10(n) {
		return ""
	}

	body := "978" + n[:9]
	sum := 0
	for i, r := range body {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return body + string(rune('0'+check))
}

func validISBN10(s string) bool {
	sum := 0
	for i, r := range s {
		var d int
		switch {
		case r >= '0' && r <= '9':
			d = int(r - '0')
		case r == 'X' && i == 9:
			d = 10
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	sum := 0
	for i, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}
