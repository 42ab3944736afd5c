package phone

import (
	"fmt"
	"strings"
)

// Shape is what Format recognised a raw value as.
type Shape int

const (
	ShapeOther Shape = iota
	ShapeExtension
	ShapeNumber
)

// Format renders a raw phone value for display. Four digits are kept as an
// extension, ten digits (or eleven with a leading 1) become +1 XXX-XXX-XXXX,
// and anything else is returned trimmed but otherwise unchanged.
// This is a pure function.
func Format(raw string) (string, Shape) {
	trimmed := strings.TrimSpace(raw)
	digits, ok := digitsOf(trimmed)
	if !ok {
		return trimmed, ShapeOther
	}
	switch {
	case len(digits) == 4 && digits == trimmed:
		return digits, ShapeExtension
	case len(digits) == 10:
		return display(digits), ShapeNumber
	case len(digits) == 11 && digits[0] == '1':
		return display(digits[1:]), ShapeNumber
	default:
		return trimmed, ShapeOther
	}
}

// Normalize returns the comparison key for a raw value: the bare ten or four
// digits when Format recognises it, else the trimmed input.
func Normalize(raw string) string {
	display, shape := Format(raw)
	switch shape {
	case ShapeNumber:
		digits, _ := digitsOf(display)
		return digits[1:]
	default:
		return display
	}
}

// Same reports whether two raw values denote the same number.
func Same(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

func display(ten string) string {
	return fmt.Sprintf("+1 %s-%s-%s", ten[:3], ten[3:6], ten[6:])
}

// digitsOf strips common separators. It fails on letters or any other
// character that would make the value something other than a plain number.
func digitsOf(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')' || r == '+':
		default:
			return "", false
		}
	}
	return b.String(), b.Len() > 0
}
