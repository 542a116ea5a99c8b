package coupon

// CodeLength is the exact number of alphanumeric characters in a canonical code.
const CodeLength = 6

// Code is a normalized coupon code. The zero value is not a valid code.
type Code struct {
	value string
}

// NewCode normalizes raw into a canonical code.
//
// Every character outside [A-Za-z0-9] is removed and the remainder must be
// exactly CodeLength characters long. Order and case are preserved, so
// "abc123" and "ABC123" are different codes.
//
//	NewCode("A-B_C@1#2$3") // "ABC123"
//	NewCode("ABC12")       // ErrInvalidCode
func NewCode(raw string) (Code, error) {
	if raw == "" {
		return Code{}, newValidationError("code", "code must not be empty", ErrInvalidCode)
	}

	cleaned := stripNonAlphanumeric(raw)
	if len(cleaned) != CodeLength {
		return Code{}, newValidationError("code", "code must be exactly 6 alphanumeric characters", ErrInvalidCode)
	}

	return Code{value: cleaned}, nil
}

// String returns the canonical value.
func (c Code) String() string {
	return c.value
}

func stripNonAlphanumeric(raw string) string {
	buf := make([]byte, 0, len(raw))
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			buf = append(buf, byte(r))
		}
	}
	return string(buf)
}
