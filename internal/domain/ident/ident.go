package ident

import (
	"fmt"
	"strconv"
	"strings"
)

// SafeDigits is the digit count above which a decimal value is guaranteed to
// exceed SafeMax. Used as a cheap pre-check before parsing.
const SafeDigits = 18

// SafeMax is the largest identifier magnitude stored as a machine integer.
// Values beyond it keep their decimal string form end to end. The provider
// emits team and series ids well past int32, and occasionally past int64.
const SafeMax = uint64(1) << 60

// ID is a numeric identifier held in canonical decimal form. It preserves the
// exact token received from the wire, so identifiers too large for an int64
// survive normalize -> write -> read without truncation.
type ID string

// FromInt64 builds an ID from a machine integer.
func FromInt64(v int64) ID {
	if v == 0 {
		return ""
	}
	return ID(strconv.FormatInt(v, 10))
}

// Parse validates and canonicalizes a decimal token. Leading zeros are
// stripped so equal values always compare equal as strings.
func Parse(raw string) (ID, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", nil
	}

	negative := false
	if value[0] == '-' || value[0] == '+' {
		negative = value[0] == '-'
		value = value[1:]
	}
	if value == "" {
		return "", fmt.Errorf("invalid identifier %q", raw)
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return "", fmt.Errorf("invalid identifier %q", raw)
		}
	}

	value = strings.TrimLeft(value, "0")
	if value == "" {
		return "", nil
	}
	if negative {
		return ID("-" + value), nil
	}
	return ID(value), nil
}

func (id ID) String() string { return string(id) }

// IsZero reports whether the identifier is absent or zero.
func (id ID) IsZero() bool { return id == "" }

// Int64 returns the machine-integer form when the value fits.
func (id ID) Int64() (int64, bool) {
	if id == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Overflows reports whether the magnitude exceeds SafeMax.
func (id ID) Overflows() bool {
	if id == "" {
		return false
	}
	digits := string(id)
	if digits[0] == '-' {
		digits = digits[1:]
	}
	if len(digits) > SafeDigits+1 {
		return true
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return true
	}
	return v > SafeMax
}

// UnmarshalJSON accepts either a bare number token or a quoted decimal
// string. The token is captured before any float conversion can lose
// precision.
func (id *ID) UnmarshalJSON(data []byte) error {
	token := strings.TrimSpace(string(data))
	if token == "" || token == "null" {
		*id = ""
		return nil
	}
	if len(token) >= 2 && token[0] == '"' && token[len(token)-1] == '"' {
		token = token[1 : len(token)-1]
	}
	// Fractional tokens show up when the provider serializes an integral
	// value through a float path; only a zero fraction is acceptable.
	if dot := strings.IndexByte(token, '.'); dot >= 0 {
		fraction := token[dot+1:]
		if strings.Trim(fraction, "0") != "" {
			return fmt.Errorf("identifier %q has a fractional part", token)
		}
		token = token[:dot]
	}

	parsed, err := Parse(token)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalJSON emits a bare number for values within SafeMax, otherwise a
// quoted string so consumers reading through a float path never see a
// truncated value.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("0"), nil
	}
	if !id.Overflows() {
		return []byte(id), nil
	}
	return []byte(`"` + string(id) + `"`), nil
}
