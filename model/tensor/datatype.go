package tensor

import (
	"fmt"
	"strings"
)

// DataType tags the element type a kernel declares it operates on. The
// scheduler treats it as opaque metadata.
type DataType int

const (
	Unknown DataType = iota
	U8
	S8
	S16
	S32
	S64
	SIZET
	SIGNED
	F32
)

var dataTypeNames = [...]string{
	Unknown: "UNKNOWN",
	U8:      "U8",
	S8:      "S8",
	S16:     "S16",
	S32:     "S32",
	S64:     "S64",
	SIZET:   "SIZET",
	SIGNED:  "SIGNED",
	F32:     "F32",
}

func (t DataType) String() string {
	if t < 0 || int(t) >= len(dataTypeNames) {
		return fmt.Sprintf("DataType(%d)", int(t))
	}
	return dataTypeNames[t]
}

// Size returns the element size in bytes. SIZET and SIGNED follow the 64 bit
// platform word.
func (t DataType) Size() int {
	switch t {
	case U8, S8:
		return 1
	case S16:
		return 2
	case S32, F32:
		return 4
	case S64, SIZET, SIGNED:
		return 8
	}
	return 0
}

// Signed reports whether the element type carries a sign.
func (t DataType) Signed() bool {
	switch t {
	case S8, S16, S32, S64, SIGNED, F32:
		return true
	}
	return false
}

// ParseDataType converts a case insensitive type name.
func ParseDataType(name string) (DataType, error) {
	for i, candidate := range dataTypeNames {
		if i > 0 && strings.EqualFold(candidate, strings.TrimSpace(name)) {
			return DataType(i), nil
		}
	}
	return Unknown, fmt.Errorf("unsupported data type: %q", name)
}

// MarshalText renders the type name.
func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses the type name.
func (t *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Bounds returns the representable range of integer types; ok is false for
// F32 and Unknown.
func (t DataType) Bounds() (lo, hi float64, ok bool) {
	switch t {
	case U8:
		return 0, 255, true
	case S8:
		return -128, 127, true
	case S16:
		return -32768, 32767, true
	case S32:
		return -2147483648, 2147483647, true
	case S64, SIGNED:
		return -9223372036854775808, 9223372036854775807, true
	case SIZET:
		return 0, 18446744073709551615, true
	}
	return 0, 0, false
}
