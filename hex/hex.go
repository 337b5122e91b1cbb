package hex

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Base represents the hexadecimal base, which is 16
const Base = 16

// BitSize64 64 bits
const BitSize64 = 64

// ErrNotHex indicates a value which is not a valid hexadecimal string
var ErrNotHex = fmt.Errorf("value is not in hex format")

// DecodeHex converts a hex string to a byte array
func DecodeHex(str string) ([]byte, error) {
	str = strings.TrimPrefix(str, "0x")

	// Make sure the string has an even length to avoid odd length errors
	if len(str)%2 == 1 {
		str = "0" + str
	}

	return hex.DecodeString(str)
}

// IsValid checks if the provided string is a valid hexadecimal value
func IsValid(str string) bool {
	str = strings.TrimPrefix(str, "0x")
	for _, b := range []byte(str) {
		if !(b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F') {
			return false
		}
	}
	return true
}

// EncodeToHex generates a hex string based on the byte representation, with the '0x' prefix
func EncodeToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// EncodeToString encodes b as a hex string without the '0x' prefix
func EncodeToString(b []byte) string {
	return hex.EncodeToString(b)
}
