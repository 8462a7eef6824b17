package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for strings that are not a 20 byte hex account address.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Normalize returns the EIP-55 checksummed spelling of raw. The 0x prefix is
// optional. All-lowercase and all-uppercase input is accepted without a
// checksum; mixed-case input must match its checksum exactly.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !common.IsHexAddress(s) {
		return "", ErrInvalidAddress
	}

	addr := common.HexToAddress(s)
	checksummed := addr.Hex()

	digits := s
	if len(digits) == 2*common.AddressLength+2 {
		digits = digits[2:]
	}
	if isMixedCase(digits) && digits != checksummed[2:] {
		return "", fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return checksummed, nil
}

// SameAddress reports whether a and b denote the same account. Malformed input never matches.
func SameAddress(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return na == nb
}

func isMixedCase(hex string) bool {
	return strings.ToLower(hex) != hex && strings.ToUpper(hex) != hex
}
