package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature covers malformed signature encodings and failed key recovery.
var ErrInvalidSignature = errors.New("invalid signature")

// ChallengeMessage builds the exact text a wallet signs to prove key possession.
// Clients must reproduce it byte for byte.
func ChallengeMessage(label, nonce string) string {
	return label + " login verification: " + nonce
}

// ParseSignature decodes a 65 byte [R || S || V] hex signature and normalizes
// V to the 0/1 recovery id expected by go-ethereum. Wallets emit V as 27/28.
func ParseSignature(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSignature)
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	decoded, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(decoded) != crypto.SignatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(decoded))
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, decoded)
	switch v := sig[crypto.RecoveryIDOffset]; v {
	case 0, 1:
	case 27, 28:
		sig[crypto.RecoveryIDOffset] = v - 27
	default:
		return nil, fmt.Errorf("%w: unsupported recovery id %d", ErrInvalidSignature, v)
	}
	return sig, nil
}

// RecoverSigner returns the checksummed address whose key produced signature
// over message under the personal_sign (EIP-191) scheme. It does not compare
// against any claimed address.
func RecoverSigner(message, signature string) (string, error) {
	sig, err := ParseSignature(signature)
	if err != nil {
		return "", err
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
