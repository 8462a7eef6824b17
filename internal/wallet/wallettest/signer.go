// Package wallettest holds signing helpers for tests that need a real wallet key.
package wallettest

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key is a throwaway secp256k1 account.
type Key struct {
	Private *ecdsa.PrivateKey
	Address string
}

// NewKey generates a fresh account key.
func NewKey(t testing.TB) Key {
	t.Helper()
	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return Key{Private: pk, Address: crypto.PubkeyToAddress(pk.PublicKey).Hex()}
}

// Sign produces a personal_sign signature over message the way browser
// wallets do, with V encoded as 27/28.
func (k Key) Sign(t testing.TB, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), k.Private)
	if err != nil {
		t.Fatalf("sign message: %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}
