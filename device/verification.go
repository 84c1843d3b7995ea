package device

import (
	"crypto/rand"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// verificationEntropyBits is the BIP39 entropy size used for verification
// codes. 128 bits is the library's minimum supported size and yields a
// 12-word mnemonic (132 bits including checksum), comfortably above the
// minimum acceptable 60 bits of entropy for a verification code.
const verificationEntropyBits = 128

// NewVerificationCode generates a human-readable passphrase a newly
// registered device's verifier must read back, drawn from the BIP39
// wordlist — the closest idiomatic Go equivalent to a wordlist-based
// passphrase generator.
func NewVerificationCode() (string, error) {
	entropy := make([]byte, verificationEntropyBits/8)
	if _, err := rand.Read(entropy); err != nil {
		return "", fmt.Errorf("generate verification code entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate verification mnemonic: %w", err)
	}
	return mnemonic, nil
}
