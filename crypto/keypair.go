package crypto

import (
	"crypto/rand"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// KeyPair is a Curve25519 key pair used for key agreement.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateKeyPair creates a new random Curve25519 key pair, used for both
// the server's long-term identity and a device's enrollment key.
func GenerateKeyPair() (*KeyPair, error) {
	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "GenerateKeyPair",
			"package":    "crypto",
			"error":      err.Error(),
			"error_type": "key_generation_failed",
			"operation":  "box.GenerateKey",
		}).Error("failed to generate key pair")
		return nil, err
	}

	return &KeyPair{Public: *publicKey, Private: *privateKey}, nil
}

// FromSecretKey derives the public half of a key pair from an existing
// private key, clamping a working copy per RFC 7748 before the scalar
// multiplication (the returned KeyPair retains the caller's unclamped
// private key, matching NaCl convention).
func FromSecretKey(secretKey [32]byte) (*KeyPair, error) {
	if isZeroKey(secretKey) {
		return nil, errors.New("invalid secret key: all zeros")
	}

	var clamped [32]byte
	copy(clamped[:], secretKey[:])
	clamped[0] &= 248
	clamped[31] &= 127
	clamped[31] |= 64
	defer ZeroBytes(clamped[:])

	var publicKey [32]byte
	curve25519.ScalarBaseMult(&publicKey, &clamped)

	return &KeyPair{Public: publicKey, Private: secretKey}, nil
}

// isZeroKey reports whether key consists entirely of zero bytes.
func isZeroKey(key [32]byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
