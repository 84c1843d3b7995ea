package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
)

// Nonce is the 12-byte value the Nonce Coordinator issues for exactly one
// encrypted request/response cycle with a given device's shared secret.
type Nonce [chacha20poly1305.NonceSize]byte

// GenerateNonce creates a cryptographically secure random nonce.
func GenerateNonce() (Nonce, error) {
	var nonce Nonce
	if _, err := rand.Read(nonce[:]); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "GenerateNonce",
			"package":    "crypto",
			"error":      err.Error(),
			"error_type": "random_generation_failed",
			"operation":  "rand.Read",
		}).Error("failed to generate nonce")
		return Nonce{}, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}

// MaxMessageSize bounds the plaintext accepted by Encrypt; larger messages
// are rejected with an error. Decrypt applies no size bound.
const MaxMessageSize = 1024 * 1024

// Encrypt seals message under key using ChaCha20-Poly1305 with nonce,
// producing ciphertext with an embedded authentication tag. key is the
// 32-byte shared secret derived by DeriveSharedSecret.
func Encrypt(key [32]byte, nonce Nonce, message []byte) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function":     "Encrypt",
		"package":      "crypto",
		"message_size": len(message),
	})

	if len(message) > MaxMessageSize {
		logger.Warn("message exceeds maximum allowed size")
		return nil, errors.New("message too large")
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "cipher_init_failed",
			"operation":  "chacha20poly1305.New",
		}).Error("failed to construct AEAD cipher")
		return nil, fmt.Errorf("construct cipher: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce[:], message, nil)

	logger.WithFields(logrus.Fields{
		"ciphertext_size": len(ciphertext),
		"overhead_bytes":  len(ciphertext) - len(message),
	}).Debug("message encrypted successfully")

	return ciphertext, nil
}
