package crypto

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrAuthenticationFailed is returned when a ciphertext fails to verify
// under the given key and nonce — either it was tampered with, or the key
// agreement between client and server disagrees.
var ErrAuthenticationFailed = errors.New("decryption failed: message authentication failed")

// Decrypt opens ciphertext sealed by Encrypt with the same key and nonce.
func Decrypt(key [32]byte, nonce Nonce, ciphertext []byte) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function":        "Decrypt",
		"package":         "crypto",
		"ciphertext_size": len(ciphertext),
	})

	if len(ciphertext) == 0 {
		return nil, errors.New("empty ciphertext")
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

	plaintext, err := aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		logger.Warn("authentication failed on decrypt")
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}
