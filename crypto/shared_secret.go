package crypto

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
)

// DeriveSharedSecret computes the 32-byte secret the Encrypted Request
// Pipeline uses to seal and open a single device's traffic, via X25519
// Diffie-Hellman between the server's long-term key and the device's
// enrolled public key. The caller's key material is copied before use; the
// private-key copy is wiped once the computation completes, whether it
// succeeds or fails, and the raw X25519 output is wiped after it has been
// copied into the returned array.
func DeriveSharedSecret(peerPublicKey, privateKey [32]byte) ([32]byte, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "DeriveSharedSecret",
		"package":  "crypto",
	})

	var publicKeyCopy, privateKeyCopy [32]byte
	copy(publicKeyCopy[:], peerPublicKey[:])
	copy(privateKeyCopy[:], privateKey[:])
	defer ZeroBytes(privateKeyCopy[:])

	sharedSecret, err := curve25519.X25519(privateKeyCopy[:], publicKeyCopy[:])
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "key_agreement_failed",
			"operation":  "curve25519.X25519",
		}).Warn("shared secret derivation failed")
		return [32]byte{}, fmt.Errorf("derive shared secret: %w", err)
	}
	defer ZeroBytes(sharedSecret)

	var result [32]byte
	copy(result[:], sharedSecret)

	return result, nil
}
