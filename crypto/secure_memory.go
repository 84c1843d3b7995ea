package crypto

import (
	"crypto/subtle"
	"errors"
	"runtime"
)

// SecureWipe overwrites data in place with zeros, using subtle.XORBytes so
// the compiler cannot optimize the write away as dead code. It returns an
// error if data is nil.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}

	subtle.XORBytes(data, data, data)
	runtime.KeepAlive(data)

	return nil
}

// ZeroBytes wipes data, discarding any error from SecureWipe. Used after a
// shared secret or a derived private key copy has served its purpose and
// should not linger in memory (see DeriveSharedSecret, FromSecretKey).
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}
