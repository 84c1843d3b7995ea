package crypto

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
)

// keySize is the length in bytes of the server's long-term secret.
const keySize = 32

// EnsureKey loads the server's long-term secret from path, generating and
// persisting a fresh one if the path does not exist. If the path exists but
// is not a regular file of exactly keySize bytes, it returns an error: a
// malformed key file is an operator problem and is never silently
// regenerated or overwritten.
func EnsureKey(path string) ([32]byte, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "EnsureKey",
		"package":  "crypto",
		"path":     path,
	})

	info, err := os.Stat(path)
	switch {
	case err == nil:
		return loadKey(path, info)
	case os.IsNotExist(err):
		logger.Debug("no key file found, generating a fresh one")
		return generateKey(path)
	default:
		logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "stat_failed",
			"operation":  "os.Stat",
		}).Error("failed to stat key file")
		return [32]byte{}, fmt.Errorf("stat key file %q: %w", path, err)
	}
}

func loadKey(path string, info os.FileInfo) ([32]byte, error) {
	var secret [32]byte

	if !info.Mode().IsRegular() {
		return secret, fmt.Errorf("key file %q is not a regular file", path)
	}
	if info.Size() != keySize {
		return secret, fmt.Errorf("key file %q has wrong size %d, expected %d: file may be corrupt", path, info.Size(), keySize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return secret, fmt.Errorf("read key file %q: %w", path, err)
	}
	copy(secret[:], data)
	return secret, nil
}

func generateKey(path string) ([32]byte, error) {
	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return secret, fmt.Errorf("generate key material: %w", err)
	}

	if err := writeKeyAtomic(path, secret); err != nil {
		return [32]byte{}, err
	}
	return secret, nil
}

// writeKeyAtomic writes secret to path via a temp file in the same
// directory followed by os.Rename, so a crash mid-write never leaves a
// truncated or partially-written key file behind.
func writeKeyAtomic(path string, secret [32]byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".key-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp key file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(secret[:]); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp key file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp key file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp key file into place: %w", err)
	}
	return nil
}

// PublicOf derives the public key corresponding to a server secret.
func PublicOf(secret [32]byte) [32]byte {
	var public [32]byte
	curve25519.ScalarBaseMult(&public, &secret)
	return public
}
