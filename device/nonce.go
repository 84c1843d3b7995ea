package device

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/keybear/keybear/kv"
	"go.etcd.io/bbolt"
)

// ErrNoNonce is returned when an authenticated request arrives for a
// device with no outstanding nonce (it was never issued, or was already
// consumed by a prior request).
var ErrNoNonce = errors.New("no nonce issued for device")

const nonceSize = 12

// IssueNonce generates a fresh 12-byte nonce for the enrolled device
// identified by id, stores it in that device's nonce slot, and returns it.
// Issuing a new nonce overwrites any previously-issued, unconsumed one —
// at most one nonce is ever outstanding per device.
func (r *Registry) IssueNonce(id string) ([nonceSize]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("generate nonce: %w", err)
	}

	err := r.store.Update(func(tx *bbolt.Tx) error {
		enrolled, _, err := kv.GetTx[[]Device](tx, enrolledKey)
		if err != nil {
			return err
		}
		for i, d := range enrolled {
			if d.ID == id {
				stamped := nonce
				enrolled[i].Nonce = &stamped
				return kv.SetTx(tx, enrolledKey, enrolled)
			}
		}
		return ErrNotFound
	})
	if err != nil {
		return [nonceSize]byte{}, err
	}
	return nonce, nil
}

// ConsumeNonce reads and clears the stored nonce for the enrolled device
// identified by id, returning it for use in decrypting the current
// request. The clear happens in the same transaction as the read
// regardless of what the pipeline does afterward, preserving the
// single-use guarantee even if decryption subsequently fails.
func (r *Registry) ConsumeNonce(id string) ([nonceSize]byte, error) {
	var consumed [nonceSize]byte
	found := false

	err := r.store.Update(func(tx *bbolt.Tx) error {
		enrolled, _, err := kv.GetTx[[]Device](tx, enrolledKey)
		if err != nil {
			return err
		}
		for i, d := range enrolled {
			if d.ID == id {
				if d.Nonce == nil {
					return ErrNoNonce
				}
				consumed = *d.Nonce
				found = true
				enrolled[i].Nonce = nil
				return kv.SetTx(tx, enrolledKey, enrolled)
			}
		}
		return ErrNotFound
	})
	if err != nil {
		return [nonceSize]byte{}, err
	}
	if !found {
		return [nonceSize]byte{}, ErrNoNonce
	}
	return consumed, nil
}
