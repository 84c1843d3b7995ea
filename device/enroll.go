package device

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrSelfVerify is returned when a device attempts to verify its own
// pending registration.
var ErrSelfVerify = errors.New("a device cannot verify its own registration")

// ErrVerificationCodeMismatch is returned when a verify call's code does
// not match the pending record's stored code.
var ErrVerificationCodeMismatch = errors.New("verification code does not match")

// Register implements the register transition of the enrollment state
// machine: if no device is enrolled yet, the new device is admitted
// directly with no verification code; otherwise it is placed in the
// pending set behind a freshly generated verification code. The returned
// Device always carries the newly assigned id and no nonce;
// verificationCode is empty for the first device.
func (r *Registry) Register(name string, publicKey [32]byte) (device Device, verificationCode string, err error) {
	logger := logrus.WithFields(logrus.Fields{"function": "Register", "package": "device", "name": name})

	id, err := NewID()
	if err != nil {
		return Device{}, "", fmt.Errorf("register device: %w", err)
	}

	d := Device{ID: id, Name: name, PublicKey: publicKey}

	enrolled, err := r.ListEnrolled()
	if err != nil {
		return Device{}, "", fmt.Errorf("register device: %w", err)
	}

	if len(enrolled) == 0 {
		logger.WithField("id", id).Info("admitting first device without verification")
		if err := r.AdmitFirst(d); err != nil {
			return Device{}, "", fmt.Errorf("admit first device: %w", err)
		}
		return d, "", nil
	}

	code, err := NewVerificationCode()
	if err != nil {
		return Device{}, "", fmt.Errorf("register device: %w", err)
	}

	pending := Pending{Device: d, VerificationCode: code}
	if err := r.EnqueuePending(pending); err != nil {
		return Device{}, "", fmt.Errorf("enqueue pending device: %w", err)
	}

	logger.WithField("id", id).Info("device placed in pending verification")
	return d, code, nil
}

// Verify implements the verify transition of the enrollment state
// machine. verifierID is the already-enrolled device asserting the
// attestation; pendingID and code identify and authenticate the pending
// record being promoted.
//
// If the pending record no longer exists (another verifier already
// promoted or removed it), Verify returns nil if the device is already
// enrolled (idempotent success, resolving a race between two verifiers)
// or ErrNotFound otherwise.
func (r *Registry) Verify(verifierID, pendingID, code string) error {
	if IsSelfVerify(pendingID, verifierID) {
		return ErrSelfVerify
	}

	pending, err := r.FindPending(pendingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if _, enrolledErr := r.FindEnrolled(pendingID); enrolledErr == nil {
				return nil
			}
		}
		return err
	}

	if pending.VerificationCode != code {
		return ErrVerificationCodeMismatch
	}

	return r.PromotePendingToEnrolled(pendingID)
}
