package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/keybear/keybear/kv"
	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

const (
	enrolledKey = "devices"
	pendingKey  = "verification_devices"
)

// ErrNotFound is returned when a device id is not present in the set the
// caller asked about.
var ErrNotFound = errors.New("device not found")

// ErrIDCollision is returned when a generated id already exists in either
// device set, violating the "no identifier collisions across sets"
// invariant. Practically unreachable with 128 bits of entropy; kept as a
// defensive check rather than assumed away.
var ErrIDCollision = errors.New("device id already exists")

// Registry owns the enrolled and pending-verification device collections
// and serialises every mutation through the underlying store's read-write
// transactions, so invariants hold without an additional lock.
type Registry struct {
	store *kv.Store
}

// NewRegistry wraps a Store as a Registry.
func NewRegistry(store *kv.Store) *Registry {
	return &Registry{store: store}
}

// ListEnrolled returns every enrolled device.
func (r *Registry) ListEnrolled() ([]Device, error) {
	devices, _, err := kv.Get[[]Device](r.store, enrolledKey)
	if err != nil {
		return nil, fmt.Errorf("list enrolled devices: %w", err)
	}
	return devices, nil
}

// ListPending returns every pending-verification device.
func (r *Registry) ListPending() ([]Pending, error) {
	pending, _, err := kv.Get[[]Pending](r.store, pendingKey)
	if err != nil {
		return nil, fmt.Errorf("list pending devices: %w", err)
	}
	return pending, nil
}

// FindEnrolled looks up an enrolled device by id.
func (r *Registry) FindEnrolled(id string) (Device, error) {
	devices, err := r.ListEnrolled()
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.ID == id {
			return d, nil
		}
	}
	return Device{}, ErrNotFound
}

// FindPending looks up a pending device by id.
func (r *Registry) FindPending(id string) (Pending, error) {
	pending, err := r.ListPending()
	if err != nil {
		return Pending{}, err
	}
	for _, p := range pending {
		if p.ID == id {
			return p, nil
		}
	}
	return Pending{}, ErrNotFound
}

// AdmitFirst enrolls device directly, bypassing verification. It fails if
// the enrolled set is already non-empty: only the very first registered
// device is assigned a fresh id and placed directly into the enrolled
// set.
func (r *Registry) AdmitFirst(d Device) error {
	logger := logrus.WithFields(logrus.Fields{"function": "AdmitFirst", "package": "device", "id": d.ID})

	return r.store.Update(func(tx *bbolt.Tx) error {
		enrolled, _, err := kv.GetTx[[]Device](tx, enrolledKey)
		if err != nil {
			return err
		}
		if len(enrolled) != 0 {
			logger.Warn("refusing to admit first device: enrolled set is non-empty")
			return errors.New("enrolled set is not empty")
		}
		enrolled = append(enrolled, d)
		return kv.SetTx(tx, enrolledKey, enrolled)
	})
}

// EnqueuePending adds a new pending-verification record. Fails if the id
// collides with an id already present in either set.
func (r *Registry) EnqueuePending(p Pending) error {
	return r.store.Update(func(tx *bbolt.Tx) error {
		if err := checkNoCollisionTx(tx, p.ID); err != nil {
			return err
		}
		pending, _, err := kv.GetTx[[]Pending](tx, pendingKey)
		if err != nil {
			return err
		}
		pending = append(pending, p)
		return kv.SetTx(tx, pendingKey, pending)
	})
}

// PromotePendingToEnrolled atomically moves the pending device identified
// by id into the enrolled set. Idempotent: if the device is already
// enrolled (a racing verifier got there first), it returns nil rather than
// an error.
func (r *Registry) PromotePendingToEnrolled(id string) error {
	return r.store.Update(func(tx *bbolt.Tx) error {
		enrolled, _, err := kv.GetTx[[]Device](tx, enrolledKey)
		if err != nil {
			return err
		}
		for _, d := range enrolled {
			if d.ID == id {
				return nil
			}
		}

		pending, _, err := kv.GetTx[[]Pending](tx, pendingKey)
		if err != nil {
			return err
		}

		idx := -1
		for i, p := range pending {
			if p.ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return ErrNotFound
		}

		promoted := pending[idx].Device
		pending = append(pending[:idx], pending[idx+1:]...)
		enrolled = append(enrolled, promoted)

		if err := kv.SetTx(tx, pendingKey, pending); err != nil {
			return err
		}
		return kv.SetTx(tx, enrolledKey, enrolled)
	})
}

// RemovePending deletes the pending record identified by id, with no
// effect if it is already gone. Intended for operator-driven cleanup of
// stale pending records; no automatic expiry is implemented.
func (r *Registry) RemovePending(id string) error {
	return r.store.Update(func(tx *bbolt.Tx) error {
		pending, _, err := kv.GetTx[[]Pending](tx, pendingKey)
		if err != nil {
			return err
		}
		for i, p := range pending {
			if p.ID == id {
				pending = append(pending[:i], pending[i+1:]...)
				return kv.SetTx(tx, pendingKey, pending)
			}
		}
		return nil
	})
}

// UpdateDevice replaces the stored record for an enrolled device with the
// same id, returning ErrNotFound if no enrolled device has that id.
func (r *Registry) UpdateDevice(updated Device) error {
	return r.store.Update(func(tx *bbolt.Tx) error {
		enrolled, _, err := kv.GetTx[[]Device](tx, enrolledKey)
		if err != nil {
			return err
		}
		for i, d := range enrolled {
			if d.ID == updated.ID {
				enrolled[i] = updated
				return kv.SetTx(tx, enrolledKey, enrolled)
			}
		}
		return ErrNotFound
	})
}

// IsSelfVerify reports whether verifierID must not be trusted to verify
// pendingID: the verifier's id must not be a prefix of the pending id,
// preventing self-promotion.
func IsSelfVerify(pendingID, verifierID string) bool {
	return strings.HasPrefix(pendingID, verifierID)
}

func checkNoCollisionTx(tx *bbolt.Tx, id string) error {
	enrolled, _, err := kv.GetTx[[]Device](tx, enrolledKey)
	if err != nil {
		return err
	}
	for _, d := range enrolled {
		if d.ID == id {
			return ErrIDCollision
		}
	}
	pending, _, err := kv.GetTx[[]Pending](tx, pendingKey)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if p.ID == id {
			return ErrIDCollision
		}
	}
	return nil
}
