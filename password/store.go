package password

import (
	"errors"
	"fmt"

	"github.com/keybear/keybear/device"
	"github.com/keybear/keybear/kv"
	"go.etcd.io/bbolt"
)

const passwordsKey = "passwords"

// ErrNotFound is returned when a password id does not exist in the
// collection.
var ErrNotFound = errors.New("password not found")

// Store implements the password CRUD handlers over the key-value facade.
// Every mutation runs inside a single bbolt read-write transaction so the
// read-modify-write cycle over the password collection is atomic, the same
// single-writer discipline the device registry uses for its collections
// (see device.Registry).
type Store struct {
	kv *kv.Store
}

// NewStore wraps a kv.Store as a password Store.
func NewStore(store *kv.Store) *Store {
	return &Store{kv: store}
}

func (s *Store) all() ([]Password, error) {
	passwords, _, err := kv.Get[[]Password](s.kv, passwordsKey)
	if err != nil {
		return nil, fmt.Errorf("load passwords: %w", err)
	}
	return passwords, nil
}

// List returns the public projection of every stored password, omitting
// each record's secret value.
func (s *Store) List() ([]Public, error) {
	passwords, err := s.all()
	if err != nil {
		return nil, err
	}
	public := make([]Public, 0, len(passwords))
	for _, p := range passwords {
		public = append(public, p.Public())
	}
	return public, nil
}

// Get returns the full record, including its secret, identified by id.
func (s *Store) Get(id string) (Password, error) {
	passwords, err := s.all()
	if err != nil {
		return Password{}, err
	}
	for _, p := range passwords {
		if p.ID == id {
			return p, nil
		}
	}
	return Password{}, ErrNotFound
}

// Create assigns a fresh server-side id to a new password record, persists
// it, and returns the stored record.
func (s *Store) Create(name, secret, email, website string) (Password, error) {
	id, err := device.NewID()
	if err != nil {
		return Password{}, fmt.Errorf("create password: %w", err)
	}

	p := Password{ID: id, Name: name, Secret: secret, Email: email, Website: website}

	err = s.kv.Update(func(tx *bbolt.Tx) error {
		passwords, _, err := kv.GetTx[[]Password](tx, passwordsKey)
		if err != nil {
			return err
		}
		passwords = append(passwords, p)
		return kv.SetTx(tx, passwordsKey, passwords)
	})
	if err != nil {
		return Password{}, fmt.Errorf("create password: %w", err)
	}
	return p, nil
}

// Update replaces the name/secret/email/website of the record identified
// by id, preserving its id.
func (s *Store) Update(id, name, secret, email, website string) (Password, error) {
	updated := Password{ID: id, Name: name, Secret: secret, Email: email, Website: website}

	err := s.kv.Update(func(tx *bbolt.Tx) error {
		passwords, _, err := kv.GetTx[[]Password](tx, passwordsKey)
		if err != nil {
			return err
		}
		for i, p := range passwords {
			if p.ID == id {
				passwords[i] = updated
				return kv.SetTx(tx, passwordsKey, passwords)
			}
		}
		return ErrNotFound
	})
	if err != nil {
		return Password{}, err
	}
	return updated, nil
}

// Delete removes the record identified by id and returns its pre-deletion
// value.
func (s *Store) Delete(id string) (Password, error) {
	var removed Password

	err := s.kv.Update(func(tx *bbolt.Tx) error {
		passwords, _, err := kv.GetTx[[]Password](tx, passwordsKey)
		if err != nil {
			return err
		}
		for i, p := range passwords {
			if p.ID == id {
				removed = p
				passwords = append(passwords[:i], passwords[i+1:]...)
				return kv.SetTx(tx, passwordsKey, passwords)
			}
		}
		return ErrNotFound
	})
	if err != nil {
		return Password{}, err
	}
	return removed, nil
}
