package kv

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

// bucketName is the single bucket every key lives in. The collections this
// facade serves (devices, verification_devices, passwords) are each one
// JSON document stored under its own key within it.
var bucketName = []byte("kv")

// ErrDecode wraps a JSON decoding failure of a value already read from
// storage, distinguished from plain storage I/O errors so callers can map
// the two failure modes independently.
type ErrDecode struct {
	Key string
	Err error
}

func (e *ErrDecode) Error() string {
	return fmt.Sprintf("decode value for key %q: %v", e.Key, e.Err)
}

func (e *ErrDecode) Unwrap() error { return e.Err }

// Store is a handle to the embedded single-writer key-value store. One
// Store is opened for the lifetime of the server process.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the embedded store at path.
func Open(path string) (*Store, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "Open", "package": "kv", "path": path})
	logger.Debug("opening embedded key-value store")

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		logger.WithError(err).Error("failed to open key-value store")
		return nil, fmt.Errorf("open kv store %q: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize kv bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the store's file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get decodes the JSON value stored under key into a freshly-zeroed T. The
// second return value is false if no value is stored under key.
func Get[T any](s *Store, key string) (T, bool, error) {
	var value T
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		if err := json.Unmarshal(raw, &value); err != nil {
			return &ErrDecode{Key: key, Err: err}
		}
		return nil
	})
	if err != nil {
		return value, false, err
	}
	return value, found, nil
}

// Set JSON-encodes value and replaces whatever is stored under key.
func Set[T any](s *Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for key %q: %w", key, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), raw)
	})
}

// Update runs fn within a single read-write transaction over the store's
// bucket, giving callers atomic multi-key read-modify-write without an
// additional application-level lock. GetTx/SetTx read and write JSON values
// within that same transaction.
func (s *Store) Update(fn func(tx *bbolt.Tx) error) error {
	return s.db.Update(fn)
}

// GetTx decodes the JSON value stored under key within an open transaction.
func GetTx[T any](tx *bbolt.Tx, key string) (T, bool, error) {
	var value T
	raw := tx.Bucket(bucketName).Get([]byte(key))
	if raw == nil {
		return value, false, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, &ErrDecode{Key: key, Err: err}
	}
	return value, true, nil
}

// SetTx JSON-encodes value and stores it under key within an open
// transaction.
func SetTx[T any](tx *bbolt.Tx, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for key %q: %w", key, err)
	}
	return tx.Bucket(bucketName).Put([]byte(key), raw)
}
