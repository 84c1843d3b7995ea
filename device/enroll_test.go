package device

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/keybear/keybear/kv"
)

func TestRegisterFirstDeviceHasNoVerificationCode(t *testing.T) {
	store, err := kv.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("kv.Open() error: %v", err)
	}
	defer store.Close()
	r := NewRegistry(store)

	d, code, err := r.Register("a", [32]byte{1})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if code != "" {
		t.Fatalf("first device Register() code = %q, want empty", code)
	}

	enrolled, err := r.FindEnrolled(d.ID)
	if err != nil {
		t.Fatalf("first device should be enrolled immediately: %v", err)
	}
	if enrolled.Name != "a" {
		t.Fatalf("enrolled device name = %q, want %q", enrolled.Name, "a")
	}
}

func TestRegisterSecondDeviceRequiresVerification(t *testing.T) {
	store, err := kv.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("kv.Open() error: %v", err)
	}
	defer store.Close()
	r := NewRegistry(store)

	if _, _, err := r.Register("a", [32]byte{1}); err != nil {
		t.Fatalf("Register() first device error: %v", err)
	}

	b, code, err := r.Register("b", [32]byte{2})
	if err != nil {
		t.Fatalf("Register() second device error: %v", err)
	}
	if code == "" {
		t.Fatal("second device Register() should return a non-empty verification code")
	}

	if _, err := r.FindEnrolled(b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second device must not be enrolled yet, FindEnrolled() error: %v", err)
	}
	if _, err := r.FindPending(b.ID); err != nil {
		t.Fatalf("second device should be pending: %v", err)
	}
}

func TestVerifyPromotesOnMatch(t *testing.T) {
	store, err := kv.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("kv.Open() error: %v", err)
	}
	defer store.Close()
	r := NewRegistry(store)

	a, _, err := r.Register("a", [32]byte{1})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	b, code, err := r.Register("b", [32]byte{2})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := r.Verify(a.ID, b.ID, code); err != nil {
		t.Fatalf("Verify() error: %v", err)
	}

	if _, err := r.FindEnrolled(b.ID); err != nil {
		t.Fatalf("device should be enrolled after verify: %v", err)
	}
}

func TestVerifyRejectsSelfVerify(t *testing.T) {
	store, err := kv.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("kv.Open() error: %v", err)
	}
	defer store.Close()
	r := NewRegistry(store)

	if _, _, err := r.Register("a", [32]byte{1}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	b, code, err := r.Register("b", [32]byte{2})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := r.Verify(b.ID, b.ID, code); !errors.Is(err, ErrSelfVerify) {
		t.Fatalf("Verify() expected ErrSelfVerify, got %v", err)
	}

	if _, err := r.FindPending(b.ID); err != nil {
		t.Fatal("device should remain pending after a rejected self-verify")
	}
}

func TestVerifyRejectsCodeMismatch(t *testing.T) {
	store, err := kv.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("kv.Open() error: %v", err)
	}
	defer store.Close()
	r := NewRegistry(store)

	a, _, err := r.Register("a", [32]byte{1})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	b, _, err := r.Register("b", [32]byte{2})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := r.Verify(a.ID, b.ID, "wrong code"); !errors.Is(err, ErrVerificationCodeMismatch) {
		t.Fatalf("Verify() expected ErrVerificationCodeMismatch, got %v", err)
	}
}

func TestVerifyRacingVerifiersIsIdempotent(t *testing.T) {
	store, err := kv.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("kv.Open() error: %v", err)
	}
	defer store.Close()
	r := NewRegistry(store)

	a, _, err := r.Register("a", [32]byte{1})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	b, code, err := r.Register("b", [32]byte{2})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := r.Verify(a.ID, b.ID, code); err != nil {
		t.Fatalf("first Verify() error: %v", err)
	}
	// A second verify call racing against the first, observing the device
	// already enrolled, should not surface as a verification error.
	if err := r.Verify(a.ID, b.ID, code); err != nil {
		t.Fatalf("second racing Verify() should be idempotent, got: %v", err)
	}
}
