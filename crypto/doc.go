// Package crypto implements the cryptographic primitives of the vault
// server: long-term key management, Curve25519 key agreement, and
// ChaCha20-Poly1305 authenticated encryption of per-device session
// payloads.
//
// # Core Types
//
//   - [KeyPair]: a Curve25519 key pair used for key agreement.
//   - [Nonce]: a 12-byte value used exactly once with a given shared secret.
//
// # Key Material
//
// The server's long-term secret is loaded or generated once at startup:
//
//	secret, err := crypto.EnsureKey("/var/lib/keybear/key")
//	pub := crypto.PublicOf(secret)
//
// # Session Crypto
//
//	shared, _ := crypto.DeriveSharedSecret(devicePublicKey, serverSecret)
//	nonce, _ := crypto.GenerateNonce()
//	ciphertext, _ := crypto.Encrypt(shared, nonce, plaintext)
//	plaintext, _ := crypto.Decrypt(shared, nonce, ciphertext)
//
// # Secure Memory Handling
//
// Sensitive byte slices should be wiped after use:
//
//	defer crypto.ZeroBytes(shared[:])
//
// [SecureWipe] uses a constant-time XOR the compiler cannot optimize away.
package crypto
