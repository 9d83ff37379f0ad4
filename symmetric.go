package cyphr

import (
	"crypto/rand"
	"io"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
)

// SymmetricKeySize is the byte length of symmetric keys
const SymmetricKeySize = 32

const secretboxNonceSize = 24

// SymmetricKey encrypts and decrypts with a single shared secret using NaCl
// secretbox (XSalsa20-Poly1305). The secret is never held in plaintext:
// construction wraps it in a SessionKeyStore and every operation unwraps it
// just-in-time and zeroes it again, so a serialized SymmetricKey is useless
// outside the process that created it.
type SymmetricKey struct {
	store   *SessionKeyStore
	wrapped *WrappedSecret
}

// NewSymmetricKey creates a symmetric key from 32 bytes of key material.
// The caller keeps ownership of key and should Zero it when done.
func NewSymmetricKey(store *SessionKeyStore, key []byte) (*SymmetricKey, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if len(key) != SymmetricKeySize {
		return nil, NewValidationError("key", len(key), "symmetric key must be 32 bytes")
	}

	wrapped, err := store.Wrap(key)
	if err != nil {
		return nil, err
	}

	return &SymmetricKey{store: store, wrapped: wrapped}, nil
}

// GenerateSymmetricKey creates a symmetric key from fresh random key material
func GenerateSymmetricKey(store *SessionKeyStore) (*SymmetricKey, error) {
	key := make([]byte, SymmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, newEntropyError("generate symmetric key", err)
	}
	defer Zero(key)

	return NewSymmetricKey(store, key)
}

// LoadSymmetricKey reads raw 32-byte key material from a file
func LoadSymmetricKey(store *SessionKeyStore, path string) (*SymmetricKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewIOError("read", path, err)
	}
	defer Zero(data)

	return NewSymmetricKey(store, data)
}

// Encrypt encrypts plaintext, returning the nonce-prefixed ciphertext
func (k *SymmetricKey) Encrypt(plaintext []byte) ([]byte, error) {
	secret, err := k.store.Unwrap(k.wrapped)
	if err != nil {
		return nil, err
	}
	defer Zero(secret)

	var key [SymmetricKeySize]byte
	copy(key[:], secret)
	defer Zero(key[:])

	var nonce [secretboxNonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, newEntropyError("generate nonce", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &key), nil
}

// Decrypt decrypts a nonce-prefixed ciphertext produced by Encrypt
func (k *SymmetricKey) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < secretboxNonceSize+secretbox.Overhead {
		return nil, ErrInvalidCiphertext
	}

	secret, err := k.store.Unwrap(k.wrapped)
	if err != nil {
		return nil, err
	}
	defer Zero(secret)

	var key [SymmetricKeySize]byte
	copy(key[:], secret)
	defer Zero(key[:])

	var nonce [secretboxNonceSize]byte
	copy(nonce[:], ciphertext[:secretboxNonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[secretboxNonceSize:], &nonce, &key)
	if !ok {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
