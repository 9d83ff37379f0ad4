package cyphr

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"
)

// BoxKeyPair is a Curve25519 public/private key pair using NaCl box sealed
// encryption. Anyone holding the public half can encrypt; decryption needs
// the private half, which is held session-wrapped and unwrapped just-in-time.
type BoxKeyPair struct {
	store          *SessionKeyStore
	public         [32]byte
	wrappedPrivate *WrappedSecret
}

// GenerateBoxKeyPair creates a fresh Curve25519 key pair with the private
// half wrapped in the given store
func GenerateBoxKeyPair(store *SessionKeyStore) (*BoxKeyPair, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	public, private, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, newEntropyError("generate key pair", err)
	}
	defer Zero(private[:])

	wrapped, err := store.Wrap(private[:])
	if err != nil {
		return nil, err
	}

	return &BoxKeyPair{
		store:          store,
		public:         *public,
		wrappedPrivate: wrapped,
	}, nil
}

// NewBoxKeyPair creates a key pair from existing key material. The caller
// keeps ownership of private and should Zero it when done.
func NewBoxKeyPair(store *SessionKeyStore, public, private []byte) (*BoxKeyPair, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if len(public) != 32 {
		return nil, NewValidationError("public", len(public), "public key must be 32 bytes")
	}
	if len(private) != 32 {
		return nil, NewValidationError("private", len(private), "private key must be 32 bytes")
	}

	wrapped, err := store.Wrap(private)
	if err != nil {
		return nil, err
	}

	pair := &BoxKeyPair{store: store, wrappedPrivate: wrapped}
	copy(pair.public[:], public)
	return pair, nil
}

// NewBoxPublicKey creates an encrypt-only key from a peer's public half.
// Decrypt on the result fails with ErrNoPrivateKey.
func NewBoxPublicKey(public []byte) (*BoxKeyPair, error) {
	if len(public) != 32 {
		return nil, NewValidationError("public", len(public), "public key must be 32 bytes")
	}

	pair := &BoxKeyPair{}
	copy(pair.public[:], public)
	return pair, nil
}

// PublicKey returns a copy of the public half
func (k *BoxKeyPair) PublicKey() []byte {
	public := make([]byte, 32)
	copy(public, k.public[:])
	return public
}

// Encrypt seals plaintext to the public half using an ephemeral sender key
func (k *BoxKeyPair) Encrypt(plaintext []byte) ([]byte, error) {
	ciphertext, err := box.SealAnonymous(nil, plaintext, &k.public, rand.Reader)
	if err != nil {
		return nil, newEntropyError("generate ephemeral key", err)
	}
	return ciphertext, nil
}

// Decrypt opens a sealed ciphertext with the private half
func (k *BoxKeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	if k.wrappedPrivate == nil {
		return nil, ErrNoPrivateKey
	}
	if len(ciphertext) < box.AnonymousOverhead {
		return nil, ErrInvalidCiphertext
	}

	secret, err := k.store.Unwrap(k.wrappedPrivate)
	if err != nil {
		return nil, err
	}
	defer Zero(secret)

	var private [32]byte
	copy(private[:], secret)
	defer Zero(private[:])

	plaintext, ok := box.OpenAnonymous(nil, ciphertext, &k.public, &private)
	if !ok {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
