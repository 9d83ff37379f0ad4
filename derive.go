package cyphr

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// NewSymmetricKeyFromPassword derives a symmetric key from a password and
// salt using Argon2id (recommended). Zero-value params fields get sensible
// defaults. The same password, salt and params always derive the same key,
// so two processes can share a key without ever writing it to disk.
func NewSymmetricKeyFromPassword(store *SessionKeyStore, password, salt []byte, params Argon2idParams) (*SymmetricKey, error) {
	if len(password) == 0 {
		return nil, NewValidationError("password", nil, "password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, NewValidationError("salt", nil, "salt cannot be empty")
	}

	// Set defaults
	if params.Memory == 0 {
		params.Memory = 64 * 1024 // 64 MB
	}
	if params.Iterations == 0 {
		params.Iterations = 3
	}
	if params.Parallelism == 0 {
		params.Parallelism = 4
	}

	key := argon2.IDKey(
		password,
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		SymmetricKeySize,
	)
	defer Zero(key)

	return NewSymmetricKey(store, key)
}

// NewSymmetricKeyFromPasswordPBKDF2 derives a symmetric key from a password
// and salt using PBKDF2
func NewSymmetricKeyFromPasswordPBKDF2(store *SessionKeyStore, password, salt []byte, params PBKDF2Params) (*SymmetricKey, error) {
	if len(password) == 0 {
		return nil, NewValidationError("password", nil, "password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, NewValidationError("salt", nil, "salt cannot be empty")
	}

	// Set defaults
	if params.Iterations == 0 {
		params.Iterations = 100000
	}

	var hashFunc func() hash.Hash
	switch params.HashFunc {
	case SHA256:
		hashFunc = sha256.New
	case SHA512:
		hashFunc = sha512.New
	default:
		return nil, fmt.Errorf("unsupported hash function: %v", params.HashFunc)
	}

	key := pbkdf2.Key(password, salt, params.Iterations, SymmetricKeySize, hashFunc)
	defer Zero(key)

	return NewSymmetricKey(store, key)
}

// GenerateSalt generates a new random salt. A size of 0 selects 32 bytes.
func GenerateSalt(size int) ([]byte, error) {
	if size == 0 {
		size = 32
	}

	salt := make([]byte, size)
	if _, err := rand.Read(salt); err != nil {
		return nil, newEntropyError("generate salt", err)
	}
	return salt, nil
}
