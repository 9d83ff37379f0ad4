package cyphr

import (
	"crypto/rand"
	"sync"
	"sync/atomic"
)

// ProtectionKeySize is the byte length of the ephemeral protection key.
// Both supported cipher suites take 256-bit keys.
const ProtectionKeySize = 32

// WrappedSecret holds a sensitive secret encrypted under a protection key.
// It is only decryptable by the SessionKeyStore that produced it, and only
// while that store's generation matches.
type WrappedSecret struct {
	// Generation identifies the protection key that sealed this secret
	Generation uint64

	// Nonce is the random nonce used to seal the secret
	Nonce []byte

	// Ciphertext is the sealed secret including the authentication tag
	Ciphertext []byte
}

// sessionKey is an immutable (protection key, generation) snapshot. Refresh
// replaces the whole snapshot in a single atomic swap, so Wrap and Unwrap
// never observe a half-updated key.
type sessionKey struct {
	generation uint64
	key        []byte
	engine     CipherEngine
}

// SessionKeyStore owns an ephemeral protection key generated once per process
// lifetime and uses it to wrap and unwrap sensitive key material. The key
// lives only in memory; nothing it protects survives the process, and nothing
// wrapped before a Refresh survives the Refresh.
//
// A store is safe for concurrent use. Construct one per process at the
// composition root and pass it to whatever needs wrap/unwrap.
type SessionKeyStore struct {
	mu      sync.Mutex // serializes Initialize and Refresh
	current atomic.Pointer[sessionKey]
	cipher  CipherSuite
}

// NewSessionKeyStore creates a new session key store. The protection key is
// not generated until first use (or an explicit Initialize call). A nil
// config selects the default cipher suite.
func NewSessionKeyStore(config *SessionConfig) (*SessionKeyStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cipher := CipherChaCha20Poly1305
	if config != nil && config.Cipher != CipherAuto {
		cipher = config.Cipher
	}

	return &SessionKeyStore{cipher: cipher}, nil
}

// Initialize generates the protection key if none exists yet, starting at
// generation 1. Calling it again is a no-op. Wrap and Unwrap call it
// implicitly, so an explicit call is only needed to surface entropy failures
// early.
func (s *SessionKeyStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Load() != nil {
		return nil
	}
	return s.installLocked(1)
}

// installLocked generates a fresh protection key and publishes it with the
// given generation. On failure the previous snapshot, if any, stays live.
// Callers must hold s.mu.
func (s *SessionKeyStore) installLocked(generation uint64) error {
	key := make([]byte, ProtectionKeySize)
	if _, err := rand.Read(key); err != nil {
		return newEntropyError("generate protection key", err)
	}

	engine, err := NewCipherEngine(s.cipher, key)
	if err != nil {
		Zero(key)
		return err
	}

	s.current.Store(&sessionKey{
		generation: generation,
		key:        key,
		engine:     engine,
	})
	return nil
}

// snapshot returns the current (protection key, generation) pair,
// initializing the store on first use.
func (s *SessionKeyStore) snapshot() (*sessionKey, error) {
	if cur := s.current.Load(); cur != nil {
		return cur, nil
	}
	if err := s.Initialize(); err != nil {
		return nil, err
	}
	return s.current.Load(), nil
}

// Generation returns the current protection key generation, or 0 if the
// store has not been initialized yet.
func (s *SessionKeyStore) Generation() uint64 {
	if cur := s.current.Load(); cur != nil {
		return cur.generation
	}
	return 0
}

// Wrap encrypts secret under the current protection key and tags the result
// with the current generation. The caller keeps ownership of both the input
// and the returned WrappedSecret.
func (s *SessionKeyStore) Wrap(secret []byte) (*WrappedSecret, error) {
	cur, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	nonce, err := generateNonce(cur.engine)
	if err != nil {
		return nil, err
	}

	ciphertext, err := cur.engine.Encrypt(nonce, secret)
	if err != nil {
		return nil, err
	}

	return &WrappedSecret{
		Generation: cur.generation,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Unwrap decrypts a wrapped secret and returns the original bytes.
//
// It fails with ErrStaleGeneration if the secret was wrapped under a retired
// generation (the expected outcome after Refresh), and with ErrAuthFailed if
// the ciphertext fails integrity verification under the matching generation.
func (s *SessionKeyStore) Unwrap(wrapped *WrappedSecret) ([]byte, error) {
	if wrapped == nil {
		return nil, NewValidationError("wrapped", nil, "wrapped secret cannot be nil")
	}

	cur, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	if wrapped.Generation != cur.generation {
		return nil, ErrStaleGeneration
	}

	return cur.engine.Decrypt(wrapped.Nonce, wrapped.Ciphertext)
}

// Refresh atomically replaces the protection key with a freshly generated one
// and increments the generation. Every secret wrapped under the previous
// generation becomes permanently undecryptable; the old key bytes are zeroed.
//
// Refresh is safe to call concurrently with in-flight Wrap and Unwrap calls:
// each of those completes entirely under the pre-refresh or post-refresh key.
// On an entropy failure the previous key stays live and usable.
func (s *SessionKeyStore) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	generation := uint64(1)
	if old != nil {
		generation = old.generation + 1
	}

	if err := s.installLocked(generation); err != nil {
		return err
	}

	if old != nil {
		Zero(old.key)
	}
	return nil
}
