package cyphr

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *SessionKeyStore {
	t.Helper()

	store, err := NewSessionKeyStore(nil)
	if err != nil {
		t.Fatalf("failed to create session key store: %v", err)
	}
	return store
}

func TestSessionKeyStore_WrapUnwrapRoundTrip(t *testing.T) {
	store := newTestStore(t)

	secrets := [][]byte{
		[]byte("top-secret"),
		[]byte(""),
		[]byte{0x00},
		bytes.Repeat([]byte{0xAB}, 4096),
	}

	for _, secret := range secrets {
		wrapped, err := store.Wrap(secret)
		if err != nil {
			t.Fatalf("failed to wrap %d bytes: %v", len(secret), err)
		}

		got, err := store.Unwrap(wrapped)
		if err != nil {
			t.Fatalf("failed to unwrap %d bytes: %v", len(secret), err)
		}

		if !bytes.Equal(got, secret) {
			t.Fatalf("round trip mismatch: got %q, want %q", got, secret)
		}
	}
}

func TestSessionKeyStore_InitializeIdempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Initialize(); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	if gen := store.Generation(); gen != 1 {
		t.Fatalf("generation after initialize: got %d, want 1", gen)
	}

	wrapped, err := store.Wrap([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to wrap: %v", err)
	}

	// A second initialize must not replace the protection key
	if err := store.Initialize(); err != nil {
		t.Fatalf("failed to re-initialize: %v", err)
	}

	if gen := store.Generation(); gen != 1 {
		t.Fatalf("generation after re-initialize: got %d, want 1", gen)
	}

	if _, err := store.Unwrap(wrapped); err != nil {
		t.Fatalf("unwrap after re-initialize: %v", err)
	}
}

func TestSessionKeyStore_LazyInitialization(t *testing.T) {
	store := newTestStore(t)

	if gen := store.Generation(); gen != 0 {
		t.Fatalf("generation before first use: got %d, want 0", gen)
	}

	// Wrap initializes implicitly
	wrapped, err := store.Wrap([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to wrap: %v", err)
	}

	if wrapped.Generation != 1 {
		t.Fatalf("first wrap generation: got %d, want 1", wrapped.Generation)
	}
}

func TestSessionKeyStore_RefreshInvalidates(t *testing.T) {
	store := newTestStore(t)

	w1, err := store.Wrap([]byte("top-secret"))
	if err != nil {
		t.Fatalf("failed to wrap: %v", err)
	}

	got, err := store.Unwrap(w1)
	if err != nil {
		t.Fatalf("failed to unwrap before refresh: %v", err)
	}
	if string(got) != "top-secret" {
		t.Fatalf("unwrap mismatch: got %q", got)
	}

	if err := store.Refresh(); err != nil {
		t.Fatalf("failed to refresh: %v", err)
	}

	_, err = store.Unwrap(w1)
	if !errors.Is(err, ErrStaleGeneration) {
		t.Fatalf("unwrap after refresh: got %v, want ErrStaleGeneration", err)
	}
	if errors.Is(err, ErrAuthFailed) {
		t.Fatal("refresh invalidation must not look like an authentication failure")
	}
}

func TestSessionKeyStore_NeverStaleWithoutRefresh(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 100; i++ {
		wrapped, err := store.Wrap([]byte("secret"))
		if err != nil {
			t.Fatalf("failed to wrap: %v", err)
		}
		if _, err := store.Unwrap(wrapped); errors.Is(err, ErrStaleGeneration) {
			t.Fatal("wrap then unwrap with no refresh reported a stale generation")
		}
	}
}

func TestSessionKeyStore_CorruptionDetected(t *testing.T) {
	store := newTestStore(t)

	wrapped, err := store.Wrap([]byte("top-secret"))
	if err != nil {
		t.Fatalf("failed to wrap: %v", err)
	}

	// Flip one byte at every position of the ciphertext in turn
	for i := range wrapped.Ciphertext {
		corrupted := &WrappedSecret{
			Generation: wrapped.Generation,
			Nonce:      wrapped.Nonce,
			Ciphertext: bytes.Clone(wrapped.Ciphertext),
		}
		corrupted.Ciphertext[i] ^= 0x01

		_, err := store.Unwrap(corrupted)
		if !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("corrupt byte %d: got %v, want ErrAuthFailed", i, err)
		}
		if errors.Is(err, ErrStaleGeneration) {
			t.Fatalf("corrupt byte %d: corruption must not look like a stale generation", i)
		}
	}
}

func TestSessionKeyStore_CorruptNonceDetected(t *testing.T) {
	store := newTestStore(t)

	wrapped, err := store.Wrap([]byte("top-secret"))
	if err != nil {
		t.Fatalf("failed to wrap: %v", err)
	}

	corrupted := &WrappedSecret{
		Generation: wrapped.Generation,
		Nonce:      bytes.Clone(wrapped.Nonce),
		Ciphertext: wrapped.Ciphertext,
	}
	corrupted.Nonce[0] ^= 0x01

	if _, err := store.Unwrap(corrupted); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("corrupt nonce: got %v, want ErrAuthFailed", err)
	}
}

func TestSessionKeyStore_DoubleRefresh(t *testing.T) {
	store := newTestStore(t)

	before, err := store.Wrap([]byte("before both"))
	if err != nil {
		t.Fatalf("failed to wrap: %v", err)
	}

	if err := store.Refresh(); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	between, err := store.Wrap([]byte("between the two"))
	if err != nil {
		t.Fatalf("failed to wrap: %v", err)
	}

	// Surviving the first refresh does not protect against the second
	if _, err := store.Unwrap(between); err != nil {
		t.Fatalf("unwrap between refreshes: %v", err)
	}

	if err := store.Refresh(); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	if _, err := store.Unwrap(before); !errors.Is(err, ErrStaleGeneration) {
		t.Fatalf("secret wrapped before both refreshes: got %v, want ErrStaleGeneration", err)
	}
	if _, err := store.Unwrap(between); !errors.Is(err, ErrStaleGeneration) {
		t.Fatalf("secret wrapped between refreshes: got %v, want ErrStaleGeneration", err)
	}

	if gen := store.Generation(); gen != 3 {
		t.Fatalf("generation after two refreshes: got %d, want 3", gen)
	}
}

func TestSessionKeyStore_UnwrapNil(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Unwrap(nil); !IsValidationError(err) {
		t.Fatalf("unwrap nil: got %v, want validation error", err)
	}
}

func TestSessionKeyStore_IndependentStores(t *testing.T) {
	store1 := newTestStore(t)
	store2 := newTestStore(t)

	wrapped, err := store1.Wrap([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to wrap: %v", err)
	}

	// Same generation, different protection key
	if _, err := store2.Unwrap(wrapped); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("cross-store unwrap: got %v, want ErrAuthFailed", err)
	}

	// Refreshing one store must not affect the other
	if err := store2.Refresh(); err != nil {
		t.Fatalf("failed to refresh: %v", err)
	}
	if _, err := store1.Unwrap(wrapped); err != nil {
		t.Fatalf("unwrap after refreshing an unrelated store: %v", err)
	}
}

func TestSessionKeyStore_CipherSuites(t *testing.T) {
	suites := []CipherSuite{CipherAuto, CipherAES256GCM, CipherChaCha20Poly1305}

	for _, suite := range suites {
		t.Run(suite.String(), func(t *testing.T) {
			store, err := NewSessionKeyStore(&SessionConfig{Cipher: suite})
			if err != nil {
				t.Fatalf("failed to create store: %v", err)
			}

			wrapped, err := store.Wrap([]byte("secret"))
			if err != nil {
				t.Fatalf("failed to wrap: %v", err)
			}

			got, err := store.Unwrap(wrapped)
			if err != nil {
				t.Fatalf("failed to unwrap: %v", err)
			}
			if string(got) != "secret" {
				t.Fatalf("round trip mismatch: got %q", got)
			}
		})
	}
}

func TestSessionKeyStore_InvalidCipher(t *testing.T) {
	if _, err := NewSessionKeyStore(&SessionConfig{Cipher: CipherSuite(99)}); !IsValidationError(err) {
		t.Fatalf("invalid cipher: got %v, want validation error", err)
	}
}

func TestSessionKeyStore_ConcurrentWrapAgainstRefresh(t *testing.T) {
	store := newTestStore(t)

	if err := store.Initialize(); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	const workers = 32
	const wrapsPerWorker = 50

	type result struct {
		wrapped *WrappedSecret
		secret  []byte
	}

	results := make(chan result, workers*wrapsPerWorker)
	var wg sync.WaitGroup

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			<-start
			secret := []byte{byte(id)}
			for j := 0; j < wrapsPerWorker; j++ {
				wrapped, err := store.Wrap(secret)
				if err != nil {
					t.Errorf("wrap failed during refresh race: %v", err)
					return
				}
				results <- result{wrapped: wrapped, secret: secret}
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		if err := store.Refresh(); err != nil {
			t.Errorf("refresh failed: %v", err)
		}
	}()

	close(start)
	wg.Wait()
	close(results)

	current := store.Generation()
	if current != 2 {
		t.Fatalf("generation after refresh: got %d, want 2", current)
	}

	// Every wrap completed under exactly one generation: secrets tagged with
	// the current generation must unwrap, all others must be cleanly stale.
	for r := range results {
		if r.wrapped.Generation != 1 && r.wrapped.Generation != current {
			t.Fatalf("wrap produced generation %d, want 1 or %d", r.wrapped.Generation, current)
		}

		got, err := store.Unwrap(r.wrapped)
		if r.wrapped.Generation == current {
			if err != nil {
				t.Fatalf("unwrap of current-generation secret: %v", err)
			}
			if !bytes.Equal(got, r.secret) {
				t.Fatalf("unwrap mismatch: got %v, want %v", got, r.secret)
			}
		} else if !errors.Is(err, ErrStaleGeneration) {
			t.Fatalf("unwrap of retired-generation secret: got %v, want ErrStaleGeneration", err)
		}
	}
}

func TestSessionKeyStore_ConcurrentUnwrap(t *testing.T) {
	store := newTestStore(t)

	wrapped, err := store.Wrap([]byte("shared secret"))
	if err != nil {
		t.Fatalf("failed to wrap: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, err := store.Unwrap(wrapped)
				if err != nil {
					t.Errorf("concurrent unwrap failed: %v", err)
					return
				}
				if string(got) != "shared secret" {
					t.Errorf("concurrent unwrap mismatch: got %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

// The end-to-end scenario from the contract: wrap, unwrap, refresh, stale.
func TestSessionKeyStore_Scenario(t *testing.T) {
	store := newTestStore(t)

	w1, err := store.Wrap([]byte("top-secret"))
	if err != nil {
		t.Fatalf("failed to wrap: %v", err)
	}

	got, err := store.Unwrap(w1)
	if err != nil {
		t.Fatalf("failed to unwrap: %v", err)
	}
	if string(got) != "top-secret" {
		t.Fatalf("unwrap: got %q, want %q", got, "top-secret")
	}

	if err := store.Refresh(); err != nil {
		t.Fatalf("failed to refresh: %v", err)
	}

	if _, err := store.Unwrap(w1); !IsStaleGeneration(err) {
		t.Fatalf("unwrap after refresh: got %v, want stale generation", err)
	}
}
