// Package cyphr provides high-level key management and encryption
// conveniences over modern authenticated cryptography, built around a
// session-scoped key protection mechanism.
//
// # Overview
//
// cyphr exposes a single Key abstraction with symmetric (NaCl secretbox),
// Curve25519 (NaCl box) and RSA hybrid backends, plus convenience helpers for
// encrypting strings, objects, byte buffers and whole files. Sensitive key
// material is never held in plaintext: every key wraps its secret in a
// SessionKeyStore and unwraps it just-in-time for each operation.
//
// # Session key protection
//
// A SessionKeyStore owns an ephemeral protection key generated once per
// process lifetime. Key objects hold their secrets only as WrappedSecret
// values sealed under that protection key, so a key object that leaks into a
// serialized session, a log or a crash dump is useless outside the process
// that created it.
//
// Refresh replaces the protection key and increments its generation,
// permanently invalidating everything wrapped before the call. Unwrap
// distinguishes the two failure modes precisely:
//
//   - ErrStaleGeneration: the secret was wrapped under a retired generation.
//     This is the expected outcome after Refresh, not a bug.
//   - ErrAuthFailed: the ciphertext failed integrity verification under the
//     matching generation. The data is corrupt or was tampered with.
//
// # Basic Usage
//
//	store, err := cyphr.NewSessionKeyStore(nil)
//	if err != nil {
//	    panic(err)
//	}
//
//	key, err := cyphr.GenerateSymmetricKey(store)
//	if err != nil {
//	    panic(err)
//	}
//
//	ciphertext, _ := cyphr.EncryptString(key, "top-secret")
//	plaintext, _ := cyphr.DecryptString(key, ciphertext)
//
//	// Invalidate every secret wrapped so far
//	store.Refresh()
//
//	_, err = cyphr.DecryptString(key, ciphertext)
//	// cyphr.IsStaleGeneration(err) == true
//
// # File encryption
//
// EncryptFile and DecryptFile move whole files through a Key, optionally
// against any absfs.FileSystem. EncryptTo and DecryptFrom adapt arbitrary
// "write to path" and "read from path" functions, routing their plaintext
// through a temporary file that is removed on every exit path:
//
//	err := cyphr.EncryptTo(key, "data.enc", func(path string) error {
//	    return os.WriteFile(path, report, 0600)
//	})
//
// # Security Considerations
//
// Protected Against:
//   - Accidental persistence of key objects (session serialization, dumps)
//   - Use of key material after an explicit Refresh
//   - Data tampering and corruption (authenticated encryption throughout)
//
// Not Protected Against:
//   - Memory dumps taken while a secret is unwrapped for an operation
//   - Side-channel attacks (timing, cache)
//   - Compromised processes that can call Unwrap themselves
//
// The protection key never leaves memory and is zeroed on replacement; Go
// offers no guarantee against runtime copies, so zeroing is best effort.
package cyphr
