package cyphr

// Key is the unifying abstraction over the symmetric and asymmetric backends.
// Every higher-level convenience (data, string, object and file helpers)
// takes a Key and dispatches to whichever backend implements it.
type Key interface {
	// Encrypt encrypts plaintext and returns a self-contained ciphertext
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt decrypts a ciphertext produced by Encrypt on a compatible key
	Decrypt(ciphertext []byte) ([]byte, error)
}
