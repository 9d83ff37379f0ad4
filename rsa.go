package cyphr

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

// DefaultRSABits is the RSA modulus size used when none is specified
const DefaultRSABits = 2048

const (
	rsaPrivatePEMType = "RSA PRIVATE KEY"
	rsaPublicPEMType  = "PUBLIC KEY"
)

// RSAKey is an RSA public/private key pair doing hybrid encryption: each
// message is sealed with a fresh ChaCha20-Poly1305 data key, and the data key
// is encrypted to the RSA public half with OAEP. The private half is held
// session-wrapped as PKCS#1 DER and unwrapped just-in-time.
//
// Ciphertext layout: 2-byte big-endian length of the RSA-encrypted data key,
// the encrypted data key, the AEAD nonce, then the sealed payload.
type RSAKey struct {
	store          *SessionKeyStore
	public         *rsa.PublicKey
	wrappedPrivate *WrappedSecret
}

// GenerateRSAKey creates a fresh RSA key pair with the private half wrapped
// in the given store. A bits value of 0 selects DefaultRSABits.
func GenerateRSAKey(store *SessionKeyStore, bits int) (*RSAKey, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if bits == 0 {
		bits = DefaultRSABits
	}

	private, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	return newRSAKey(store, private)
}

func newRSAKey(store *SessionKeyStore, private *rsa.PrivateKey) (*RSAKey, error) {
	der := x509.MarshalPKCS1PrivateKey(private)
	defer Zero(der)

	wrapped, err := store.Wrap(der)
	if err != nil {
		return nil, err
	}

	return &RSAKey{
		store:          store,
		public:         &private.PublicKey,
		wrappedPrivate: wrapped,
	}, nil
}

// LoadRSAKey loads a PEM-encoded RSA private key from disk and wraps the
// private half in the given store
func LoadRSAKey(store *SessionKeyStore, path string) (*RSAKey, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewIOError("read", path, err)
	}
	defer Zero(data)

	block, _ := pem.Decode(data)
	if block == nil || block.Type != rsaPrivatePEMType {
		return nil, NewValidationError("path", path, "failed to decode PEM block containing private key")
	}

	private, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	Zero(block.Bytes)

	return newRSAKey(store, private)
}

// LoadRSAPublicKey loads a PEM-encoded RSA public key from disk. The result
// can encrypt but not decrypt.
func LoadRSAPublicKey(path string) (*RSAKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewIOError("read", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != rsaPublicPEMType {
		return nil, NewValidationError("path", path, "failed to decode PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, NewValidationError("path", path, "not an RSA public key")
	}

	return &RSAKey{public: rsaPub}, nil
}

// WriteRSAKeyPair generates a fresh RSA key pair and writes both halves to
// disk as PEM files, the private half with 0600 permissions. A bits value of
// 0 selects DefaultRSABits.
func WriteRSAKeyPair(privatePath, publicPath string, bits int) error {
	if bits == 0 {
		bits = DefaultRSABits
	}

	private, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(privatePath), 0700); err != nil {
		return NewIOError("mkdir", filepath.Dir(privatePath), err)
	}
	if err := os.MkdirAll(filepath.Dir(publicPath), 0700); err != nil {
		return NewIOError("mkdir", filepath.Dir(publicPath), err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  rsaPrivatePEMType,
		Bytes: x509.MarshalPKCS1PrivateKey(private),
	})
	defer Zero(privPEM)
	if err := os.WriteFile(privatePath, privPEM, 0600); err != nil {
		return NewIOError("write", privatePath, err)
	}

	pubASN1, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  rsaPublicPEMType,
		Bytes: pubASN1,
	})
	if err := os.WriteFile(publicPath, pubPEM, 0644); err != nil {
		return NewIOError("write", publicPath, err)
	}

	return nil
}

// Encrypt seals plaintext with a fresh data key and encrypts the data key to
// the public half
func (k *RSAKey) Encrypt(plaintext []byte) ([]byte, error) {
	dataKey := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, newEntropyError("generate data key", err)
	}
	defer Zero(dataKey)

	engine, err := NewChaCha20Poly1305Engine(dataKey)
	if err != nil {
		return nil, err
	}

	nonce, err := generateNonce(engine)
	if err != nil {
		return nil, err
	}

	sealed, err := engine.Encrypt(nonce, plaintext)
	if err != nil {
		return nil, err
	}

	encKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, k.public, dataKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt data key: %w", err)
	}

	out := make([]byte, 0, 2+len(encKey)+len(nonce)+len(sealed))
	out = binary.BigEndian.AppendUint16(out, uint16(len(encKey)))
	out = append(out, encKey...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt recovers the data key with the private half and opens the sealed
// payload
func (k *RSAKey) Decrypt(ciphertext []byte) ([]byte, error) {
	if k.wrappedPrivate == nil {
		return nil, ErrNoPrivateKey
	}
	if len(ciphertext) < 2 {
		return nil, ErrInvalidCiphertext
	}

	keyLen := int(binary.BigEndian.Uint16(ciphertext))
	rest := ciphertext[2:]
	if len(rest) < keyLen+chacha20poly1305.NonceSize {
		return nil, ErrInvalidCiphertext
	}
	encKey := rest[:keyLen]
	nonce := rest[keyLen : keyLen+chacha20poly1305.NonceSize]
	sealed := rest[keyLen+chacha20poly1305.NonceSize:]

	der, err := k.store.Unwrap(k.wrappedPrivate)
	if err != nil {
		return nil, err
	}
	defer Zero(der)

	private, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	dataKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, private, encKey, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	defer Zero(dataKey)

	engine, err := NewChaCha20Poly1305Engine(dataKey)
	if err != nil {
		return nil, err
	}

	return engine.Decrypt(nonce, sealed)
}
