package cyphr

import (
	"bytes"
	"encoding/gob"
)

// EncryptData encrypts a raw byte buffer with the given key
func EncryptData(key Key, data []byte) ([]byte, error) {
	return key.Encrypt(data)
}

// DecryptData decrypts a raw byte buffer with the given key
func DecryptData(key Key, ciphertext []byte) ([]byte, error) {
	return key.Decrypt(ciphertext)
}

// EncryptString encrypts a string with the given key
func EncryptString(key Key, s string) ([]byte, error) {
	return key.Encrypt([]byte(s))
}

// DecryptString decrypts a ciphertext produced by EncryptString
func DecryptString(key Key, ciphertext []byte) (string, error) {
	plaintext, err := key.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptObject gob-serializes v and encrypts it with the given key
func EncryptObject(key Key, v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, NewEncryptionError("encrypt", "", err)
	}
	return key.Encrypt(buf.Bytes())
}

// DecryptObject decrypts a ciphertext produced by EncryptObject and
// gob-deserializes it into v, which must be a pointer
func DecryptObject(key Key, ciphertext []byte, v any) error {
	plaintext, err := key.Decrypt(ciphertext)
	if err != nil {
		return err
	}
	defer Zero(plaintext)

	if err := gob.NewDecoder(bytes.NewReader(plaintext)).Decode(v); err != nil {
		return NewEncryptionError("decrypt", "", err)
	}
	return nil
}
