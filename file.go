package cyphr

import (
	"io"
	"os"
	"path/filepath"

	"github.com/absfs/absfs"
	"github.com/google/uuid"
)

// EncryptFile reads plaintext from src, encrypts it with the given key and
// writes the ciphertext to dst with 0600 permissions. A nil fsys selects the
// OS filesystem; pass any absfs.FileSystem to work against something else.
func EncryptFile(key Key, src, dst string, fsys absfs.FileSystem) error {
	plaintext, err := readFile(fsys, src)
	if err != nil {
		return err
	}
	defer Zero(plaintext)

	ciphertext, err := key.Encrypt(plaintext)
	if err != nil {
		return NewEncryptionError("encrypt", src, err)
	}

	return writeFile(fsys, dst, ciphertext, 0600)
}

// DecryptFile reads ciphertext from src, decrypts it with the given key and
// writes the plaintext to dst. The decrypted file is written with 0600
// permissions; loosen it afterwards if the content is not sensitive.
func DecryptFile(key Key, src, dst string, fsys absfs.FileSystem) error {
	ciphertext, err := readFile(fsys, src)
	if err != nil {
		return err
	}

	plaintext, err := key.Decrypt(ciphertext)
	if err != nil {
		return NewEncryptionError("decrypt", src, err)
	}
	defer Zero(plaintext)

	return writeFile(fsys, dst, plaintext, 0600)
}

// EncryptTo runs write against a temporary path and encrypts whatever it
// wrote to dest. The temporary file is removed on every exit path, so the
// plaintext only ever exists at a short-lived private location. This is the
// way to encrypt the output of any function that knows how to write a file:
//
//	err := cyphr.EncryptTo(key, "report.csv.enc", func(path string) error {
//	    return writeReport(path)
//	})
func EncryptTo(key Key, dest string, write func(path string) error) error {
	tmp, cleanup := tempPath()
	defer cleanup()

	if err := write(tmp); err != nil {
		return err
	}

	return EncryptFile(key, tmp, dest, nil)
}

// DecryptFrom decrypts src to a temporary path and runs read against it,
// removing the temporary plaintext on every exit path. This is the inverse
// of EncryptTo for any function that knows how to read a file.
func DecryptFrom(key Key, src string, read func(path string) error) error {
	tmp, cleanup := tempPath()
	defer cleanup()

	if err := DecryptFile(key, src, tmp, nil); err != nil {
		return err
	}

	return read(tmp)
}

// tempPath returns a unique path under the OS temp directory and a cleanup
// function that removes whatever ends up there
func tempPath() (string, func()) {
	path := filepath.Join(os.TempDir(), "cyphr-"+uuid.NewString())
	cleanup := func() {
		os.Remove(path)
	}
	return path, cleanup
}

func readFile(fsys absfs.FileSystem, path string) ([]byte, error) {
	if fsys == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewIOError("read", path, err)
		}
		return data, nil
	}

	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, NewIOError("open", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, NewIOError("read", path, err)
	}
	return data, nil
}

func writeFile(fsys absfs.FileSystem, path string, data []byte, perm os.FileMode) error {
	if fsys == nil {
		if err := os.WriteFile(path, data, perm); err != nil {
			return NewIOError("write", path, err)
		}
		return nil
	}

	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return NewIOError("open", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return NewIOError("write", path, err)
	}

	if err := f.Close(); err != nil {
		return NewIOError("close", path, err)
	}
	return nil
}
