package sessions

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the session in a single file sealed with secretbox. The
// key is derived from a passphrase with argon2id and a per-write salt.
// File layout: salt | nonce | sealed box.
type FileStore struct {
	path       string
	passphrase []byte
	lock       sync.Mutex
}

func NewFileStore(path, passphrase string) *FileStore {
	return &FileStore{path: path, passphrase: []byte(passphrase)}
}

func (f *FileStore) Get() (*Stored, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileStore Get] read %s: %w", f.path, err)
	}

	stored, err := f.open(data)
	if err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("discarding unreadable session file")
		return nil, f.clear()
	}
	if stored.Session.Expired(NowTimeFunc()) {
		return nil, f.clear()
	}
	return stored, nil
}

func (f *FileStore) Set(session Session, user User) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	plain, err := json.Marshal(Stored{Session: session, User: user})
	if err != nil {
		return fmt.Errorf("[FileStore Set] marshal: %w", err)
	}
	sealed, err := f.seal(plain)
	if err != nil {
		return fmt.Errorf("[FileStore Set] seal: %w", err)
	}
	return writeFileAtomic(f.path, sealed)
}

func (f *FileStore) Clear() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.clear()
}

func (f *FileStore) clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[FileStore Clear] remove %s: %w", f.path, err)
	}
	return nil
}

func (f *FileStore) key(salt []byte) *[keyLength]byte {
	var key [keyLength]byte
	copy(key[:], argon2.IDKey(f.passphrase, salt, 1, 64*1024, 4, keyLength))
	return &key
}

func (f *FileStore) seal(plain []byte) ([]byte, error) {
	header := make([]byte, saltLength+nonceLength)
	if _, err := rand.Read(header); err != nil {
		return nil, err
	}
	var nonce [nonceLength]byte
	copy(nonce[:], header[saltLength:])
	return secretbox.Seal(header, plain, &nonce, f.key(header[:saltLength])), nil
}

func (f *FileStore) open(data []byte) (*Stored, error) {
	if len(data) < saltLength+nonceLength+secretbox.Overhead {
		return nil, errors.New("session file too short")
	}
	var nonce [nonceLength]byte
	copy(nonce[:], data[saltLength:saltLength+nonceLength])

	plain, ok := secretbox.Open(nil, data[saltLength+nonceLength:], &nonce, f.key(data[:saltLength]))
	if !ok {
		return nil, errors.New("session file could not be decrypted")
	}

	var stored Stored
	if err := json.Unmarshal(plain, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[FileStore Set] mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("[FileStore Set] create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore Set] write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore Set] chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileStore Set] close: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
