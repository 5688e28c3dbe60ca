package sessions

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	// EncryptedFileName is the file the encrypted store writes in its directory
	EncryptedFileName = "sessions.enc"
	passphraseFile    = ".passphrase"
)

// ErrDecrypt is returned when the session file cannot be opened with the
// configured passphrase
var ErrDecrypt = errors.New("failed to decrypt session file")

// EncryptedFileStore keeps every record in a single AES-GCM encrypted file.
// The key is derived from a passphrase with PBKDF2.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// encryptedFile is the on-disk envelope
type encryptedFile struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// NewEncryptedFileStore creates an encrypted store in dir. An empty
// passphrase is read from, or generated into, a .passphrase file next to the
// session file.
func NewEncryptedFileStore(dir, passphrase string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if passphrase == "" {
		var err error
		passphrase, err = loadPassphrase(filepath.Join(dir, passphraseFile))
		if err != nil {
			return nil, fmt.Errorf("failed to get passphrase: %w", err)
		}
	}

	return &EncryptedFileStore{
		path:       filepath.Join(dir, EncryptedFileName),
		passphrase: passphrase,
	}, nil
}

// Get returns the record for username
func (e *EncryptedFileStore) Get(_ context.Context, username string) (*Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records, _, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	record, ok := records[username]
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

// Put saves record, re-encrypting the whole file
func (e *EncryptedFileStore) Put(_ context.Context, record *Record) error {
	if err := validate(record); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	records, salt, err := e.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load existing data: %w", err)
	}
	if records == nil {
		records = make(map[string]*Record)
	}
	records[record.Username] = record.Clone()

	return e.save(records, salt)
}

// Delete removes the record for username. The file is removed with the last record.
func (e *EncryptedFileStore) Delete(_ context.Context, username string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, salt, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if _, ok := records[username]; !ok {
		return nil
	}
	delete(records, username)

	if len(records) == 0 {
		return os.Remove(e.path)
	}
	return e.save(records, salt)
}

// List returns the stored usernames in sorted order
func (e *EncryptedFileStore) List(_ context.Context) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records, _, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// load decrypts the file into its records and the salt it was sealed with
func (e *EncryptedFileStore) load() (map[string]*Record, []byte, error) {
	raw, err := os.ReadFile(e.path)
	if err != nil {
		return nil, nil, err
	}
	var env encryptedFile
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to parse file: %w", err)
	}
	salt, sealed, err := env.decode()
	if err != nil {
		return nil, nil, err
	}
	plain, err := unseal(deriveKey(e.passphrase, salt), sealed)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	records := map[string]*Record{}
	if err := json.Unmarshal(plain, &records); err != nil {
		return nil, nil, fmt.Errorf("failed to parse sessions: %w", err)
	}
	return records, salt, nil
}

// save seals records under salt, generating a salt for a new file
func (e *EncryptedFileStore) save(records map[string]*Record, salt []byte) error {
	var err error
	if salt == nil {
		if salt, err = randomBytes(saltSize); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}
	plain, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}
	sealed, err := seal(deriveKey(e.passphrase, salt), plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt data: %w", err)
	}
	raw, err := json.MarshalIndent(encryptedFile{
		Salt:      b64.EncodeToString(salt),
		Encrypted: b64.EncodeToString(sealed),
		Version:   1,
		Modified:  time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal file data: %w", err)
	}
	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return os.Rename(tmp, e.path)
}

var b64 = base64.StdEncoding

func (f encryptedFile) decode() (salt, sealed []byte, err error) {
	if salt, err = b64.DecodeString(f.Salt); err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	if sealed, err = b64.DecodeString(f.Encrypted); err != nil {
		return nil, nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}
	return salt, sealed, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// loadPassphrase returns the passphrase kept at path, writing a random one
// there first if the file is missing or empty
func loadPassphrase(path string) (string, error) {
	if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
		return string(b), nil
	}
	b, err := randomBytes(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(b)
	if err := os.WriteFile(path, []byte(passphrase), 0o600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plain with AES-GCM; the output is nonce||ciphertext
func seal(key, plain []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce, err := randomBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func unseal(key, sealed []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	n := aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("ciphertext too short")
	}
	return aead.Open(nil, sealed[:n], sealed[n:], nil)
}
