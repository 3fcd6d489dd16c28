package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/crypto/scrypt"
)

// Secrets file configuration.
const (
	secretsFileName = "secrets.json.enc"
	saltSize        = 16
	nonceSize       = 12
	scryptN         = 32768 // 2^15
	scryptR         = 8
	scryptP         = 1
	keySize         = 32 // AES-256
)

// Well-known secret names.
const (
	SecretPyPIUsername = "PYPI_USERNAME"
	SecretPyPIPassword = "PYPI_PASSWORD"
	SecretSnapshotUser = "SNAPSHOT_USER"
	SecretSnapshotPass = "SNAPSHOT_PASS"
)

// ErrWrongPassword is returned when the secrets file cannot be decrypted.
var ErrWrongPassword = errors.New("decryption failed (wrong password or corrupted file)")

// SecretStore is an encrypted name/value store for release credentials.
// File layout: [salt][nonce][ciphertext+tag].
type SecretStore struct {
	values map[string]string
	path   string
}

// NewSecretStore returns an empty store bound to path.
func NewSecretStore(path string) *SecretStore {
	return &SecretStore{path: path, values: make(map[string]string)}
}

// Exists reports whether the store file is present.
func (s *SecretStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the store file path.
func (s *SecretStore) Path() string {
	return s.path
}

// Get returns a secret value, or "" when it is not set.
func (s *SecretStore) Get(name string) string {
	return s.values[name]
}

// Set stores a value in memory. Call Save to persist it.
func (s *SecretStore) Set(name, value string) {
	s.values[name] = value
}

// Names returns the stored secret names (not values), sorted.
func (s *SecretStore) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unlock decrypts the store file into memory.
func (s *SecretStore) Unlock(password string) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat secrets file: %w", err)
	}
	if info.Mode().Perm() != 0600 {
		if chmodErr := os.Chmod(s.path, 0600); chmodErr != nil {
			return fmt.Errorf("failed to fix file permissions: %w", chmodErr)
		}
	}

	fileData, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read secrets file: %w", err)
	}

	minSize := saltSize + nonceSize + 16 // 16 is GCM tag size
	if len(fileData) < minSize {
		return fmt.Errorf("secrets file is corrupted or invalid format (too small)")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	gcm, wipe, err := newGCM(password, salt)
	if err != nil {
		return err
	}
	defer wipe()

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrWrongPassword
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return fmt.Errorf("failed to parse secrets: %w", err)
	}
	s.values = values
	return nil
}

// Save encrypts the in-memory values to the store file with 0600 permissions.
func (s *SecretStore) Save(password string) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, wipe, err := newGCM(password, salt)
	if err != nil {
		return err
	}
	defer wipe()

	plaintext, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create secrets directory: %w", err)
	}
	if err := os.WriteFile(s.path, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// newGCM derives an AES-GCM cipher from the password. The returned func zeroes the key.
func newGCM(password string, salt []byte) (cipher.AEAD, func(), error) {
	passwordBytes := []byte(password)
	defer func() {
		for i := range passwordBytes {
			passwordBytes[i] = 0
		}
	}()

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	wipe := func() {
		for i := range key {
			key[i] = 0
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		wipe()
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		wipe()
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, wipe, nil
}
