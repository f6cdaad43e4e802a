// Package storage provides transparent encrypted/unencrypted access to the
// record data directory. Encryption uses age with a passphrase-derived key;
// a marker file signals that the directory is encrypted and a verification
// file validates the passphrase before anything is decrypted.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filippo.io/age"
)

const (
	// ageHeader is the prefix of age-encrypted files
	ageHeader = "age-encryption.org"

	// markerFile indicates encryption is enabled
	markerFile = ".encrypted"

	// verifyFile is used to validate the passphrase
	verifyFile = ".encryption-verify"

	// verifyMagic is the expected content in the verify file
	verifyMagic = `{"magic":"pocketmoney-encryption-verify","version":1}`
)

// Storage mediates file access for the data directory
type Storage struct {
	baseDir   string
	encrypted bool
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	mu        sync.RWMutex
}

// New creates a Storage for the given base directory
func New(baseDir string) (*Storage, error) {
	s := &Storage{baseDir: baseDir}

	markerPath := filepath.Join(baseDir, markerFile)
	if _, err := os.Stat(markerPath); err == nil {
		s.encrypted = true
	}

	return s, nil
}

// BaseDir returns the base directory
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// IsEncrypted returns true if the data directory is encrypted
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked returns true if the directory is readable: either unencrypted,
// or encrypted with a verified passphrase held in memory
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.identity != nil
}

// Unlock verifies the passphrase and keeps the derived key in memory
func (s *Storage) Unlock(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	encrypted, err := os.ReadFile(verifyPath)
	if err != nil {
		return fmt.Errorf("failed to read verification file: %w", err)
	}

	decrypted, err := decryptData(encrypted, identity)
	if err != nil {
		return fmt.Errorf("incorrect passphrase")
	}
	if string(decrypted) != verifyMagic {
		return fmt.Errorf("incorrect passphrase (verification failed)")
	}

	s.identity = identity
	s.recipient, _ = age.NewScryptRecipient(passphrase)

	return nil
}

// Lock clears the derived key from memory
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.recipient = nil
}

// ReadFile reads and, when needed, decrypts a file
func (s *Storage) ReadFile(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isAgeEncrypted(data) {
		if s.identity == nil {
			return nil, fmt.Errorf("file is encrypted but storage is locked")
		}
		return decryptData(data, s.identity)
	}

	return data, nil
}

// WriteFile writes and, when encryption is enabled, encrypts a file
func (s *Storage) WriteFile(path string, data []byte, perm os.FileMode) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.shouldSkipEncryption(path) {
		return s.atomicWrite(path, data, perm)
	}

	if s.encrypted && s.recipient != nil {
		encrypted, err := encryptData(data, s.recipient)
		if err != nil {
			return fmt.Errorf("failed to encrypt: %w", err)
		}
		data = encrypted
	}

	return s.atomicWrite(path, data, perm)
}

// OpenFile returns a reader for a potentially encrypted file
func (s *Storage) OpenFile(path string) (io.ReadCloser, error) {
	data, err := s.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// atomicWrite writes data through a temp file and a rename
func (s *Storage) atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// shouldSkipEncryption returns true for files that stay plaintext: the
// encryption bookkeeping files and generated report exports
func (s *Storage) shouldSkipEncryption(path string) bool {
	base := filepath.Base(path)

	if base == markerFile || base == verifyFile {
		return true
	}

	if strings.Contains(path, "/exports/") || strings.Contains(path, "\\exports\\") {
		return true
	}

	return false
}

// isAgeEncrypted checks if data starts with the age encryption header
func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}

// encryptData encrypts data for the given recipient
func encryptData(data []byte, recipient *age.ScryptRecipient) ([]byte, error) {
	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decryptData decrypts age-encrypted data with the given identity
func decryptData(data []byte, identity *age.ScryptIdentity) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// Stat returns file info, useful for checking existence
func (s *Storage) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// Glob returns files matching a pattern
func (s *Storage) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// MkdirAll creates a directory and all parents
func (s *Storage) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Remove removes a file
func (s *Storage) Remove(path string) error {
	return os.Remove(path)
}
