package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// EnableEncryption encrypts all record and settings files with the given
// passphrase. Partially encrypted state is rolled back on failure.
func (s *Storage) EnableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return fmt.Errorf("encryption is already enabled")
	}

	if len(passphrase) < 8 {
		return fmt.Errorf("passphrase must be at least 8 characters")
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	// Verification file goes in first so Unlock can validate the passphrase
	verifyPath := filepath.Join(s.baseDir, verifyFile)
	encrypted, err := encryptData([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("failed to encrypt verification file: %w", err)
	}
	if err := os.WriteFile(verifyPath, encrypted, 0644); err != nil {
		return fmt.Errorf("failed to write verification file: %w", err)
	}

	// Only record CSVs and settings JSON are encrypted
	var filesToEncrypt []string
	err = filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if s.shouldSkipEncryption(path) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".csv" || ext == ".json" {
			filesToEncrypt = append(filesToEncrypt, path)
		}

		return nil
	})
	if err != nil {
		os.Remove(verifyPath)
		return fmt.Errorf("failed to scan files: %w", err)
	}

	for _, path := range filesToEncrypt {
		if err := s.encryptFile(path, recipient); err != nil {
			s.rollbackEncryption(filesToEncrypt, identity)
			os.Remove(verifyPath)
			return fmt.Errorf("failed to encrypt %s: %w", filepath.Base(path), err)
		}
	}

	markerPath := filepath.Join(s.baseDir, markerFile)
	if err := os.WriteFile(markerPath, []byte("encrypted"), 0644); err != nil {
		return fmt.Errorf("failed to create marker file: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient

	return nil
}

// DisableEncryption decrypts all data files (requires the current passphrase)
func (s *Storage) DisableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return fmt.Errorf("encryption is not enabled")
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
		return fmt.Errorf("incorrect passphrase")
	}

	var filesToDecrypt []string
	err = filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil // Skip unreadable files
		}
		if isAgeEncrypted(data) {
			filesToDecrypt = append(filesToDecrypt, path)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan files: %w", err)
	}

	for _, path := range filesToDecrypt {
		if err := s.decryptFile(path, identity); err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", filepath.Base(path), err)
		}
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(verifyPath)

	s.encrypted = false
	s.identity = nil
	s.recipient = nil

	return nil
}

// encryptFile encrypts a single file in place
func (s *Storage) encryptFile(path string, recipient *age.ScryptRecipient) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isAgeEncrypted(data) {
		return nil
	}

	encrypted, err := encryptData(data, recipient)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, encrypted, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// decryptFile decrypts a single file in place
func (s *Storage) decryptFile(path string, identity *age.ScryptIdentity) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !isAgeEncrypted(data) {
		return nil
	}

	decrypted, err := decryptData(data, identity)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, decrypted, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// rollbackEncryption best-effort decrypts files touched by a failed migration
func (s *Storage) rollbackEncryption(files []string, identity *age.ScryptIdentity) {
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if !isAgeEncrypted(data) {
			continue
		}

		decrypted, err := decryptData(data, identity)
		if err != nil {
			continue
		}

		os.WriteFile(path, decrypted, 0644)
	}
}
