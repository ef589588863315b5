package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Token values are encrypted at rest with AES-256-GCM. The key is derived
// with PBKDF2-SHA-256 from a random master secret kept next to the
// database with 0600 permissions.
const (
	encryptedPrefix  = "ENC:"
	masterSecretSize = 32
	saltSize         = 16
	keySize          = 32
	pbkdf2Iterations = 10000
)

type valueCipher struct {
	aead cipher.AEAD
}

// loadValueCipher loads the key file, generating it on first use
func loadValueCipher(path string) (*valueCipher, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		raw = make([]byte, saltSize+masterSecretSize)
		if _, err := io.ReadFull(rand.Reader, raw); err != nil {
			return nil, fmt.Errorf("failed to generate store key: %w", err)
		}
		if err := os.WriteFile(path, raw, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write store key: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read store key: %w", err)
	}

	if len(raw) != saltSize+masterSecretSize {
		return nil, fmt.Errorf("store key file is corrupt")
	}

	key := pbkdf2.Key(raw[saltSize:], raw[:saltSize], pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	return &valueCipher{aead: aead}, nil
}

// seal encrypts a value and encodes it as ENC:base64(nonce|ciphertext)
func (c *valueCipher) seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// open decrypts a value produced by seal
func (c *valueCipher) open(value string) (string, error) {
	if !strings.HasPrefix(value, encryptedPrefix) {
		return "", fmt.Errorf("value is not encrypted")
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted value: %w", err)
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", fmt.Errorf("encrypted value too short")
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value: %w", err)
	}

	return string(plaintext), nil
}
