package config

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

	"mlprep/pkg/models"
)

const (
	// EncryptionKeyEnv holds the passphrase ENC[...] values are sealed with.
	EncryptionKeyEnv = "MLPREP_ENCRYPTION_KEY"

	encryptedPrefix  = "ENC["
	encryptedSuffix  = "]"
	pbkdf2Iterations = 100000
	keySize          = 32
)

var keySalt = []byte("mlprep-config-v1")

// getEncryptionKey derives the AES key from EncryptionKeyEnv, falling back to
// a machine-specific passphrase.
func getEncryptionKey() []byte {
	passphrase := os.Getenv(EncryptionKeyEnv)
	if passphrase == "" {
		hostname, _ := os.Hostname()
		homeDir, _ := os.UserHomeDir()
		passphrase = fmt.Sprintf("%s-%s-mlprep", hostname, homeDir)
	}
	return pbkdf2.Key([]byte(passphrase), keySalt, pbkdf2Iterations, keySize, sha256.New)
}

// EncryptPassword encrypts a password using AES-256-GCM
func EncryptPassword(password string) (string, error) {
	if password == "" || IsEncrypted(password) {
		return password, nil
	}

	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(password), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext) + encryptedSuffix, nil
}

// DecryptPassword decrypts a value produced by EncryptPassword. Plain
// values are returned unchanged.
func DecryptPassword(encrypted string) (string, error) {
	if !IsEncrypted(encrypted) {
		return encrypted, nil
	}

	encoded := strings.TrimSuffix(strings.TrimPrefix(encrypted, encryptedPrefix), encryptedSuffix)
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted value: %w", err)
	}

	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value: %w", err)
	}
	return string(plaintext), nil
}

// IsEncrypted checks if a string is encrypted
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encryptedPrefix) && strings.HasSuffix(value, encryptedSuffix)
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(getEncryptionKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// EncryptSecrets encrypts the plaintext secrets of cfg in place and reports
// whether anything changed.
func EncryptSecrets(cfg *models.Config) (bool, error) {
	changed := false
	for _, secret := range []*string{&cfg.Warehouse.Snowflake.Password, &cfg.Warehouse.Postgres.DSN} {
		if *secret == "" || IsEncrypted(*secret) {
			continue
		}
		encrypted, err := EncryptPassword(*secret)
		if err != nil {
			return false, err
		}
		*secret = encrypted
		changed = true
	}
	return changed, nil
}
