package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
)

// EncodingAESGCM marks histories sealed by the encryption middleware.
const EncodingAESGCM = "aes-gcm"

// ErrNotEncrypted is returned when an encrypted store holds a plain history.
var ErrNotEncrypted = errors.New("history is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	passthrough
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts histories using AES-GCM.
// Saved parameter values and snapshots never reach the store in the clear.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &encryptionMiddleware{
			passthrough: passthrough{next: next},
			config:      config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, documentID string, history *domain.History) error {
	envelope, err := seal(history, EncodingAESGCM, func(plain []byte) ([]byte, error) {
		ct, err := encrypt(plain, m.config.ActiveKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt history: %w", err)
		}
		return ct, nil
	})
	if err != nil {
		return err
	}
	return m.next.Save(ctx, documentID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, documentID string) (*domain.History, error) {
	envelope, err := m.next.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}

	// Fail secure: with encryption configured, plain histories are rejected.
	if envelope.Encoding != EncodingAESGCM || envelope.Sealed == "" {
		return nil, ErrNotEncrypted
	}

	return unseal(envelope, func(ct []byte) ([]byte, error) {
		plain, err := decryptWithRotation(ct, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt history: %w", err)
		}
		return plain, nil
	})
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
