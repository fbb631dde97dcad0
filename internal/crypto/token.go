package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Token payloads are AES-256-GCM with a 16-byte nonce, serialized as
// ivHex:tagHex:cipherHex. The layout predates this module and must stay
// readable for connections sealed by earlier builds.

const (
	keySalt   = "pulse-board-salt"
	nonceSize = 16
	tagSize   = 16
)

var ErrMalformedPayload = errors.New("invalid encrypted token format")

func deriveKey(secret string) ([]byte, error) {
	return scrypt.Key([]byte(secret), []byte(keySalt), 16384, 8, 1, 32)
}

// Seal encrypts token with a key derived from secret.
func Seal(token, secret string) (string, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return "", fmt.Errorf("deriving key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return "", fmt.Errorf("creating gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(token), nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

// Open decrypts a payload produced by Seal (or by the legacy sealing
// code sharing the same wire format).
func Open(payload, secret string) (string, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", ErrMalformedPayload
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", ErrMalformedPayload
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformedPayload
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedPayload
	}
	if len(nonce) != nonceSize || len(tag) != tagSize {
		return "", ErrMalformedPayload
	}

	key, err := deriveKey(secret)
	if err != nil {
		return "", fmt.Errorf("deriving key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return "", fmt.Errorf("creating gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("decrypting token: %w", err)
	}

	return string(plaintext), nil
}
