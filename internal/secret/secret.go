// Package secret seals and opens connection passwords stored in the catalog.
//
// A sealed password is base64(nonce || ciphertext) produced with
// XChaCha20-Poly1305 under a 32-byte key. Passwords are only opened when the
// engine builds an adapter config.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// EnvPrefix marks a catalog password that names an environment variable
// instead of carrying ciphertext.
const EnvPrefix = "env:"

// ErrNoKey is returned when a sealed password is opened without a key.
var ErrNoKey = errors.New("secret key not configured")

// Decrypter opens sealed connection passwords.
type Decrypter interface {
	Decrypt(sealed string) (string, error)
}

// Box seals and opens secrets with one key.
type Box struct {
	key []byte
}

// GenerateKey returns a new random key, base64 encoded.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// NewBox builds a Box from a base64 key. An empty key yields a Box that can
// only resolve empty and env: passwords.
func NewBox(encodedKey string) (*Box, error) {
	if encodedKey == "" {
		return &Box{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, fmt.Errorf("secret key is not valid base64: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Box{key: key}, nil
}

// Encrypt seals plaintext.
func (b *Box) Encrypt(plaintext string) (string, error) {
	if b.key == nil {
		return "", ErrNoKey
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a sealed password. Empty input yields an empty password and
// "env:NAME" reads NAME from the environment.
func (b *Box) Decrypt(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	if name, ok := strings.CutPrefix(sealed, EnvPrefix); ok {
		v, found := os.LookupEnv(name)
		if !found {
			return "", fmt.Errorf("password variable %s is not set", name)
		}
		return v, nil
	}
	if b.key == nil {
		return "", ErrNoKey
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("sealed password is not valid base64: %w", err)
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", errors.New("sealed password is too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open sealed password: %w", err)
	}
	return string(plain), nil
}

var _ Decrypter = (*Box)(nil)
