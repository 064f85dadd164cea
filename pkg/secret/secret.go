// Package secret seals small blobs (the session cookie store) at rest.
package secret

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealedPrefix = "sealed1"

// ErrNotSealed is returned by Open for payloads without the sealed prefix.
var ErrNotSealed = errors.New("secret: payload is not sealed")

var (
	keyringGet = keyring.Get
	keyringSet = keyring.Set
	randRead   = rand.Read
)

// Sealer encrypts and decrypts payloads with XChaCha20-Poly1305.
type Sealer struct {
	key []byte
}

// NewSealer wraps a 32 byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secret: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Sealer{key: append([]byte(nil), key...)}, nil
}

// DeriveKey stretches an operator-supplied passphrase into a sealing key.
func DeriveKey(passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("secret: empty passphrase")
	}
	reader := hkdf.New(sha256.New, []byte(passphrase), nil, []byte("timetable-sync cookie store"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("secret: derive key: %w", err)
	}
	return key, nil
}

// KeyringKey loads the sealing key from the OS keyring, creating it on first use.
func KeyringKey(service, user string) ([]byte, error) {
	stored, err := keyringGet(service, user)
	if err == nil {
		key, decodeErr := hex.DecodeString(stored)
		if decodeErr != nil || len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("secret: keyring entry %s/%s is malformed", service, user)
		}
		return key, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("secret: read keyring: %w", err)
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := randRead(key); err != nil {
		return nil, fmt.Errorf("secret: generate key: %w", err)
	}
	if err := keyringSet(service, user, hex.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("secret: write keyring: %w", err)
	}
	return key, nil
}

// Seal returns prefix || nonce || ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := randRead(nonce); err != nil {
		return nil, fmt.Errorf("secret: nonce: %w", err)
	}
	out := make([]byte, 0, len(sealedPrefix)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, sealedPrefix...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte(sealedPrefix)), nil
}

// Open reverses Seal. Payloads without the prefix yield ErrNotSealed.
func (s *Sealer) Open(payload []byte) ([]byte, error) {
	if !IsSealed(payload) {
		return nil, ErrNotSealed
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	body := payload[len(sealedPrefix):]
	if len(body) < aead.NonceSize() {
		return nil, errors.New("secret: sealed payload too short")
	}
	nonce, ciphertext := body[:aead.NonceSize()], body[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(sealedPrefix))
	if err != nil {
		return nil, fmt.Errorf("secret: open sealed payload: %w", err)
	}
	return plaintext, nil
}

// IsSealed reports whether payload carries the sealed prefix.
func IsSealed(payload []byte) bool {
	return bytes.HasPrefix(payload, []byte(sealedPrefix))
}

// Keyring entry holding the generated cookie-store key.
const (
	KeyringService = "timetable-sync"
	KeyringUser    = "cookie-store"
)

// ResolveSealer picks the key source: a passphrase first, then the OS keyring when
// allowed. It returns nil when neither is available and the store stays plaintext.
func ResolveSealer(passphrase string, useKeyring bool) (*Sealer, error) {
	switch {
	case passphrase != "":
		key, err := DeriveKey(passphrase)
		if err != nil {
			return nil, err
		}
		return NewSealer(key)
	case useKeyring:
		key, err := KeyringKey(KeyringService, KeyringUser)
		if err != nil {
			return nil, err
		}
		return NewSealer(key)
	default:
		return nil, nil
	}
}
