// Package crypto seals the launcher's local cache to a key only this
// machine holds.
//
// Payloads use anonymous NaCl boxes (X25519 + XSalsa20-Poly1305): every
// call to Encrypt picks a fresh ephemeral key, so equal plaintexts never
// produce equal ciphertexts. The private key lives in a memguard enclave
// and is only unsealed for the duration of a Decrypt.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/natefinch/atomic"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// KeySize is the length of public and private keys
const KeySize = 32

var (
	// ErrDecrypt is returned when a payload was not sealed to this key or
	// has been tampered with.
	ErrDecrypt = errors.New("decryption failed")
	// ErrDestroyed is returned after Destroy
	ErrDestroyed = errors.New("key destroyed")
)

// Box encrypts to and decrypts with one X25519 key pair
type Box struct {
	public [KeySize]byte

	mu      sync.RWMutex
	private *memguard.Enclave
}

// NewBox generates a fresh key pair
func NewBox() (*Box, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Box{public: *pub, private: memguard.NewEnclave(priv[:])}, nil
}

// FromPrivateKey builds a Box from raw private key bytes. The input is
// wiped once it has been sealed.
func FromPrivateKey(priv []byte) (*Box, error) {
	defer memguard.WipeBytes(priv)

	if len(priv) != KeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", KeySize, len(priv))
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	b := &Box{}
	copy(b.public[:], pub)
	b.private = memguard.NewEnclave(priv)
	return b, nil
}

// PublicKey returns a copy of the public key
func (b *Box) PublicKey() [KeySize]byte {
	return b.public
}

// Encrypt seals plaintext to the box's public key
func (b *Box) Encrypt(plaintext []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.private == nil {
		return nil, ErrDestroyed
	}
	out, err := box.SealAnonymous(nil, plaintext, &b.public, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return out, nil
}

// Decrypt opens a payload produced by Encrypt with the same key
func (b *Box) Decrypt(ciphertext []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.private == nil {
		return nil, ErrDestroyed
	}
	if len(ciphertext) < box.AnonymousOverhead {
		return nil, ErrDecrypt
	}

	key, err := b.private.Open()
	if err != nil {
		return nil, fmt.Errorf("unseal key: %w", err)
	}
	defer key.Destroy()

	out, ok := box.OpenAnonymous(nil, ciphertext, &b.public, key.ByteArray32())
	if !ok {
		return nil, ErrDecrypt
	}
	return out, nil
}

// Destroy drops the private key. Further calls fail with ErrDestroyed.
func (b *Box) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.private = nil
}

// LoadOrCreateKeyFile reads a base64 private key from path, generating
// and writing a new one if the file does not exist.
func LoadOrCreateKeyFile(path string) (*Box, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		priv, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		memguard.WipeBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode key file %s: %w", path, err)
		}
		return FromPrivateKey(priv)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}

	_, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(priv[:])
	if err := atomic.WriteFile(path, strings.NewReader(encoded+"\n")); err != nil {
		memguard.WipeBytes(priv[:])
		return nil, fmt.Errorf("write key file %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		memguard.WipeBytes(priv[:])
		return nil, fmt.Errorf("restrict key file %s: %w", path, err)
	}
	return FromPrivateKey(priv[:])
}
