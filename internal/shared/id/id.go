// Package id provides identifier and secret generation for the launcher.
//
// Application ids are prefixed ULIDs:
//   - Fixed size: "app_" followed by 26 Crockford base32 characters
//   - Random: 80 bits of crypto/rand entropy per id
//   - Sortable: lexicographic order follows registration time
//
// Nonces are fixed-length random strings handed to spawned applications
// as one-time activation secrets.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// AppID identifies a registered application across the local cache and
// the shared configuration.
type AppID string

// AppPrefix is prepended to every application id.
const AppPrefix = "app"

// AppIDLength is the length of every well-formed AppID.
const AppIDLength = len(AppPrefix) + 1 + ulid.EncodedSize

// nonceAlphabet is the character set nonces are drawn from.
const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source.
// Tests use it for deterministic ids.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() (ulid.ULID, error) {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.New(ulid.Timestamp(time.Now()), g.entropy)
}

// NewAppID creates a prefixed application id.
func (g *Generator) NewAppID() (AppID, error) {
	u, err := g.Generate()
	if err != nil {
		return "", fmt.Errorf("generate app id: %w", err)
	}
	return AppID(fmt.Sprintf("%s_%s", AppPrefix, u.String())), nil
}

// Nonce returns a random string of exactly length characters.
func (g *Generator) Nonce(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("nonce length must be positive, got %d", length)
	}

	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	max := big.NewInt(int64(len(nonceAlphabet)))
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(g.entropy, max)
		if err != nil {
			return "", fmt.Errorf("generate nonce: %w", err)
		}
		sb.WriteByte(nonceAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NewAppID generates a new application ID from the default generator
func NewAppID() (AppID, error) {
	return Default().NewAppID()
}

func (id AppID) String() string { return string(id) }

// IsValid reports whether s is a well-formed application id.
func IsValid(s string) bool {
	prefix, rest, ok := strings.Cut(s, "_")
	if !ok || prefix != AppPrefix {
		return false
	}
	_, err := ulid.ParseStrict(rest)
	return err == nil
}

// Parse validates s and returns it as an AppID.
func Parse(s string) (AppID, error) {
	if !IsValid(s) {
		return "", fmt.Errorf("invalid app id %q", s)
	}
	return AppID(s), nil
}

// Timestamp extracts the registration time from an application id
func Timestamp(appID AppID) (time.Time, error) {
	_, rest, _ := strings.Cut(string(appID), "_")
	parsed, err := ulid.Parse(rest)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
