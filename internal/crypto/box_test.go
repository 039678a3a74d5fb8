package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	b, err := NewBox()
	require.NoError(t, err)

	plaintext := []byte(`{"app_1":"/usr/bin/editor"}`)
	sealed, err := b.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "editor")

	opened, err := b.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	b, err := NewBox()
	require.NoError(t, err)

	first, err := b.Encrypt([]byte("same"))
	require.NoError(t, err)
	second, err := b.Encrypt([]byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptRejectsForeignAndTamperedPayloads(t *testing.T) {
	a, err := NewBox()
	require.NoError(t, err)
	b, err := NewBox()
	require.NoError(t, err)

	sealed, err := a.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = b.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecrypt)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff
	_, err = a.Decrypt(tampered)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = a.Decrypt([]byte("short"))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDestroy(t *testing.T) {
	b, err := NewBox()
	require.NoError(t, err)
	b.Destroy()

	_, err = b.Encrypt([]byte("x"))
	assert.ErrorIs(t, err, ErrDestroyed)
	_, err = b.Decrypt([]byte("x"))
	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestFromPrivateKeyRejectsBadLength(t *testing.T) {
	_, err := FromPrivateKey(make([]byte, 7))
	assert.Error(t, err)
}

func TestLoadOrCreateKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.key")

	created, err := LoadOrCreateKeyFile(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	sealed, err := created.Encrypt([]byte("survives restarts"))
	require.NoError(t, err)

	loaded, err := LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, created.PublicKey(), loaded.PublicKey())

	opened, err := loaded.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("survives restarts"), opened)
}

func TestLoadOrCreateKeyFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.key")
	require.NoError(t, os.WriteFile(path, []byte("not base64!"), 0o600))

	_, err := LoadOrCreateKeyFile(path)
	assert.Error(t, err)
}
