package publish

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func writeKey(t *testing.T, passphrase string) string {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(key, "rtool test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(key, "rtool test", []byte(passphrase))
	}
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rtool.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

func TestLoadSigner(t *testing.T) {
	t.Run("plain key", func(t *testing.T) {
		signer, err := loadSigner(writeKey(t, ""), "")
		require.NoError(t, err)
		assert.Equal(t, ssh.KeyAlgoED25519, signer.PublicKey().Type())
	})

	t.Run("encrypted key", func(t *testing.T) {
		signer, err := loadSigner(writeKey(t, "hunter2"), "hunter2")
		require.NoError(t, err)
		assert.NotNil(t, signer)
	})

	t.Run("encrypted key without passphrase", func(t *testing.T) {
		_, err := loadSigner(writeKey(t, "hunter2"), "")
		require.ErrorIs(t, err, ErrKeyPassphrase)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		_, err := loadSigner(writeKey(t, "hunter2"), "nope")
		require.ErrorIs(t, err, ErrKeyPassphrase)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadSigner(filepath.Join(t.TempDir(), "missing.pem"), "")
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDialRequiresKnownHosts(t *testing.T) {
	d := &SFTPDialer{
		Host:       "127.0.0.1",
		User:       "snapshots",
		PrivateKey: writeKey(t, ""),
		KnownHosts: filepath.Join(t.TempDir(), "known_hosts"),
	}
	_, err := d.Dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load known hosts")
}
