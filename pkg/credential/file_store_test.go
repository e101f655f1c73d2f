package credential

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredentialsFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestFileStoreResolvesKnownCredential(t *testing.T) {
	path := writeCredentialsFile(t, "credentials:\n  db.password: hunter2\n")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	secret, err := store.Resolve(context.Background(), "db.password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", secret.Value)
}

func TestFileStoreResolveMissingReturnsErrMissing(t *testing.T) {
	path := writeCredentialsFile(t, "credentials:\n  db.password: hunter2\n")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Resolve(context.Background(), "does.not.exist")
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestFileStoreHealthReportsLoadedCount(t *testing.T) {
	path := writeCredentialsFile(t, "credentials:\n  a: 1\n  b: 2\n")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	health := store.Health(context.Background())
	assert.True(t, health.Healthy)
	assert.Contains(t, health.Message, "2 credentials")
}

func TestFileStoreReloadsOnWrite(t *testing.T) {
	path := writeCredentialsFile(t, "credentials:\n  api.key: old-value\n")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, os.WriteFile(path, []byte("credentials:\n  api.key: new-value\n"), 0o600))

	require.Eventually(t, func() bool {
		secret, err := store.Resolve(context.Background(), "api.key")
		return err == nil && secret.Value == "new-value"
	}, 2*time.Second, 20*time.Millisecond)
}
