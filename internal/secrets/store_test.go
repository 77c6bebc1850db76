package secrets

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useArrayKeyring(t *testing.T) {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	prev := openKeyringFunc
	openKeyringFunc = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { openKeyringFunc = prev })
}

func TestClientSecretRoundTrip(t *testing.T) {
	useArrayKeyring(t)

	require.NoError(t, SetClientSecret("Tenant-A", " client-1 ", "s3cret"))

	got, err := GetClientSecret("tenant-a", "CLIENT-1")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
}

func TestGetClientSecretNotFound(t *testing.T) {
	useArrayKeyring(t)

	_, err := GetClientSecret("tenant", "client")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestSetClientSecretValidation(t *testing.T) {
	useArrayKeyring(t)

	assert.ErrorIs(t, SetClientSecret("", "client", "x"), errMissingClient)
	assert.ErrorIs(t, SetClientSecret("tenant", "client", ""), errMissingClientSecret)
}

func TestDeleteClientSecret(t *testing.T) {
	useArrayKeyring(t)

	require.NoError(t, SetClientSecret("tenant", "client", "s3cret"))
	require.NoError(t, DeleteClientSecret("tenant", "client"))

	_, err := GetClientSecret("tenant", "client")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestBackendAllowed(t *testing.T) {
	backends, err := Backend{Name: "file"}.allowed()
	require.NoError(t, err)
	assert.Equal(t, []keyring.BackendType{keyring.FileBackend}, backends)

	backends, err = Backend{Name: backendAuto}.allowed()
	require.NoError(t, err)
	assert.Nil(t, backends)

	_, err = Backend{Name: "floppy"}.allowed()
	assert.ErrorIs(t, err, errInvalidBackend)
}

func TestResolveBackend(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(keyringBackendEnv, "")

	b, err := ResolveBackend()
	require.NoError(t, err)
	assert.Equal(t, Backend{Name: backendAuto, Source: "default"}, b)

	t.Setenv(keyringBackendEnv, " File ")
	b, err = ResolveBackend()
	require.NoError(t, err)
	assert.Equal(t, Backend{Name: "file", Source: "env"}, b)
}

func TestLinuxFallback(t *testing.T) {
	auto := Backend{Name: backendAuto}

	forceFile, bounded := linuxFallback("linux", auto, "")
	assert.True(t, forceFile)
	assert.False(t, bounded)

	forceFile, bounded = linuxFallback("linux", auto, "unix:path=/run/bus")
	assert.False(t, forceFile)
	assert.True(t, bounded)

	forceFile, bounded = linuxFallback("darwin", auto, "")
	assert.False(t, forceFile)
	assert.False(t, bounded)

	forceFile, bounded = linuxFallback("linux", Backend{Name: "file"}, "")
	assert.False(t, forceFile)
	assert.False(t, bounded)
}

func TestPassphrasePromptWithoutTTY(t *testing.T) {
	_, err := passphrasePrompt("", false, false)("passphrase")
	assert.ErrorIs(t, err, errNoTTY)

	got, err := passphrasePrompt("", true, false)("passphrase")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
