package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaulterrors "github.com/noteworks/vaultmcp/internal/errors"
)

func TestDiscoverVault_ExplicitPath(t *testing.T) {
	// Given: an existing directory passed explicitly
	vault := t.TempDir()

	// When: discovering
	found, err := DiscoverVault(vault)

	// Then: the explicit path wins without any marker check
	require.NoError(t, err)
	assert.Equal(t, vault, found)
}

func TestDiscoverVault_ExplicitMissingFails(t *testing.T) {
	_, err := DiscoverVault(filepath.Join(t.TempDir(), "nope"))

	require.Error(t, err)
	assert.Equal(t, vaulterrors.ErrCodeVaultNotFound, vaulterrors.GetCode(err))
	assert.True(t, vaulterrors.IsFatal(err))
}

func TestDiscoverVault_EnvVar(t *testing.T) {
	vault := t.TempDir()
	t.Setenv("VAULTMCP_VAULT_PATH", vault)

	found, err := DiscoverVault("")

	require.NoError(t, err)
	assert.Equal(t, vault, found)
}

func TestDiscoverVault_ObsidianEnvVar(t *testing.T) {
	vault := t.TempDir()
	t.Setenv("VAULTMCP_VAULT_PATH", "")
	t.Setenv("OBSIDIAN_VAULT_PATH", vault)

	found, err := DiscoverVault("")

	require.NoError(t, err)
	assert.Equal(t, vault, found)
}

func TestDiscoverVault_EnvVarMissingDirFails(t *testing.T) {
	t.Setenv("VAULTMCP_VAULT_PATH", filepath.Join(t.TempDir(), "gone"))

	_, err := DiscoverVault("")

	require.Error(t, err)
	assert.Equal(t, vaulterrors.ErrCodeVaultNotFound, vaulterrors.GetCode(err))
}

func TestProbeForVault_DirectMarker(t *testing.T) {
	// Given: a directory that is itself a vault
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".obsidian"), 0o755))

	// Then: the directory itself is returned
	assert.Equal(t, dir, probeForVault(dir))
}

func TestProbeForVault_NestedVault(t *testing.T) {
	// Given: a parent directory containing one vault among other dirs
	parent := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(parent, "not-a-vault"), 0o755))
	vault := filepath.Join(parent, "my-notes")
	require.NoError(t, os.MkdirAll(filepath.Join(vault, ".obsidian"), 0o755))

	// Then: the nested vault is found
	assert.Equal(t, vault, probeForVault(parent))
}

func TestProbeForVault_NoMarker(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, "", probeForVault(dir))
}
