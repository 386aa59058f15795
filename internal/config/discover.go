package config

import (
	"os"
	"path/filepath"

	vaulterrors "github.com/noteworks/vaultmcp/internal/errors"
)

// DiscoverVault resolves the vault root directory.
// Resolution order:
//  1. The explicit path, if non-empty (from flag or config file)
//  2. VAULTMCP_VAULT_PATH, then OBSIDIAN_VAULT_PATH env vars
//  3. Conventional locations probed for a .obsidian marker directory
//
// Returns a fatal configuration error if nothing resolves.
func DiscoverVault(explicit string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", vaulterrors.New(vaulterrors.ErrCodeInvalidPath, "invalid vault path: "+explicit, err)
		}
		if !dirExists(abs) {
			return "", vaulterrors.New(vaulterrors.ErrCodeVaultNotFound, "vault directory does not exist: "+abs, nil)
		}
		return abs, nil
	}

	for _, env := range []string{"VAULTMCP_VAULT_PATH", "OBSIDIAN_VAULT_PATH"} {
		if v := os.Getenv(env); v != "" {
			if dirExists(v) {
				return v, nil
			}
			return "", vaulterrors.New(vaulterrors.ErrCodeVaultNotFound,
				"vault directory from "+env+" does not exist: "+v, nil)
		}
	}

	for _, candidate := range conventionalVaultDirs() {
		if found := probeForVault(candidate); found != "" {
			return found, nil
		}
	}

	return "", vaulterrors.New(vaulterrors.ErrCodeVaultNotFound,
		"no vault found", nil).
		WithSuggestion("pass --vault or set VAULTMCP_VAULT_PATH")
}

// conventionalVaultDirs returns the locations Obsidian commonly keeps vaults in.
func conventionalVaultDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, "Documents", "Obsidian"),
		filepath.Join(home, "Obsidian"),
		filepath.Join(home, "Library", "Mobile Documents", "iCloud~md~obsidian", "Documents"),
	}
}

// probeForVault checks whether dir is a vault or directly contains one.
// A vault is identified by its .obsidian marker directory.
func probeForVault(dir string) string {
	if !dirExists(dir) {
		return ""
	}
	if dirExists(filepath.Join(dir, ".obsidian")) {
		return dir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		if dirExists(filepath.Join(sub, ".obsidian")) {
			return sub
		}
	}
	return ""
}
