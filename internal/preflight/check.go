package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/noteworks/vaultmcp/internal/embed"
	"github.com/noteworks/vaultmcp/internal/vault"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Target describes what the checks run against.
type Target struct {
	VaultPath string
	DataDir   string
	Embedder  embed.Embedder
}

// RunAll runs every preflight check against the target.
func RunAll(ctx context.Context, target Target) []CheckResult {
	return []CheckResult{
		CheckVaultReadable(target.VaultPath),
		CheckDataDirWritable(target.DataDir),
		CheckDiskSpace(target.DataDir),
		CheckFileDescriptors(),
		CheckEmbedder(ctx, target.Embedder),
	}
}

// HasCriticalFailures returns true if any required check failed.
func HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// CheckVaultReadable verifies the vault root is a readable directory
// that contains at least something resembling notes.
func CheckVaultReadable(vaultPath string) CheckResult {
	result := CheckResult{Name: "vault_readable", Required: true}

	info, err := os.Stat(vaultPath)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot access vault: %v", err)
		return result
	}
	if !info.IsDir() {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not a directory", vaultPath)
		return result
	}

	entries, err := os.ReadDir(vaultPath)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot list vault: %v", err)
		return result
	}

	notes := 0
	for _, e := range entries {
		if !e.IsDir() && vault.IsNotePath(e.Name()) {
			notes++
		}
	}
	if notes == 0 {
		result.Status = StatusWarn
		result.Message = "no notes found at the vault root"
		return result
	}

	result.Status = StatusPass
	result.Message = vaultPath
	return result
}

// CheckDataDirWritable verifies the index data directory can be
// created and written to.
func CheckDataDirWritable(dataDir string) CheckResult {
	result := CheckResult{Name: "data_dir_writable", Required: true}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create data directory: %v", err)
		return result
	}

	probe := filepath.Join(dataDir, ".preflight")
	f, err := os.Create(probe)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = dataDir
	return result
}

// CheckEmbedder verifies the embedder can produce vectors.
func CheckEmbedder(ctx context.Context, embedder embed.Embedder) CheckResult {
	result := CheckResult{Name: "embedder", Required: false}

	if embedder == nil {
		result.Status = StatusWarn
		result.Message = "no embedder configured, search is keyword-only"
		return result
	}
	if !embedder.Available(ctx) {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is unavailable", embedder.ModelName())
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dimensions)", embedder.ModelName(), embedder.Dimensions())
	return result
}
