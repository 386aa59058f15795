package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the soft limit below which watching a large
// vault is likely to exhaust descriptors.
const MinFileDescriptors = 1024

// CheckFileDescriptors checks the open file descriptor limit. The
// watcher holds one descriptor per watched directory.
func CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors", Required: false}

	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to read file limit: %v", err)
		return result
	}

	if limit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("soft limit %d is low, raise it with ulimit -n for large vaults", limit.Cur)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("soft limit %d", limit.Cur)
	return result
}
