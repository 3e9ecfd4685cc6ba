//go:build linux || darwin

package diskusage

import (
	"syscall"
)

func getDiskUsage(path string) (Usage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return Usage{}, err
	}
	return Usage{
		Total:     stat.Blocks * uint64(stat.Bsize),
		Available: stat.Bavail * uint64(stat.Bsize),
		Free:      stat.Bfree * uint64(stat.Bsize),
	}, nil
}
