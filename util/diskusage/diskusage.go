package diskusage

import "errors"

// Usage of the file system in bytes. Available is free space available to the non-root user
type Usage struct {
	Total     uint64
	Available uint64
	Free      uint64
}

var ErrNotSupported = errors.New("disk usage is not supported on the platform")

// Get returns usage of the file system the path belongs to
func Get(path string) (Usage, error) {
	return getDiskUsage(path)
}

func (u Usage) AvailableMB() uint64 {
	return u.Available / (1024 * 1024)
}
