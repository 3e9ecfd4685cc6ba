//go:build !linux && !darwin

package diskusage

func getDiskUsage(_ string) (Usage, error) {
	return Usage{}, ErrNotSupported
}
