//go:build !linux

package sandbox

// IsSupported reports sandbox support on non-Linux platforms.
func IsSupported() bool {
	return false
}

func restrictImpl(p Policy) error {
	if p.BestEffort {
		return nil
	}
	return ErrUnsupported
}
