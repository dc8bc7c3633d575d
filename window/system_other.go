//go:build !windows

package window

// NativeSystem returns the platform windowing system.
func NativeSystem() (System, error) {
	return nil, ErrUnsupported
}
