//go:build !windows

package window

// NewDesktop is a stub for non-Windows platforms.
func NewDesktop() (Desktop, error) {
	return nil, ErrUnsupported
}
