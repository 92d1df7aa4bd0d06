//go:build !windows

package ansi

// EnableANSI is a no-op outside Windows.
func EnableANSI() {}
