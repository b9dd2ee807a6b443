//go:build !unix && !windows

package platform

// Elevated always reports false where privileges cannot be determined.
func Elevated() bool {
	return false
}
