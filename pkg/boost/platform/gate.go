package platform

// Gate is the privilege gate backed by the process token (Windows) or the
// effective user id (Unix).
type Gate struct{}

// IsElevated reports whether the current process may make system changes.
func (Gate) IsElevated() bool {
	return Elevated()
}
