package visualizer

// PermissionChecker reports whether microphone capture is allowed.
type PermissionChecker interface {
	HasPermission() bool
}

// StaticPermission is a fixed answer, for file and synthetic sources and tests.
type StaticPermission bool

func (p StaticPermission) HasPermission() bool { return bool(p) }

// PermissionFunc adapts a probe function such as malgo.ProbePermission.
type PermissionFunc func() bool

func (f PermissionFunc) HasPermission() bool { return f() }
