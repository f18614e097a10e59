package probe

import "fmt"

// ScopeError means a hook's path escapes the configured repository root,
// either textually (absolute path, ".." traversal) or through a symlink.
// It is scoped to one hook and never fatal to the run.
type ScopeError struct {
	// Path is the offending path as written in the hook.
	Path string
	// Reason explains how the path escapes.
	Reason string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("path %q escapes repository root: %s", e.Path, e.Reason)
}

// ScanBoundError means a configured scan limit was hit mid-probe. Callers
// treat the probe as "not matched" rather than failing the run.
type ScanBoundError struct {
	// Bound names the limit that was exceeded (files, bytes, time).
	Bound string
}

func (e *ScanBoundError) Error() string {
	return fmt.Sprintf("scan bound exceeded: %s", e.Bound)
}

// IOError wraps a filesystem failure during a probe (permission denied,
// file vanished). Callers degrade the probe to "not matched" and log it.
type IOError struct {
	// Path is the file the probe was reading.
	Path string
	// Err is the underlying failure.
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("probe i/o error on %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
