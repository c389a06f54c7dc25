package versions

import "fmt"

// --- Lifecycle rules ---
//
// A version starts generating and ends ready or failed. Terminal states
// are never re-entered: regenerating always allocates a new number.

// Terminal reports whether s is ready or failed.
func (s VersionStatus) Terminal() bool {
	return s == VersionReady || s == VersionFailed
}

// CanTransition checks a single status change.
func CanTransition(from, to VersionStatus) error {
	if from != VersionGenerating {
		return fmt.Errorf("version is already %s", from)
	}
	if !to.Terminal() {
		return fmt.Errorf("invalid target status %q: must be one of: ready, failed", to)
	}
	return nil
}

// CanRollbackTo checks that a version can become the app's current one.
func CanRollbackTo(v *Version) error {
	if v.Status == VersionFailed {
		return fmt.Errorf("version %d failed and cannot be restored", v.Number)
	}
	return nil
}

// AppStatusFor maps a version's status onto the application.
func AppStatusFor(s VersionStatus) AppStatus {
	switch s {
	case VersionReady:
		return AppReady
	case VersionFailed:
		return AppFailed
	default:
		return AppGenerating
	}
}
