package regalloc

import "github.com/pkg/errors"

// Sentinel error kinds. Any non-nil error returned from RunOnFunction is
// terminal for that function: the pass does not retry, and onDone still
// runs to release the arena.
var (
	ErrOutOfMemory           = errors.New("rapass: out of memory")
	ErrInvalidVirtID         = errors.New("rapass: invalid virtual register id")
	ErrOverlappedRegs        = errors.New("rapass: overlapped register constraint")
	ErrNoRegistersToAllocate = errors.New("rapass: no registers to allocate")
	ErrInconsistentState     = errors.New("rapass: inconsistent assignment state")
)

// wrapf attaches a formatted message to a sentinel while preserving
// errors.Cause/errors.Is compatibility with the sentinel.
func wrapf(sentinel error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}
