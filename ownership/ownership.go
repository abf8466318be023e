package ownership

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConcurrencyFailure is returned by a Shared handle whose guard was held
	// by a callback that panicked. The storage behind it must be discarded.
	ErrConcurrencyFailure = errors.New("ownership: guard poisoned by a failed holder")

	// ErrReleased is returned when a handle is used after Release, or after the
	// last owner of its storage went away.
	ErrReleased = errors.New("ownership: handle released")
)

// Mode selects how handles share their storage.
type Mode int

const (
	// Exclusive handles use a plain counter and no locking. Every access must
	// happen on the same goroutine.
	Exclusive Mode = iota
	// Shared handles use an atomic counter and a read/write mutex per cell.
	Shared
)

func (m Mode) String() string {
	switch m {
	case Exclusive:
		return "exclusive"
	case Shared:
		return "shared"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses the textual form produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exclusive", "single":
		return Exclusive, nil
	case "shared", "multi":
		return Shared, nil
	default:
		return Exclusive, fmt.Errorf("ownership: unknown mode %q", s)
	}
}

// Dropper is implemented by stored values that own other handles. Drop runs
// once, when the last owner of the storage releases it.
type Dropper interface {
	Drop()
}

// Ref is an owning handle to a T.
//
// Clone adds an owner to the same storage, it never copies T. The storage is
// dropped when every owner has called Release.
type Ref[T any] interface {
	Mode() Mode
	Clone() Ref[T]
	// With gives read access to the value for the duration of fn.
	With(fn func(*T) error) error
	// WithMut gives write access to the value for the duration of fn.
	WithMut(fn func(*T) error) error
	Downgrade() Weak[T]
	Release()
	Owners() int
}

// Weak is a non-owning reference. It does not keep the storage alive.
type Weak[T any] interface {
	Upgrade() (Ref[T], bool)
}

// New stores value in a fresh cell and returns its first owner.
func New[T any](mode Mode, value T) Ref[T] {
	if mode == Shared {
		return newShared(value)
	}
	return newExclusive(value)
}

func drop[T any](value *T) {
	if d, ok := any(value).(Dropper); ok {
		d.Drop()
	}
}
