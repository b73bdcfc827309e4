package exec

import "fmt"

// TrapCode identifies the reason an instruction aborted. Traps are
// abrupt and non-resumable: they end the current invocation and
// propagate to the host, which decides how to report or unwind.
type TrapCode uint8

const (
	NullReference TrapCode = iota
	CastFailure
	OutOfBounds
)

func (c TrapCode) String() string {
	switch c {
	case NullReference:
		return "null reference"
	case CastFailure:
		return "cast failure"
	case OutOfBounds:
		return "out of bounds table access"
	}
	return fmt.Sprintf("trap(%d)", uint8(c))
}

// Trap is the error raised when an instruction aborts. The exported
// sentinels below are the only instances; compare with errors.Is.
type Trap struct {
	Code TrapCode
}

func (t *Trap) Error() string {
	return t.Code.String()
}

var (
	NullReferenceTrap = &Trap{Code: NullReference}
	CastFailureTrap   = &Trap{Code: CastFailure}
	OutOfBoundsTrap   = &Trap{Code: OutOfBounds}
)
