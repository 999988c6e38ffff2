// Package fault defines the error kinds the telemetry core distinguishes.
// None of them is fatal: each one maps to a status pattern and a retry.
package fault

import "fmt"

// Kind classifies a failure. Kinds are themselves errors so callers can use
// errors.Is(err, fault.Publish).
type Kind int

const (
	LinkConnect Kind = iota + 1
	BrokerConnect
	Publish
	SensorRead
)

func (k Kind) String() string {
	switch k {
	case LinkConnect:
		return "link-connect"
	case BrokerConnect:
		return "broker-connect"
	case Publish:
		return "publish"
	case SensorRead:
		return "sensor-read"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) Error() string { return k.String() + " error" }

// Error carries the kind, the failed operation and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New wraps err with a kind and the name of the operation that failed.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind.Error())
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind.Error(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the first kind found in err's tree, or 0 when err carries
// none. Joined errors are searched in order.
func KindOf(err error) Kind {
	switch v := err.(type) {
	case nil:
		return 0
	case *Error:
		return v.Kind
	case Kind:
		return v
	case interface{ Unwrap() error }:
		return KindOf(v.Unwrap())
	case interface{ Unwrap() []error }:
		for _, e := range v.Unwrap() {
			if k := KindOf(e); k != 0 {
				return k
			}
		}
	}
	return 0
}
