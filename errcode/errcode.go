package errcode

// Code is a stable, caller-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// BusFault: a physical SPI transaction failed. Register reads carrying
	// this code returned a value that must not be trusted.
	BusFault Code = "bus_fault"

	// InvalidParams: a control-plane request carried a malformed payload
	// (bad serial mode, out-of-range RS-485 delays, unknown channel).
	InvalidParams Code = "invalid_params"

	// UnexpectedIRQ: the interrupt identification register reported a
	// source outside the known set.
	UnexpectedIRQ Code = "unexpected_irq"

	// PortClosed: operation on a channel that has been shut down.
	PortClosed Code = "port_closed"

	// SelftestFailed: the scratchpad probe read back a wrong pattern.
	SelftestFailed Code = "selftest_failed"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s += ": " + e.Op
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap builds an *E. A nil cause is allowed; the Code alone still carries
// the classification.
func Wrap(c Code, op string, err error) error {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// Is reports whether err carries the given code.
func Is(err error, c Code) bool { return Of(err) == c }
