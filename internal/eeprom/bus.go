package eeprom

import "errors"

// ErrNotSupported reports that a module does not implement the requested
// field. It is a property of the module, not a transport fault: callers map
// it to an "N/A" style sentinel and never retry. Any other non-nil error
// from a Bus method is a read or write failure and is retryable.
var ErrNotSupported = errors.New("eeprom: field not supported")

// Bus is the register-access collaborator. Implementations own the mapping
// from symbolic fields to byte offsets, scaling and enum decoding; the
// driver never computes addresses itself.
//
// Implementations are not safe for concurrent use against the same
// physical port.
type Bus interface {
	// Uint reads an integer or bitfield register.
	Uint(f Field) (uint64, error)
	// Float reads a scaled analog monitor or threshold.
	Float(f Field) (float64, error)
	// String reads a text field or a register decoded to its enum label.
	String(f Field) (string, error)
	// Write writes a raw register value.
	Write(f Field, v uint64) error
}
