package probe

import "errors"

// Every error in the harness is terminal: nothing is retried or recovered,
// each failure path ends the process with a non-zero status.
var (
	ErrBadAddress = errors.New("address is not a dotted-decimal IPv4 literal")
	ErrBadPort    = errors.New("port is outside the range 1-65535")
	ErrConnect    = errors.New("connect failed")
	ErrRead       = errors.New("read failed")
)
