package mpesa

import "fmt"

type ErrorKind string

const (
	// ErrNetwork covers failures reaching the gateway at all.
	ErrNetwork ErrorKind = "network"
	// ErrAuth covers rejected credentials (4xx from the token endpoint).
	ErrAuth ErrorKind = "auth"
	// ErrMalformed covers responses that are not JSON or miss expected fields.
	ErrMalformed ErrorKind = "malformed"
)

// GatewayError is returned by every client call. Callers switch on Kind;
// all three variants must be handled.
type GatewayError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mpesa %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("mpesa %s: %s", e.Op, e.Kind)
}

func (e *GatewayError) Unwrap() error { return e.Err }
