package lookup

import "fmt"

type ErrorKind string

const (
	// KindTransport means the provider could not be reached.
	KindTransport ErrorKind = "transport"
	// KindProvider means the provider answered with a non-success status or
	// an unusable body.
	KindProvider ErrorKind = "provider"
)

// Error is the single failure signal returned by Client.Lookup.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("lookup: %s error", e.Kind)
	}
	return fmt.Sprintf("lookup: %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

func providerError(err error) *Error {
	return &Error{Kind: KindProvider, Err: err}
}
