package httpclient

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch failed.
type ErrorKind int

const (
	// KindUnknown is for errors that were not produced by this package.
	KindUnknown ErrorKind = iota
	// KindTransport covers connection refused, DNS, timeouts and cancellation.
	KindTransport
	// KindStatus is a completed exchange with a non-2xx status.
	KindStatus
	// KindDecode is a body that does not match the expected shape.
	KindDecode
	// KindUnimplemented marks a configuration gap, not a runtime condition.
	KindUnimplemented
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindUnimplemented:
		return "unimplemented"
	default:
		return "unknown"
	}
}

// ErrRefreshNotImplemented is returned by the default bearer token refresh hook.
var ErrRefreshNotImplemented = errors.New("bearer token refresh is not implemented")

// FetchError is the error surfaced to callers of the client.
type FetchError struct {
	Kind       ErrorKind
	Op         string // e.g. "GET /users"
	StatusCode int    // set for KindStatus
	Body       string // trimmed response body for KindStatus
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindStatus && e.Body != "":
		return fmt.Sprintf("%s: status %d body: %s", e.Op, e.StatusCode, e.Body)
	case e.Kind == KindStatus:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewDecodeError wraps err as a KindDecode failure for op.
func NewDecodeError(op string, err error) *FetchError {
	return &FetchError{Kind: KindDecode, Op: op, Err: err}
}

// KindOf returns the kind of the first FetchError in err's chain.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries a FetchError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

func asFetchError(op string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Kind: KindTransport, Op: op, Err: err}
}
