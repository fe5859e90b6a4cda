package solr

import (
	"errors"
	"fmt"
)

// Sentinel errors for transport failures.
var (
	// ErrRejected marks a request Solr refused (4xx), usually a malformed query.
	ErrRejected = errors.New("solr rejected request")
	// ErrUnavailable marks network failures and 5xx responses.
	ErrUnavailable = errors.New("solr unavailable")
)

// Error wraps a failed Solr request.
type Error struct {
	Op     string
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("solr %s: status %d: %s", e.Op, e.Status, e.Msg)
	}
	return fmt.Sprintf("solr %s: %s", e.Op, e.Msg)
}

// Unwrap returns ErrRejected for 4xx statuses and ErrUnavailable otherwise,
// plus the underlying cause if any.
func (e *Error) Unwrap() []error {
	kind := ErrUnavailable
	if e.Status >= 400 && e.Status < 500 {
		kind = ErrRejected
	}
	if e.Err != nil {
		return []error{kind, e.Err}
	}
	return []error{kind}
}
