package scope

import (
	"errors"
	"fmt"
)

// ErrUnknownKind signals a restriction kind tag with no registered variant.
var ErrUnknownKind = errors.New("unknown restriction kind")

// UnknownKindError names the tag that failed to resolve.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownKind.Error(), e.Kind)
}

func (e *UnknownKindError) Unwrap() error { return ErrUnknownKind }
