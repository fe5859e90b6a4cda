package setup

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for class configuration and lookups.
var (
	ErrUnrecognizedField = errors.New("unrecognized field")
	ErrNoSetup           = errors.New("class has no search setup")
	ErrNoAccessor        = errors.New("class has no data accessor")
)

// UnrecognizedFieldError reports a field name that is not visible for the
// searched classes.
type UnrecognizedFieldError struct {
	Field   string
	Classes []string
}

func (e *UnrecognizedFieldError) Error() string {
	return fmt.Sprintf("no field configured for %s with name %q", strings.Join(e.Classes, ", "), e.Field)
}

func (e *UnrecognizedFieldError) Unwrap() error { return ErrUnrecognizedField }

// NoSetupError names the class that was looked up.
type NoSetupError struct {
	Class string
}

func (e *NoSetupError) Error() string {
	return fmt.Sprintf("%s: %q", ErrNoSetup.Error(), e.Class)
}

func (e *NoSetupError) Unwrap() error { return ErrNoSetup }
