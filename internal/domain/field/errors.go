package field

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument signals a malformed field declaration or a value the
// field cannot represent.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidNameError reports a field name with non-word characters.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("%s: invalid field name %q (word characters only)", ErrInvalidArgument.Error(), e.Name)
}

func (e *InvalidNameError) Unwrap() error { return ErrInvalidArgument }
