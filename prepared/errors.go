package prepared

import "github.com/pkg/errors"

var (
	ErrInvalidStatement     = errors.New("prepared statement sql is empty")
	ErrInvalidIndex         = errors.New("invalid prepared statement index")
	ErrUnsupportedParameter = errors.New("unsupported parameter type")
	ErrClosed               = errors.New("prepared statement registry is closed")
)
