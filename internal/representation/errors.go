package representation

import (
	"errors"
	"fmt"
)

// ErrUnsupportedRepresentation is returned when bytes cannot be parsed under
// the declared media type, when no handler exists for a media type or
// structural tag, or when facts cannot be expressed in the target format.
var ErrUnsupportedRepresentation = errors.New("unsupported representation")

// ErrReadOnly is returned when serializing through a handler that only
// supports deserialization. It wraps ErrUnsupportedRepresentation.
var ErrReadOnly = fmt.Errorf("%w: format is read-only", ErrUnsupportedRepresentation)

// unsupported wraps a cause with ErrUnsupportedRepresentation.
func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedRepresentation, fmt.Sprintf(format, args...))
}

// unsupportedErr wraps a parser error with ErrUnsupportedRepresentation while
// keeping the parser error inspectable.
func unsupportedErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnsupportedRepresentation, what, err)
}
