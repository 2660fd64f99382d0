package domain

import "fmt"

// DecodeError reports a value outside its closed enumeration, either in a
// request body or in a stored row.
type DecodeError struct {
	Field string
	Value string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}
