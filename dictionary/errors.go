package dictionary

import (
	"fmt"
)

// FetchError wraps a failure reported by one of the collaborators (CRM metadata
// source or worksheet store) while processing an object.
type FetchError struct {
	Object string
	Op     string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v: %v failed (%v)", e.Object, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
