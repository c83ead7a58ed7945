package holder

import "fmt"

const (
	OpAcquire  = "acquire"
	OpFetchAll = "fetch_all"
	OpFetchOne = "fetch_one"
)

// BackendError is returned when the backing store fails. The holder's cached
// state is left as it was before the call.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("holder: %s: %v", e.Op, e.Err) }

func (e *BackendError) Unwrap() error { return e.Err }

func backendErr(op string, err error) error { return &BackendError{Op: op, Err: err} }
