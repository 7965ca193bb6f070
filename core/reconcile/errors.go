package reconcile

import "fmt"

// PreconditionError marks a failure detected before any row is processed,
// such as missing required columns or configuration. It is the only fatal
// error kind: everything else is local to one identity or one field and is
// recorded in the ledger instead of aborting the run.
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %v", e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}
