package engine

import "fmt"

// CollectionError marks one collection's transfer as failed, on either
// the backup or the restore side. It is recovered at the run level: the
// collection is recorded as failed and the run continues.
type CollectionError struct {
	Collection string
	Op         string
	Err        error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("%s of collection %s failed: %v", e.Op, e.Collection, e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// RunIncompleteError is returned alongside a summary or result whose
// success count is lower than the attempted count. The run record is
// still complete; this error only signals that not everything made it.
type RunIncompleteError struct {
	Succeeded int
	Attempted int
	Failed    []string
}

func (e *RunIncompleteError) Error() string {
	return fmt.Sprintf("run incomplete: %d/%d collections succeeded (failed: %v)",
		e.Succeeded, e.Attempted, e.Failed)
}
