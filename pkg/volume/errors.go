package volume

import "fmt"

// ShapeError reports a spatial-shape disagreement between an array and
// the shape the viewer expects. The mutation boundary that detects it
// resets the offending structure to a zero-filled array of the expected
// shape instead of propagating a fatal error, so interactive tools stay
// usable; the error itself is informational.
type ShapeError struct {
	Op   string
	Want [3]int
	Got  [3]int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: spatial shape %v does not match expected %v",
		e.Op, e.Got, e.Want)
}

// PreconditionError reports a caller contract violation: out-of-bounds
// explicit region writes, invalid label values, mismatched buffer
// lengths. Unlike shape mismatches these are never silently corrected;
// they surface immediately to the caller.
type PreconditionError struct {
	Op  string
	Msg string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}
