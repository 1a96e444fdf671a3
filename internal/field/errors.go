package field

import "fmt"

// ShapeMismatchError reports two fields whose dimensions were required to
// match but did not. The whole operation fails; no partial output exists.
type ShapeMismatchError struct {
	AWidth  int
	AHeight int
	BWidth  int
	BHeight int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("field shape mismatch: %dx%d vs %dx%d",
		e.AWidth, e.AHeight, e.BWidth, e.BHeight)
}

// InvalidDimensionError reports a requested field size that is not a pair of
// positive integers.
type InvalidDimensionError struct {
	Width  int
	Height int
}

func (e *InvalidDimensionError) Error() string {
	return fmt.Sprintf("invalid field dimensions: %dx%d", e.Width, e.Height)
}
