// Package field holds the dense 2-D scalar fields produced by the vision
// backend and the post-processing applied to them: norm/angle derivation
// with quadrant correction and nearest-neighbor rescaling.
package field

import "fmt"

// Field is a dense 2-D array of float64 values with explicit dimensions.
// Data is stored row-major.
type Field struct {
	width  int
	height int
	data   []float64
}

// New allocates a zero-filled Field of the given dimensions.
func New(width, height int) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, &InvalidDimensionError{Width: width, Height: height}
	}
	return newField(width, height), nil
}

// newField allocates without validation for internal callers that already
// hold checked dimensions.
func newField(width, height int) *Field {
	return &Field{
		width:  width,
		height: height,
		data:   make([]float64, width*height),
	}
}

func (f *Field) Width() int  { return f.width }
func (f *Field) Height() int { return f.height }

// At returns the value at column x, row y.
func (f *Field) At(x, y int) (float64, error) {
	if x < 0 || x >= f.width {
		return 0, fmt.Errorf("x index %d out of bounds [0, %d)", x, f.width)
	}
	if y < 0 || y >= f.height {
		return 0, fmt.Errorf("y index %d out of bounds [0, %d)", y, f.height)
	}
	return f.data[y*f.width+x], nil
}

// Set stores value at column x, row y.
func (f *Field) Set(x, y int, value float64) error {
	if x < 0 || x >= f.width {
		return fmt.Errorf("x index %d out of bounds [0, %d)", x, f.width)
	}
	if y < 0 || y >= f.height {
		return fmt.Errorf("y index %d out of bounds [0, %d)", y, f.height)
	}
	f.data[y*f.width+x] = value
	return nil
}

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	out := newField(f.width, f.height)
	copy(out.data, f.data)
	return out
}

// SameShape reports whether both fields have identical dimensions.
func (f *Field) SameShape(other *Field) bool {
	return other != nil && f.width == other.width && f.height == other.height
}

// Row returns the backing slice for row y. The slice aliases the field's
// storage; callers that mutate it mutate the field.
func (f *Field) Row(y int) ([]float64, error) {
	if y < 0 || y >= f.height {
		return nil, fmt.Errorf("y index %d out of bounds [0, %d)", y, f.height)
	}
	return f.data[y*f.width : (y+1)*f.width], nil
}

// FlowField pairs the X and Y displacement components of a motion estimate.
// Both components always share a shape.
type FlowField struct {
	X *Field
	Y *Field
}

// NewFlowField validates that fx and fy share a shape and pairs them.
func NewFlowField(fx, fy *Field) (*FlowField, error) {
	if fx == nil || fy == nil {
		return nil, fmt.Errorf("flow field components must not be nil")
	}
	if !fx.SameShape(fy) {
		return nil, &ShapeMismatchError{
			AWidth: fx.width, AHeight: fx.height,
			BWidth: fy.width, BHeight: fy.height,
		}
	}
	return &FlowField{X: fx, Y: fy}, nil
}

// Width returns the shared width of the flow components.
func (ff *FlowField) Width() int { return ff.X.width }

// Height returns the shared height of the flow components.
func (ff *FlowField) Height() int { return ff.X.height }
