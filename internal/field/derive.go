package field

import (
	"fmt"
	"math"
)

const degPerRad = 180.0 / math.Pi

// Derive computes per-element magnitude and direction of the motion vectors
// (fx, fy). Norm is the Euclidean length. Angle is the vector direction in
// degrees, resolved into [0, 360) by quadrant correction on the component
// signs. The zero-x branches are taken before any division so no element
// ever evaluates y/0.
//
// Both inputs must share a shape; otherwise a ShapeMismatchError is returned
// and no output is produced. Elements are independent, so rows are processed
// in parallel.
func Derive(fx, fy *Field) (norm, angle *Field, err error) {
	if fx == nil || fy == nil {
		return nil, nil, fmt.Errorf("derive requires both flow components, got nil")
	}
	if !fx.SameShape(fy) {
		return nil, nil, &ShapeMismatchError{
			AWidth: fx.width, AHeight: fx.height,
			BWidth: fy.width, BHeight: fy.height,
		}
	}

	norm = newField(fx.width, fx.height)
	angle = newField(fx.width, fx.height)

	parallelRows(fx.height, func(row int) {
		base := row * fx.width
		for i := base; i < base+fx.width; i++ {
			x := fx.data[i]
			y := fy.data[i]
			norm.data[i] = math.Sqrt(x*x + y*y)
			angle.data[i] = direction(x, y)
		}
	})

	return norm, angle, nil
}

// direction resolves the vector (x, y) into a direction in [0, 360) degrees.
// First match wins, mirroring the quadrant table:
//
//	x == 0, y >= 0 -> 90
//	x == 0, y <  0 -> 270
//	x >  0, y >= 0 -> h
//	x >  0, y <  0 -> 360 - h
//	x <  0, y >= 0 -> 180 - h
//	x <  0, y <  0 -> 180 + h
//
// where h = atan(|y/x|) in degrees.
func direction(x, y float64) float64 {
	if x == 0 {
		if y >= 0 {
			return 90
		}
		return 270
	}

	h := math.Atan(math.Abs(y/x)) * degPerRad
	switch {
	case x > 0 && y >= 0:
		return h
	case x > 0:
		return 360 - h
	case y >= 0:
		return 180 - h
	default:
		return 180 + h
	}
}
