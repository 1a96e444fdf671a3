package convert

import (
	"fmt"

	"motionscope/internal/field"
	"motionscope/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MatToField reads a single-channel Mat into a scalar field. 8-bit and
// 32-bit float Mats are supported; anything else is rejected.
func MatToField(src *safe.Mat) (*field.Field, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to field conversion"); err != nil {
		return nil, err
	}
	if src.Channels() != 1 {
		return nil, fmt.Errorf("field conversion requires a single channel, got %d", src.Channels())
	}

	rows := src.Rows()
	cols := src.Cols()
	out, err := field.New(cols, rows)
	if err != nil {
		return nil, err
	}

	switch src.Type() {
	case gocv.MatTypeCV8UC1:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				v, err := src.GetUCharAt(y, x)
				if err != nil {
					return nil, fmt.Errorf("pixel access failed at (%d,%d): %w", x, y, err)
				}
				if err := out.Set(x, y, float64(v)); err != nil {
					return nil, err
				}
			}
		}
	case gocv.MatTypeCV32FC1:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				v, err := src.GetFloatAt(y, x)
				if err != nil {
					return nil, fmt.Errorf("pixel access failed at (%d,%d): %w", x, y, err)
				}
				if err := out.Set(x, y, float64(v)); err != nil {
					return nil, err
				}
			}
		}
	default:
		return nil, fmt.Errorf("unsupported Mat type %d for field conversion", int(src.Type()))
	}

	return out, nil
}

// FieldToMat writes a scalar field into a CV_32FC1 Mat.
func FieldToMat(f *field.Field) (*safe.Mat, error) {
	if f == nil {
		return nil, fmt.Errorf("input field is nil")
	}

	mat, err := safe.NewMat(f.Height(), f.Width(), gocv.MatTypeCV32FC1)
	if err != nil {
		return nil, err
	}

	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			v, err := f.At(x, y)
			if err != nil {
				mat.Close()
				return nil, err
			}
			if err := mat.SetFloatAt(y, x, float32(v)); err != nil {
				mat.Close()
				return nil, fmt.Errorf("pixel setting failed at (%d,%d): %w", x, y, err)
			}
		}
	}

	return mat, nil
}

// FieldToGrayMat writes a scalar field into a CV_8UC1 Mat, clamping values
// to [0, 255]. Flow routines require 8-bit input frames.
func FieldToGrayMat(f *field.Field) (*safe.Mat, error) {
	if f == nil {
		return nil, fmt.Errorf("input field is nil")
	}

	mat, err := safe.NewMat(f.Height(), f.Width(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, err
	}

	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			v, err := f.At(x, y)
			if err != nil {
				mat.Close()
				return nil, err
			}
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			if err := mat.SetUCharAt(y, x, uint8(v+0.5)); err != nil {
				mat.Close()
				return nil, fmt.Errorf("pixel setting failed at (%d,%d): %w", x, y, err)
			}
		}
	}

	return mat, nil
}

// SplitFlowMat splits a two-channel CV_32FC2 flow Mat into its X and Y
// component fields.
func SplitFlowMat(src *safe.Mat) (*field.FlowField, error) {
	if err := safe.ValidateMatForOperation(src, "flow Mat split"); err != nil {
		return nil, err
	}
	if src.Type() != gocv.MatTypeCV32FC2 {
		return nil, fmt.Errorf("flow Mat split requires CV_32FC2, got type %d", int(src.Type()))
	}

	rows := src.Rows()
	cols := src.Cols()

	fx, err := field.New(cols, rows)
	if err != nil {
		return nil, err
	}
	fy, err := field.New(cols, rows)
	if err != nil {
		return nil, err
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			vec, err := src.GetVecfAt(y, x)
			if err != nil {
				return nil, fmt.Errorf("flow access failed at (%d,%d): %w", x, y, err)
			}
			if len(vec) < 2 {
				return nil, fmt.Errorf("flow element at (%d,%d) has %d channels", x, y, len(vec))
			}
			if err := fx.Set(x, y, float64(vec[0])); err != nil {
				return nil, err
			}
			if err := fy.Set(x, y, float64(vec[1])); err != nil {
				return nil, err
			}
		}
	}

	return field.NewFlowField(fx, fy)
}
