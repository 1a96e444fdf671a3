// Package flow dispatches optical-flow requests to a vision backend and
// post-processes the returned fields: norm/angle derivation and optional
// rescaling back to the input resolution. The flow estimation itself is
// entirely the backend's job.
package flow

import (
	"fmt"

	"motionscope/internal/field"
)

// BlockMatchingParams parameterize the block-matching routine.
type BlockMatchingParams struct {
	BlockSize int
	ShiftSize int
}

// LucasKanadeParams parameterize Lucas-Kanade tracking. GridStep is the
// spacing of tracked points, which sets the output field resolution.
type LucasKanadeParams struct {
	WindowSize int
	GridStep   int
}

// HornSchunckParams parameterize the dense iterative estimator.
type HornSchunckParams struct {
	WindowSize int
	Lambda     float64
	Iterations int
}

// Backend is the narrow interface to the external vision library. Each
// method takes two same-shaped grayscale frames and returns the estimated
// displacement field, which may be of lower resolution than the frames.
type Backend interface {
	BlockMatching(prev, next *field.Field, p BlockMatchingParams) (*field.FlowField, error)
	LucasKanade(prev, next *field.Field, p LucasKanadeParams) (*field.FlowField, error)
	HornSchunck(prev, next *field.Field, p HornSchunckParams) (*field.FlowField, error)
}

// Result carries the post-processed fields of one flow computation. Norm and
// Angle are nil when the computation ran with Raw set.
type Result struct {
	Norm  *field.Field
	Angle *field.Field
	FlowX *field.Field
	FlowY *field.Field
}

// Fields returns the populated fields keyed by stable output names.
func (r *Result) Fields() map[string]*field.Field {
	out := map[string]*field.Field{
		"flow_x": r.FlowX,
		"flow_y": r.FlowY,
	}
	if r.Norm != nil {
		out["norm"] = r.Norm
	}
	if r.Angle != nil {
		out["angle"] = r.Angle
	}
	return out
}

// Compute validates opts, runs the selected backend routine on prev/next,
// and applies the post-processing the options ask for. With Raw set the
// result carries the backend's components untouched in content; otherwise
// norm and angle are derived first. With Autoscale set every output field is
// independently rescaled to the frame resolution when the backend produced a
// smaller field.
func Compute(b Backend, prev, next *field.Field, opts Options) (*Result, error) {
	if b == nil {
		return nil, fmt.Errorf("flow backend must not be nil")
	}
	if prev == nil || next == nil {
		return nil, fmt.Errorf("flow requires two input frames, got nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flow options: %w", err)
	}
	if !prev.SameShape(next) {
		return nil, &field.ShapeMismatchError{
			AWidth: prev.Width(), AHeight: prev.Height(),
			BWidth: next.Width(), BHeight: next.Height(),
		}
	}

	ff, err := dispatch(b, prev, next, opts)
	if err != nil {
		return nil, fmt.Errorf("%s optical flow: %w", opts.Method, err)
	}
	if ff == nil || ff.X == nil || ff.Y == nil {
		return nil, fmt.Errorf("%s optical flow: backend returned no flow field", opts.Method)
	}
	if !ff.X.SameShape(ff.Y) {
		return nil, &field.ShapeMismatchError{
			AWidth: ff.X.Width(), AHeight: ff.X.Height(),
			BWidth: ff.Y.Width(), BHeight: ff.Y.Height(),
		}
	}

	res := &Result{FlowX: ff.X, FlowY: ff.Y}

	if !opts.Raw {
		norm, angle, err := field.Derive(ff.X, ff.Y)
		if err != nil {
			return nil, fmt.Errorf("flow derivation: %w", err)
		}
		res.Norm = norm
		res.Angle = angle
	}

	if opts.Autoscale && !ff.X.SameShape(prev) {
		if err := rescaleResult(res, prev.Width(), prev.Height()); err != nil {
			return nil, fmt.Errorf("flow autoscale: %w", err)
		}
	}

	return res, nil
}

func dispatch(b Backend, prev, next *field.Field, opts Options) (*field.FlowField, error) {
	switch opts.Method {
	case MethodBlockMatching:
		return b.BlockMatching(prev, next, BlockMatchingParams{
			BlockSize: opts.BlockSize,
			ShiftSize: opts.ShiftSize,
		})
	case MethodLucasKanade:
		return b.LucasKanade(prev, next, LucasKanadeParams{
			WindowSize: opts.WindowSize,
			GridStep:   opts.ShiftSize,
		})
	case MethodHornSchunck:
		return b.HornSchunck(prev, next, HornSchunckParams{
			WindowSize: opts.WindowSize,
			Lambda:     opts.Lambda,
			Iterations: opts.Iterations,
		})
	default:
		return nil, &UnsupportedMethodError{Name: opts.Method.String()}
	}
}

func rescaleResult(res *Result, width, height int) error {
	scale := func(f *field.Field) (*field.Field, error) {
		if f == nil {
			return nil, nil
		}
		return field.Rescale(f, width, height)
	}

	var err error
	if res.Norm, err = scale(res.Norm); err != nil {
		return err
	}
	if res.Angle, err = scale(res.Angle); err != nil {
		return err
	}
	if res.FlowX, err = scale(res.FlowX); err != nil {
		return err
	}
	if res.FlowY, err = scale(res.FlowY); err != nil {
		return err
	}
	return nil
}
