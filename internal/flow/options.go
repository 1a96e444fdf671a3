package flow

import (
	"fmt"
	"strings"
)

// Method selects which optical-flow routine the backend runs.
type Method int

const (
	MethodBlockMatching Method = iota
	MethodLucasKanade
	MethodHornSchunck
)

func (m Method) String() string {
	switch m {
	case MethodBlockMatching:
		return "BM"
	case MethodLucasKanade:
		return "LK"
	case MethodHornSchunck:
		return "HS"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps the caller-facing method names onto the enum.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BM":
		return MethodBlockMatching, nil
	case "LK":
		return MethodLucasKanade, nil
	case "HS":
		return MethodHornSchunck, nil
	default:
		return 0, &UnsupportedMethodError{Name: s}
	}
}

// Defaults applied by Options.Validate to zero values.
const (
	DefaultBlockSize  = 9
	DefaultShiftSize  = 4
	DefaultWindowSize = 9
	DefaultLambda     = 1.0
	DefaultIterations = 10
)

// Options is the single configuration surface for a flow computation,
// validated once at the boundary. Only Autoscale and Raw affect the
// post-processing; the remaining knobs parameterize the backend routine
// selected by Method.
type Options struct {
	// Method selects the backend routine. Defaults to block matching.
	Method Method

	// BlockSize is the side of the comparison block for block matching.
	BlockSize int
	// ShiftSize is the step between estimated vectors; it also sets the
	// sampling grid for Lucas-Kanade tracking.
	ShiftSize int
	// WindowSize is the averaging window for the dense methods.
	WindowSize int
	// Lambda is the Horn-Schunck Lagrangian multiplier.
	Lambda float64
	// Iterations bounds the iterative dense solvers.
	Iterations int

	// Autoscale rescales every output field back to the input resolution
	// when the backend produced a smaller field.
	Autoscale bool
	// Raw skips norm/angle derivation and returns the flow components as
	// the backend produced them.
	Raw bool
	// Reuse lets the backend keep its scratch buffers across calls.
	Reuse bool
}

// DefaultOptions returns the documented defaults: block matching,
// autoscale on, raw off, reuse off.
func DefaultOptions() Options {
	return Options{
		Method:     MethodBlockMatching,
		BlockSize:  DefaultBlockSize,
		ShiftSize:  DefaultShiftSize,
		WindowSize: DefaultWindowSize,
		Lambda:     DefaultLambda,
		Iterations: DefaultIterations,
		Autoscale:  true,
	}
}

// Validate fills zero-valued numeric knobs with their defaults and rejects
// values that remain out of range.
func (o *Options) Validate() error {
	if o.BlockSize == 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.ShiftSize == 0 {
		o.ShiftSize = DefaultShiftSize
	}
	if o.WindowSize == 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.Lambda == 0 {
		o.Lambda = DefaultLambda
	}
	if o.Iterations == 0 {
		o.Iterations = DefaultIterations
	}

	switch o.Method {
	case MethodBlockMatching, MethodLucasKanade, MethodHornSchunck:
	default:
		return &UnsupportedMethodError{Name: o.Method.String()}
	}

	if o.BlockSize < 0 {
		return fmt.Errorf("block size must be positive, got %d", o.BlockSize)
	}
	if o.ShiftSize < 0 {
		return fmt.Errorf("shift size must be positive, got %d", o.ShiftSize)
	}
	if o.WindowSize < 0 {
		return fmt.Errorf("window size must be positive, got %d", o.WindowSize)
	}
	if o.Lambda < 0 {
		return fmt.Errorf("lambda must be positive, got %g", o.Lambda)
	}
	if o.Iterations < 0 {
		return fmt.Errorf("iteration count must be positive, got %d", o.Iterations)
	}
	return nil
}

// UnsupportedMethodError reports a method outside the supported set, or one
// the configured backend cannot serve.
type UnsupportedMethodError struct {
	Name   string
	Reason string
}

func (e *UnsupportedMethodError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported optical flow method %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("unsupported optical flow method %q", e.Name)
}
