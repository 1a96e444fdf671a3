package flow

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"motionscope/internal/field"
)

type fakeBackend struct {
	flow *field.FlowField
	err  error

	calls []string
	bm    BlockMatchingParams
	lk    LucasKanadeParams
	hs    HornSchunckParams
}

func (f *fakeBackend) BlockMatching(prev, next *field.Field, p BlockMatchingParams) (*field.FlowField, error) {
	f.calls = append(f.calls, "BM")
	f.bm = p
	return f.flow, f.err
}

func (f *fakeBackend) LucasKanade(prev, next *field.Field, p LucasKanadeParams) (*field.FlowField, error) {
	f.calls = append(f.calls, "LK")
	f.lk = p
	return f.flow, f.err
}

func (f *fakeBackend) HornSchunck(prev, next *field.Field, p HornSchunckParams) (*field.FlowField, error) {
	f.calls = append(f.calls, "HS")
	f.hs = p
	return f.flow, f.err
}

func frame(t *testing.T, width, height int) *field.Field {
	t.Helper()
	f, err := field.New(width, height)
	require.NoError(t, err)
	return f
}

func constantFlow(t *testing.T, width, height int, vx, vy float64) *field.FlowField {
	t.Helper()
	fx := frame(t, width, height)
	fy := frame(t, width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			require.NoError(t, fx.Set(x, y, vx))
			require.NoError(t, fy.Set(x, y, vy))
		}
	}
	ff, err := field.NewFlowField(fx, fy)
	require.NoError(t, err)
	return ff
}

func TestComputeDispatchesOnMethod(t *testing.T) {
	tests := []struct {
		method Method
		want   string
	}{
		{MethodBlockMatching, "BM"},
		{MethodLucasKanade, "LK"},
		{MethodHornSchunck, "HS"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			backend := &fakeBackend{flow: constantFlow(t, 4, 4, 1, 1)}
			opts := DefaultOptions()
			opts.Method = tc.method

			_, err := Compute(backend, frame(t, 4, 4), frame(t, 4, 4), opts)
			require.NoError(t, err)
			require.Equal(t, []string{tc.want}, backend.calls)
		})
	}
}

func TestComputePassesValidatedParams(t *testing.T) {
	backend := &fakeBackend{flow: constantFlow(t, 4, 4, 1, 1)}

	opts := Options{Method: MethodHornSchunck, Autoscale: false}
	_, err := Compute(backend, frame(t, 4, 4), frame(t, 4, 4), opts)
	require.NoError(t, err)
	require.Equal(t, HornSchunckParams{
		WindowSize: DefaultWindowSize,
		Lambda:     DefaultLambda,
		Iterations: DefaultIterations,
	}, backend.hs)

	opts = Options{Method: MethodLucasKanade, WindowSize: 21, ShiftSize: 2}
	_, err = Compute(backend, frame(t, 4, 4), frame(t, 4, 4), opts)
	require.NoError(t, err)
	require.Equal(t, LucasKanadeParams{WindowSize: 21, GridStep: 2}, backend.lk)

	opts = Options{Method: MethodBlockMatching, BlockSize: 17, ShiftSize: 8}
	_, err = Compute(backend, frame(t, 4, 4), frame(t, 4, 4), opts)
	require.NoError(t, err)
	require.Equal(t, BlockMatchingParams{BlockSize: 17, ShiftSize: 8}, backend.bm)
}

func TestComputeRawReturnsComponentsOnly(t *testing.T) {
	backend := &fakeBackend{flow: constantFlow(t, 4, 4, 2.5, -1.5)}
	opts := DefaultOptions()
	opts.Raw = true

	res, err := Compute(backend, frame(t, 4, 4), frame(t, 4, 4), opts)
	require.NoError(t, err)

	require.Nil(t, res.Norm)
	require.Nil(t, res.Angle)
	require.NotNil(t, res.FlowX)
	require.NotNil(t, res.FlowY)

	vx, err := res.FlowX.At(3, 3)
	require.NoError(t, err)
	require.Equal(t, 2.5, vx)
	vy, err := res.FlowY.At(0, 0)
	require.NoError(t, err)
	require.Equal(t, -1.5, vy)
}

func TestComputeRawAutoscaleChangesShapeNotContent(t *testing.T) {
	// Backend produces a quarter-resolution field; autoscale brings it back
	// to the frame resolution without touching the values.
	backend := &fakeBackend{flow: constantFlow(t, 4, 4, 3, 4)}
	opts := DefaultOptions()
	opts.Raw = true

	res, err := Compute(backend, frame(t, 8, 8), frame(t, 8, 8), opts)
	require.NoError(t, err)

	require.Equal(t, 8, res.FlowX.Width())
	require.Equal(t, 8, res.FlowX.Height())
	require.Equal(t, 8, res.FlowY.Width())

	for _, pt := range [][2]int{{0, 0}, {7, 7}, {3, 5}} {
		vx, err := res.FlowX.At(pt[0], pt[1])
		require.NoError(t, err)
		require.Equal(t, 3.0, vx)
		vy, err := res.FlowY.At(pt[0], pt[1])
		require.NoError(t, err)
		require.Equal(t, 4.0, vy)
	}
}

func TestComputeDerivedPath(t *testing.T) {
	backend := &fakeBackend{flow: constantFlow(t, 4, 4, 3, 4)}

	res, err := Compute(backend, frame(t, 4, 4), frame(t, 4, 4), DefaultOptions())
	require.NoError(t, err)

	require.NotNil(t, res.Norm)
	require.NotNil(t, res.Angle)
	require.NotNil(t, res.FlowX)
	require.NotNil(t, res.FlowY)

	n, err := res.Norm.At(2, 2)
	require.NoError(t, err)
	require.InDelta(t, 5.0, n, 1e-6)

	a, err := res.Angle.At(2, 2)
	require.NoError(t, err)
	require.InDelta(t, math.Atan(4.0/3.0)*180/math.Pi, a, 1e-6)
}

func TestComputeDerivedAutoscaleRescalesAllFields(t *testing.T) {
	backend := &fakeBackend{flow: constantFlow(t, 3, 3, 0, -2)}

	res, err := Compute(backend, frame(t, 9, 6), frame(t, 9, 6), DefaultOptions())
	require.NoError(t, err)

	for name, f := range res.Fields() {
		require.NotNil(t, f, name)
		require.Equal(t, 9, f.Width(), name)
		require.Equal(t, 6, f.Height(), name)
	}

	a, err := res.Angle.At(4, 4)
	require.NoError(t, err)
	require.Equal(t, 270.0, a)
}

func TestComputeAutoscaleDisabledKeepsBackendShape(t *testing.T) {
	backend := &fakeBackend{flow: constantFlow(t, 3, 3, 1, 0)}
	opts := DefaultOptions()
	opts.Autoscale = false

	res, err := Compute(backend, frame(t, 9, 9), frame(t, 9, 9), opts)
	require.NoError(t, err)
	require.Equal(t, 3, res.Norm.Width())
	require.Equal(t, 3, res.FlowX.Width())
}

func TestComputeInputShapeMismatch(t *testing.T) {
	backend := &fakeBackend{flow: constantFlow(t, 4, 4, 1, 1)}

	res, err := Compute(backend, frame(t, 10, 10), frame(t, 10, 11), DefaultOptions())
	require.Nil(t, res)

	var mismatch *field.ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Empty(t, backend.calls, "backend must not run on mismatched frames")
}

func TestComputeBackendErrorPropagates(t *testing.T) {
	backendErr := errors.New("camera fell over")
	backend := &fakeBackend{err: backendErr}

	res, err := Compute(backend, frame(t, 4, 4), frame(t, 4, 4), DefaultOptions())
	require.Nil(t, res)
	require.ErrorIs(t, err, backendErr)
	require.Contains(t, err.Error(), "BM")
}

func TestComputeRejectsMismatchedBackendComponents(t *testing.T) {
	backend := &fakeBackend{flow: &field.FlowField{
		X: frame(t, 4, 4),
		Y: frame(t, 4, 5),
	}}

	res, err := Compute(backend, frame(t, 8, 8), frame(t, 8, 8), DefaultOptions())
	require.Nil(t, res)

	var mismatch *field.ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestComputeNilArguments(t *testing.T) {
	backend := &fakeBackend{flow: constantFlow(t, 4, 4, 1, 1)}
	f := frame(t, 4, 4)

	_, err := Compute(nil, f, f, DefaultOptions())
	require.Error(t, err)
	_, err = Compute(backend, nil, f, DefaultOptions())
	require.Error(t, err)
	_, err = Compute(backend, f, nil, DefaultOptions())
	require.Error(t, err)
}
