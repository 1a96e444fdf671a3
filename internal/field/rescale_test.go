package field

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRescaleInvalidDimensions(t *testing.T) {
	f, err := New(4, 4)
	require.NoError(t, err)

	for _, dims := range [][2]int{{0, 4}, {4, 0}, {-1, 4}, {4, -3}, {0, 0}} {
		out, err := Rescale(f, dims[0], dims[1])
		require.Nil(t, out)

		var invalid *InvalidDimensionError
		require.ErrorAs(t, err, &invalid, "dims %v", dims)
		require.Equal(t, dims[0], invalid.Width)
		require.Equal(t, dims[1], invalid.Height)
	}
}

func TestRescaleSameShapeIsIdentity(t *testing.T) {
	src := fieldFrom(t, [][]float64{
		{1, 2, 3},
		{4, 5, 6},
	})

	out, err := Rescale(src, 3, 2)
	require.NoError(t, err)
	require.NotSame(t, src, out)
	require.True(t, out.SameShape(src))

	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			want, err := src.At(x, y)
			require.NoError(t, err)
			got, err := out.At(x, y)
			require.NoError(t, err)
			require.Equal(t, want, got, "at (%d,%d)", x, y)
		}
	}
}

func TestRescaleUpNearestNeighbor(t *testing.T) {
	src := fieldFrom(t, [][]float64{
		{1, 2},
		{3, 4},
	})

	out, err := Rescale(src, 4, 4)
	require.NoError(t, err)
	require.Equal(t, 4, out.Width())
	require.Equal(t, 4, out.Height())

	want := [][]float64{
		{1, 1, 2, 2},
		{1, 1, 2, 2},
		{3, 3, 4, 4},
		{3, 3, 4, 4},
	}
	for y, row := range want {
		for x, v := range row {
			got, err := out.At(x, y)
			require.NoError(t, err)
			require.Equal(t, v, got, "at (%d,%d)", x, y)
		}
	}
}

func TestRescaleDownShape(t *testing.T) {
	src, err := New(10, 10)
	require.NoError(t, err)

	out, err := Rescale(src, 4, 3)
	require.NoError(t, err)
	require.Equal(t, 4, out.Width())
	require.Equal(t, 3, out.Height())
}

func TestRescaleDoesNotAliasSource(t *testing.T) {
	src := fieldFrom(t, [][]float64{{1, 2}, {3, 4}})

	out, err := Rescale(src, 2, 2)
	require.NoError(t, err)

	require.NoError(t, src.Set(0, 0, 99))
	got, err := out.At(0, 0)
	require.NoError(t, err)
	require.Equal(t, 1.0, got)
}
