package field

import "fmt"

// Rescale resamples f to the target dimensions using nearest-neighbor
// sampling and returns the result as a new field. The source element for
// destination (x, y) is (x*srcW/dstW, y*srcH/dstH), truncated. Rescaling a
// field to its current shape yields an equal field.
func Rescale(f *Field, width, height int) (*Field, error) {
	if f == nil {
		return nil, fmt.Errorf("rescale requires a source field, got nil")
	}
	if width <= 0 || height <= 0 {
		return nil, &InvalidDimensionError{Width: width, Height: height}
	}

	out := newField(width, height)
	for y := 0; y < height; y++ {
		srcRow := f.data[(y*f.height/height)*f.width:]
		dstRow := out.data[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			dstRow[x] = srcRow[x*f.width/width]
		}
	}
	return out, nil
}
