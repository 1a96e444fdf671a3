// Package features wraps the corner-extraction primitives of the vision
// library: Harris corner response and good-features-to-track. Each wrapper
// validates and defaults its parameters, marshals the field into a native
// buffer, and delegates the detection itself.
package features

import (
	"fmt"

	"motionscope/internal/field"
	"motionscope/internal/opencv/convert"
	"motionscope/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Point is an extracted feature location in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// InvalidParamError reports a parameter outside its documented range.
type InvalidParamError struct {
	Name   string
	Value  interface{}
	Reason string
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

// HarrisParams configure the Harris corner response.
type HarrisParams struct {
	// BlockSize is the neighborhood size. Defaults to 2.
	BlockSize int
	// KSize is the Sobel aperture, which must be odd. Defaults to 3.
	KSize int
	// K is the Harris detector free parameter. Defaults to 0.04.
	K float64
}

// Validate fills zero values with defaults and rejects out-of-range values.
func (p *HarrisParams) Validate() error {
	if p.BlockSize == 0 {
		p.BlockSize = 2
	}
	if p.KSize == 0 {
		p.KSize = 3
	}
	if p.K == 0 {
		p.K = 0.04
	}

	if p.BlockSize < 0 {
		return &InvalidParamError{Name: "block_size", Value: p.BlockSize, Reason: "must be positive"}
	}
	if p.KSize < 0 || p.KSize%2 == 0 || p.KSize > 31 {
		return &InvalidParamError{Name: "ksize", Value: p.KSize, Reason: "must be odd and at most 31"}
	}
	if p.K < 0 {
		return &InvalidParamError{Name: "k", Value: p.K, Reason: "must be positive"}
	}
	return nil
}

// Harris computes the per-pixel Harris corner response of img. The response
// map shares the input shape.
func Harris(img *field.Field, p HarrisParams) (*field.Field, error) {
	if img == nil {
		return nil, fmt.Errorf("input field is nil")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	src, err := convert.FieldToMat(img)
	if err != nil {
		return nil, fmt.Errorf("input marshalling failed: %w", err)
	}
	defer src.Close()

	dst, err := safe.NewMat(img.Height(), img.Width(), gocv.MatTypeCV32FC1)
	if err != nil {
		return nil, fmt.Errorf("response Mat creation failed: %w", err)
	}
	defer dst.Close()

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	gocv.CornerHarris(srcMat, &dstMat, p.BlockSize, p.KSize, float32(p.K))

	response, err := convert.MatToField(dst)
	if err != nil {
		return nil, fmt.Errorf("response marshalling failed: %w", err)
	}
	return response, nil
}

// GoodFeaturesParams configure good-features-to-track extraction.
type GoodFeaturesParams struct {
	// MaxCorners caps the number of returned features. Defaults to 100;
	// pass a negative value for no cap.
	MaxCorners int
	// Quality is the minimal accepted quality relative to the best corner.
	// Defaults to 0.01.
	Quality float64
	// MinDistance is the minimum Euclidean distance between returned
	// corners. Defaults to 5.
	MinDistance float64
}

// Validate fills zero values with defaults and rejects out-of-range values.
func (p *GoodFeaturesParams) Validate() error {
	if p.MaxCorners == 0 {
		p.MaxCorners = 100
	}
	if p.Quality == 0 {
		p.Quality = 0.01
	}
	if p.MinDistance == 0 {
		p.MinDistance = 5
	}

	if p.Quality < 0 || p.Quality > 1 {
		return &InvalidParamError{Name: "quality", Value: p.Quality, Reason: "must be in (0, 1]"}
	}
	if p.MinDistance < 0 {
		return &InvalidParamError{Name: "min_distance", Value: p.MinDistance, Reason: "must be positive"}
	}
	return nil
}

// GoodFeatures extracts strong corner locations from img.
func GoodFeatures(img *field.Field, p GoodFeaturesParams) ([]Point, error) {
	if img == nil {
		return nil, fmt.Errorf("input field is nil")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	src, err := convert.FieldToMat(img)
	if err != nil {
		return nil, fmt.Errorf("input marshalling failed: %w", err)
	}
	defer src.Close()

	maxCorners := p.MaxCorners
	if maxCorners < 0 {
		maxCorners = 0 // library convention for "no cap"
	}

	corners := gocv.NewMat()
	defer corners.Close()

	srcMat := src.GetMat()
	gocv.GoodFeaturesToTrack(srcMat, &corners, maxCorners, p.Quality, p.MinDistance)

	points := make([]Point, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		vec := corners.GetVecfAt(i, 0)
		if len(vec) < 2 {
			return nil, fmt.Errorf("corner %d has %d channels", i, len(vec))
		}
		points = append(points, Point{X: float64(vec[0]), Y: float64(vec[1])})
	}

	return points, nil
}
