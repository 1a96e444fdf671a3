// Package convert marshals pixel buffers between Go images, native Mats,
// and the scalar fields consumed by the flow post-processor.
package convert

import (
	"fmt"
	"image"
	"image/color"

	"motionscope/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ToGrayscale converts multi-channel Mats to single-channel grayscale.
func ToGrayscale(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "grayscale conversion"); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if src.Channels() == 1 {
		return src.Clone()
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, fmt.Errorf("destination Mat creation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	switch src.Channels() {
	case 3:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRToGray)
	case 4:
		temp := gocv.NewMat()
		defer temp.Close()
		gocv.CvtColor(srcMat, &temp, gocv.ColorBGRAToBGR)
		gocv.CvtColor(temp, &dstMat, gocv.ColorBGRToGray)
	default:
		dst.Close()
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}

	return dst, nil
}

// MatToImage converts a Mat to a standard Go image.
func MatToImage(src *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	rows := src.Rows()
	cols := src.Cols()

	switch src.Channels() {
	case 1:
		return matToGray(src, rows, cols)
	case 3:
		return matToRGBA(src, rows, cols, false)
	case 4:
		return matToRGBA(src, rows, cols, true)
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}
}

// ImageToMat converts a standard Go image to a Mat: single-channel for
// grayscale inputs, BGR otherwise.
func ImageToMat(img image.Image) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if err := safe.ValidateDimensions(width, height, "image to Mat conversion"); err != nil {
		return nil, err
	}

	if gray, ok := img.(*image.Gray); ok {
		return grayImageToMat(gray, width, height)
	}
	return colorImageToMat(img, width, height)
}

func matToGray(src *safe.Mat, rows, cols int) (*image.Gray, error) {
	img := image.NewGray(image.Rect(0, 0, cols, rows))

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			value, err := src.GetUCharAt(y, x)
			if err != nil {
				return nil, fmt.Errorf("pixel access failed at (%d,%d): %w", x, y, err)
			}
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}

	return img, nil
}

func matToRGBA(src *safe.Mat, rows, cols int, hasAlpha bool) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			b, err := src.GetUCharAt3(y, x, 0)
			if err != nil {
				return nil, fmt.Errorf("B channel access failed at (%d,%d): %w", x, y, err)
			}

			g, err := src.GetUCharAt3(y, x, 1)
			if err != nil {
				return nil, fmt.Errorf("G channel access failed at (%d,%d): %w", x, y, err)
			}

			r, err := src.GetUCharAt3(y, x, 2)
			if err != nil {
				return nil, fmt.Errorf("R channel access failed at (%d,%d): %w", x, y, err)
			}

			a := uint8(255)
			if hasAlpha {
				if a, err = src.GetUCharAt3(y, x, 3); err != nil {
					return nil, fmt.Errorf("A channel access failed at (%d,%d): %w", x, y, err)
				}
			}

			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: a})
		}
	}

	return img, nil
}

func grayImageToMat(img *image.Gray, width, height int) (*safe.Mat, error) {
	mat, err := safe.NewMat(height, width, gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixel := img.GrayAt(x+bounds.Min.X, y+bounds.Min.Y)
			if err := mat.SetUCharAt(y, x, pixel.Y); err != nil {
				mat.Close()
				return nil, fmt.Errorf("pixel setting failed at (%d,%d): %w", x, y, err)
			}
		}
	}

	return mat, nil
}

func colorImageToMat(img image.Image, width, height int) (*safe.Mat, error) {
	mat, err := safe.NewMat(height, width, gocv.MatTypeCV8UC3)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			// 16-bit color.Color channels down to 8 bits.
			if err := mat.SetUCharAt3(y, x, 0, uint8(b>>8)); err != nil {
				mat.Close()
				return nil, fmt.Errorf("B channel setting failed at (%d,%d): %w", x, y, err)
			}
			if err := mat.SetUCharAt3(y, x, 1, uint8(g>>8)); err != nil {
				mat.Close()
				return nil, fmt.Errorf("G channel setting failed at (%d,%d): %w", x, y, err)
			}
			if err := mat.SetUCharAt3(y, x, 2, uint8(r>>8)); err != nil {
				mat.Close()
				return nil, fmt.Errorf("R channel setting failed at (%d,%d): %w", x, y, err)
			}
		}
	}

	return mat, nil
}
