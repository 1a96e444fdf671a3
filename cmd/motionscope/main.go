// Command motionscope estimates the optical flow between two frames and
// writes the post-processed fields as grayscale images. It demonstrates the
// library surface; all vision work is delegated to the linked OpenCV build.
package main

import (
	"fmt"
	"image"
	"os"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/spf13/pflag"

	"motionscope/internal/features"
	"motionscope/internal/field"
	"motionscope/internal/flow"
	"motionscope/internal/logger"
	"motionscope/internal/opencv/convert"
	"motionscope/internal/vision"
)

const appName = "motionscope"

type cliConfig struct {
	method     string
	blockSize  int
	shiftSize  int
	windowSize int
	lambda     float64
	iterations int
	autoscale  bool
	raw        bool
	reuse      bool
	corners    bool
	logLevel   string
}

func main() {
	cfg := parseFlags()

	log := logger.NewConsoleLogger(logger.ParseLevel(cfg.logLevel))

	if err := run(cfg, log, pflag.Args()); err != nil {
		log.Error(appName, err, nil)
		os.Exit(1)
	}
}

func parseFlags() cliConfig {
	var cfg cliConfig

	pflag.StringVar(&cfg.method, "method", "HS", "optical flow method: BM, LK or HS")
	pflag.IntVar(&cfg.blockSize, "block-size", flow.DefaultBlockSize, "comparison block side for BM")
	pflag.IntVar(&cfg.shiftSize, "shift-size", flow.DefaultShiftSize, "step between estimated vectors")
	pflag.IntVar(&cfg.windowSize, "window-size", flow.DefaultWindowSize, "averaging window for LK and HS")
	pflag.Float64Var(&cfg.lambda, "lambda", flow.DefaultLambda, "Lagrangian multiplier for HS")
	pflag.IntVar(&cfg.iterations, "iterations", flow.DefaultIterations, "iteration bound for HS")
	pflag.BoolVar(&cfg.autoscale, "autoscale", true, "rescale outputs to the input resolution")
	pflag.BoolVar(&cfg.raw, "raw", false, "skip norm/angle derivation")
	pflag.BoolVar(&cfg.reuse, "reuse", false, "keep backend buffers across calls")
	pflag.BoolVar(&cfg.corners, "corners", false, "also extract corners from the first frame")
	pflag.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <frame0> <frame1> <output-prefix>\n\nFlags:\n", appName)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	return cfg
}

func run(cfg cliConfig, log logger.Logger, args []string) error {
	if len(args) != 3 {
		pflag.Usage()
		return fmt.Errorf("expected two input frames and an output prefix, got %d arguments", len(args))
	}

	method, err := flow.ParseMethod(cfg.method)
	if err != nil {
		return err
	}

	prev, err := loadFrame(args[0])
	if err != nil {
		return fmt.Errorf("loading %s: %w", args[0], err)
	}
	next, err := loadFrame(args[1])
	if err != nil {
		return fmt.Errorf("loading %s: %w", args[1], err)
	}

	log.Info(appName, "frames loaded", map[string]interface{}{
		"size":   fmt.Sprintf("%dx%d", prev.Width(), prev.Height()),
		"method": method.String(),
	})

	opts := flow.Options{
		Method:     method,
		BlockSize:  cfg.blockSize,
		ShiftSize:  cfg.shiftSize,
		WindowSize: cfg.windowSize,
		Lambda:     cfg.lambda,
		Iterations: cfg.iterations,
		Autoscale:  cfg.autoscale,
		Raw:        cfg.raw,
		Reuse:      cfg.reuse,
	}

	backend := vision.New(log, cfg.reuse)
	defer backend.Close()

	result, err := flow.Compute(backend, prev, next, opts)
	if err != nil {
		return err
	}

	prefix := args[2]
	for name, f := range result.Fields() {
		path := fmt.Sprintf("%s_%s.png", prefix, name)
		if err := saveField(path, f); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Info(appName, "field written", map[string]interface{}{
			"path": path,
			"size": fmt.Sprintf("%dx%d", f.Width(), f.Height()),
		})
	}

	if cfg.corners {
		if err := extractCorners(log, prev, prefix); err != nil {
			return err
		}
	}

	return nil
}

func extractCorners(log logger.Logger, frame *field.Field, prefix string) error {
	response, err := features.Harris(frame, features.HarrisParams{})
	if err != nil {
		return fmt.Errorf("harris response: %w", err)
	}

	path := prefix + "_harris.png"
	if err := saveField(path, response); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	points, err := features.GoodFeatures(frame, features.GoodFeaturesParams{})
	if err != nil {
		return fmt.Errorf("good features: %w", err)
	}

	log.Info(appName, "corners extracted", map[string]interface{}{
		"response_map": path,
		"features":     len(points),
	})
	return nil
}

// loadFrame reads an image file and converts it to a grayscale field.
func loadFrame(path string) (*field.Field, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, err
	}

	mat, err := convert.ImageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray, err := convert.ToGrayscale(mat)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	return convert.MatToField(gray)
}

// saveField writes a field as a min/max-normalized grayscale PNG.
func saveField(path string, f *field.Field) error {
	img, err := fieldToGrayImage(f)
	if err != nil {
		return err
	}
	return imgio.Save(path, img, imgio.PNGEncoder())
}

func fieldToGrayImage(f *field.Field) (*image.Gray, error) {
	if f == nil {
		return nil, fmt.Errorf("field is nil")
	}

	minVal, maxVal := fieldRange(f)
	scale := 0.0
	if maxVal > minVal {
		scale = 255.0 / (maxVal - minVal)
	}

	img := image.NewGray(image.Rect(0, 0, f.Width(), f.Height()))
	for y := 0; y < f.Height(); y++ {
		row, err := f.Row(y)
		if err != nil {
			return nil, err
		}
		for x, v := range row {
			img.Pix[img.PixOffset(x, y)] = uint8((v - minVal) * scale)
		}
	}
	return img, nil
}

func fieldRange(f *field.Field) (minVal, maxVal float64) {
	first := true
	for y := 0; y < f.Height(); y++ {
		row, _ := f.Row(y)
		for _, v := range row {
			if first {
				minVal, maxVal = v, v
				first = false
				continue
			}
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}
	return minVal, maxVal
}
