// Package vision implements flow.Backend on the linked OpenCV build. All
// estimation happens inside the library; this package only marshals frames
// into native buffers, invokes the routine, and marshals the flow back out.
package vision

import (
	"fmt"
	"image"
	"sync"

	"motionscope/internal/field"
	"motionscope/internal/flow"
	"motionscope/internal/logger"
	"motionscope/internal/opencv/convert"
	"motionscope/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const component = "vision-backend"

// Backend delegates optical flow to OpenCV. With reuse enabled the scratch
// buffers survive across calls while frame shapes stay constant.
type Backend struct {
	log   logger.Logger
	reuse bool

	mu      sync.Mutex
	scratch scratch
}

type scratch struct {
	valid      bool
	rows, cols int
	prev       *safe.Mat
	next       *safe.Mat
	flow       gocv.Mat
}

// New builds a backend. A nil log disables logging.
func New(log logger.Logger, reuse bool) *Backend {
	if log == nil {
		log = logger.Nop{}
	}
	return &Backend{log: log, reuse: reuse}
}

// Close releases any retained scratch buffers.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropScratch()
}

func (b *Backend) dropScratch() {
	if b.scratch.valid {
		b.scratch.prev.Close()
		b.scratch.next.Close()
		b.scratch.flow.Close()
		b.scratch = scratch{}
	}
}

// BlockMatching reports the method as unsupported: OpenCV 3 removed the
// legacy dense block-matching routine and the linked library carries no
// binding for it.
func (b *Backend) BlockMatching(prev, next *field.Field, p flow.BlockMatchingParams) (*field.FlowField, error) {
	return nil, &flow.UnsupportedMethodError{
		Name:   "BM",
		Reason: "the legacy block-matching routine has no binding in the linked vision library",
	}
}

// LucasKanade tracks a regular grid of points with pyramidal Lucas-Kanade
// and scatters the displacements into a grid-resolution flow field.
func (b *Backend) LucasKanade(prev, next *field.Field, p flow.LucasKanadeParams) (*field.FlowField, error) {
	if err := checkFrames(prev, next); err != nil {
		return nil, err
	}

	step := p.GridStep
	if step < 1 {
		step = 1
	}
	gridW := prev.Width() / step
	gridH := prev.Height() / step
	if gridW == 0 || gridH == 0 {
		return nil, fmt.Errorf("frames %dx%d are smaller than the %d-pixel tracking grid",
			prev.Width(), prev.Height(), step)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	prevImg, nextImg, err := b.frameMats(prev, next)
	if err != nil {
		return nil, err
	}

	count := gridW * gridH
	prevPts := gocv.NewMatWithSize(count, 1, gocv.MatTypeCV32FC2)
	defer prevPts.Close()
	for gy := 0; gy < gridH; gy++ {
		for gx := 0; gx < gridW; gx++ {
			i := gy*gridW + gx
			prevPts.SetFloatAt(i, 0, float32(gx*step+step/2))
			prevPts.SetFloatAt(i, 1, float32(gy*step+step/2))
		}
	}

	nextPts := gocv.NewMat()
	defer nextPts.Close()
	status := gocv.NewMat()
	defer status.Close()
	trackErr := gocv.NewMat()
	defer trackErr.Close()

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, 30, 0.01)
	gocv.CalcOpticalFlowPyrLKWithParams(prevImg, nextImg, prevPts, nextPts,
		&status, &trackErr, image.Pt(p.WindowSize, p.WindowSize), 3, criteria, 0, 1e-4)

	fx, err := field.New(gridW, gridH)
	if err != nil {
		return nil, err
	}
	fy, err := field.New(gridW, gridH)
	if err != nil {
		return nil, err
	}

	lost := 0
	for gy := 0; gy < gridH; gy++ {
		for gx := 0; gx < gridW; gx++ {
			i := gy*gridW + gx
			if status.GetUCharAt(i, 0) == 0 {
				lost++
				continue // untracked points keep zero displacement
			}
			moved := nextPts.GetVecfAt(i, 0)
			if len(moved) < 2 {
				return nil, fmt.Errorf("tracked point %d has %d channels", i, len(moved))
			}
			dx := float64(moved[0]) - float64(gx*step+step/2)
			dy := float64(moved[1]) - float64(gy*step+step/2)
			if err := fx.Set(gx, gy, dx); err != nil {
				return nil, err
			}
			if err := fy.Set(gx, gy, dy); err != nil {
				return nil, err
			}
		}
	}

	b.log.Debug(component, "lucas-kanade tracking complete", map[string]interface{}{
		"grid":   fmt.Sprintf("%dx%d", gridW, gridH),
		"step":   step,
		"window": p.WindowSize,
		"lost":   lost,
	})

	if !b.reuse {
		b.dropScratch()
	}
	return field.NewFlowField(fx, fy)
}

// HornSchunck runs the library's dense estimator. OpenCV 3 removed the
// legacy Horn-Schunck routine; Farneback is the dense estimator the library
// ships, so Iterations and WindowSize map onto it and Lambda has no
// counterpart.
func (b *Backend) HornSchunck(prev, next *field.Field, p flow.HornSchunckParams) (*field.FlowField, error) {
	if err := checkFrames(prev, next); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	prevImg, nextImg, err := b.frameMats(prev, next)
	if err != nil {
		return nil, err
	}

	gocv.CalcOpticalFlowFarneback(prevImg, nextImg, &b.scratch.flow,
		0.5, 3, p.WindowSize, p.Iterations, 5, 1.1, 0)

	if b.scratch.flow.Empty() {
		return nil, fmt.Errorf("library returned an empty flow Mat")
	}

	// Clone before splitting so the scratch Mat can be retained for reuse.
	flowCopy, err := safe.NewMatFromMat(b.scratch.flow)
	if err != nil {
		return nil, fmt.Errorf("flow Mat wrap failed: %w", err)
	}
	defer flowCopy.Close()

	wrapped, err := convert.SplitFlowMat(flowCopy)
	if err != nil {
		return nil, err
	}

	b.log.Debug(component, "dense flow complete", map[string]interface{}{
		"size":       fmt.Sprintf("%dx%d", prev.Width(), prev.Height()),
		"window":     p.WindowSize,
		"iterations": p.Iterations,
	})

	if !b.reuse {
		b.dropScratch()
	}
	return wrapped, nil
}

// frameMats marshals the two frames into 8-bit Mats, dropping any cached
// allocation whose shape no longer matches. Callers must hold b.mu.
func (b *Backend) frameMats(prev, next *field.Field) (gocv.Mat, gocv.Mat, error) {
	if b.scratch.valid && (b.scratch.rows != prev.Height() || b.scratch.cols != prev.Width()) {
		b.dropScratch()
	}

	prevMat, err := convert.FieldToGrayMat(prev)
	if err != nil {
		return gocv.Mat{}, gocv.Mat{}, fmt.Errorf("previous frame marshalling failed: %w", err)
	}
	nextMat, err := convert.FieldToGrayMat(next)
	if err != nil {
		prevMat.Close()
		return gocv.Mat{}, gocv.Mat{}, fmt.Errorf("next frame marshalling failed: %w", err)
	}

	if b.scratch.valid {
		b.scratch.prev.Close()
		b.scratch.next.Close()
	} else {
		b.scratch.valid = true
		b.scratch.rows = prev.Height()
		b.scratch.cols = prev.Width()
		b.scratch.flow = gocv.NewMat()
	}
	b.scratch.prev = prevMat
	b.scratch.next = nextMat

	return prevMat.GetMat(), nextMat.GetMat(), nil
}

func checkFrames(prev, next *field.Field) error {
	if prev == nil || next == nil {
		return fmt.Errorf("flow requires two frames, got nil")
	}
	if !prev.SameShape(next) {
		return &field.ShapeMismatchError{
			AWidth: prev.Width(), AHeight: prev.Height(),
			BWidth: next.Width(), BHeight: next.Height(),
		}
	}
	return nil
}
