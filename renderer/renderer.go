package renderer

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"math/rand"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cessen/psychopath/integrator"
	"github.com/cessen/psychopath/log"
	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/tracer"
)

// Renderer orchestrates a frame: it splits the frame into row blocks,
// renders them on a pool of workers and accumulates per-pixel XYZ
// radiance. Each block owns its ray batches and random sequence so
// blocks never contend; the same options and seed always produce the
// same frame.
type Renderer struct {
	scene  *scene.CompiledScene
	opts   Options
	logger log.Logger

	pool worker.DynamicWorkerPool

	accum []spectral.XYZ

	interrupted atomic.Bool

	statsMu sync.Mutex
	stats   FrameStats
}

// Create a renderer for a compiled scene.
func New(cs *scene.CompiledScene, opts Options) (*Renderer, error) {
	if cs == nil {
		return nil, ErrSceneNotDefined
	}
	if cs.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, ErrInvalidOption
	}
	if opts.Workers == 0 {
		opts.Workers = uint32(runtime.NumCPU())
	}
	if opts.SamplesPerPixel == 0 {
		opts.SamplesPerPixel = 16
	}
	if opts.BlockH == 0 {
		opts.BlockH = 16
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 256
	}

	return &Renderer{
		scene:  cs,
		opts:   opts,
		logger: log.New("renderer"),
		pool:   worker.NewDynamicWorkerPool(int(opts.Workers), 256, 1*time.Second),
		accum:  make([]spectral.XYZ, opts.FrameW*opts.FrameH),
	}, nil
}

// Render a frame. Blocks until every block has completed; the
// accumulated pixels are then available through Pixels.
func (r *Renderer) Render() error {
	in := integrator.New(r.scene, tracer.NewScheduler(r.scene), integrator.Options{
		NumBounces:      int(r.opts.NumBounces),
		MinBouncesForRR: int(r.opts.MinBouncesForRR),
		BatchSize:       int(r.opts.BatchSize),
	})

	r.statsMu.Lock()
	r.stats = FrameStats{}
	r.statsMu.Unlock()

	r.logger.Noticef(
		"rendering %dx%d frame, %d spp, %d workers",
		r.opts.FrameW, r.opts.FrameH, r.opts.SamplesPerPixel, r.opts.Workers,
	)
	start := time.Now()

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var renderErr error

	taskID := 0
	for blockY := uint32(0); blockY < r.opts.FrameH; blockY += r.opts.BlockH {
		blockH := r.opts.BlockH
		if blockY+blockH > r.opts.FrameH {
			blockH = r.opts.FrameH - blockY
		}

		wg.Add(1)
		y := blockY
		h := blockH
		id := taskID
		taskID++
		r.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				if err := r.renderBlock(in, y, h); err != nil {
					errMu.Lock()
					if renderErr == nil {
						renderErr = err
					}
					errMu.Unlock()
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	r.statsMu.Lock()
	r.stats.RenderTime = time.Since(start)
	r.statsMu.Unlock()

	if renderErr != nil {
		return renderErr
	}
	r.logger.Noticef("rendered frame in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Abort rendering. Blocks already started run to completion, remaining
// blocks are skipped and Render returns ErrInterrupted. Safe to call
// from any goroutine.
func (r *Renderer) Interrupt() {
	r.interrupted.Store(true)
}

// Render a single row block.
func (r *Renderer) renderBlock(in *integrator.Integrator, blockY, blockH uint32) error {
	if r.interrupted.Load() {
		return ErrInterrupted
	}
	start := time.Now()

	// A fixed per-block sequence keeps the frame reproducible no matter
	// how blocks are spread over workers.
	rng := rand.New(rand.NewSource(int64(r.opts.Seed) + int64(blockY)))

	frameW := r.opts.FrameW
	frameH := r.opts.FrameH
	spp := r.opts.SamplesPerPixel
	aspect := float32(frameW) / float32(frameH)

	samples := make([]integrator.CameraSample, 0, uint32(frameW)*spp)
	for y := blockY; y < blockY+blockH; y++ {
		samples = samples[:0]
		for x := uint32(0); x < frameW; x++ {
			for s := uint32(0); s < spp; s++ {
				samples = append(samples, integrator.CameraSample{
					X:     ((float32(x)+rng.Float32())/float32(frameW) - 0.5) * aspect,
					Y:     0.5 - (float32(y)+rng.Float32())/float32(frameH),
					Time:  rng.Float32(),
					LensU: rng.Float32(),
					LensV: rng.Float32(),
				})
			}
		}

		estimates, err := in.TraceSamples(samples, rng)
		if err != nil {
			return err
		}

		scale := 1 / float32(spp)
		for x := uint32(0); x < frameW; x++ {
			var sum spectral.XYZ
			for s := uint32(0); s < spp; s++ {
				sum = sum.Add(estimates[x*spp+s])
			}
			r.accum[y*frameW+x] = sum.Scale(scale)
		}
	}

	r.statsMu.Lock()
	r.stats.Blocks = append(r.stats.Blocks, BlockStat{
		BlockY:       blockY,
		BlockH:       blockH,
		FramePercent: float32(blockH) / float32(frameH) * 100,
		RenderTime:   time.Since(start),
	})
	r.statsMu.Unlock()
	return nil
}

// The accumulated frame: one averaged XYZ estimate per pixel, in row
// major order.
func (r *Renderer) Pixels() []spectral.XYZ {
	return r.accum
}

// Get render statistics.
func (r *Renderer) Stats() FrameStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}
