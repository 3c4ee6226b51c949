package renderer

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of indirect bounces.
	NumBounces uint32

	// Min bounces before applying russian roulette for path elimination.
	MinBouncesForRR uint32

	// Number of samples.
	SamplesPerPixel uint32

	// Exposure for tonemapping.
	Exposure float32

	// Number of render workers. Defaults to runtime.NumCPU.
	Workers uint32

	// Ray batch capacity used by each worker.
	BatchSize uint32

	// Rows per block work item.
	BlockH uint32

	// Seed for the per-block random number sequences.
	Seed uint64
}
