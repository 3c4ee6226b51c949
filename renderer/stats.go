package renderer

import "time"

type BlockStat struct {
	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The percentage of total frame area this block represents.
	FramePercent float32

	// Render time for the block.
	RenderTime time.Duration
}

type FrameStats struct {
	// Individual block stats.
	Blocks []BlockStat

	// Total render time for entire frame.
	RenderTime time.Duration
}
