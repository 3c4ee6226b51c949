package cmd

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"os/signal"
	"sort"

	"github.com/cessen/psychopath/renderer"
	"github.com/cessen/psychopath/scene/compiler"
	"github.com/cessen/psychopath/spectral"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render a still frame of the built-in demo scene.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := renderer.Options{
		FrameW:          uint32(ctx.Int("width")),
		FrameH:          uint32(ctx.Int("height")),
		SamplesPerPixel: uint32(ctx.Int("spp")),
		Exposure:        float32(ctx.Float64("exposure")),
		NumBounces:      uint32(ctx.Int("num-bounces")),
		MinBouncesForRR: uint32(ctx.Int("rr-bounces")),
		Workers:         uint32(ctx.Int("workers")),
		Seed:            uint64(ctx.Int("seed")),
	}

	if opts.MinBouncesForRR == 0 || opts.MinBouncesForRR >= opts.NumBounces {
		logger.Notice("disabling RR for path elimination")
		opts.MinBouncesForRR = opts.NumBounces + 1
	}

	sc, err := demoScene()
	if err != nil {
		return err
	}

	compiled, err := compiler.Compile(sc)
	if err != nil {
		return err
	}

	r, err := renderer.New(compiled, opts)
	if err != nil {
		return err
	}

	// Ctrl-C abandons the remaining blocks instead of killing the run
	// mid-write.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		if _, ok := <-sigChan; ok {
			logger.Notice("interrupt received; stopping render")
			r.Interrupt()
		}
	}()

	if err = r.Render(); err != nil {
		return err
	}

	displayFrameStats(r.Stats())

	return savePNG(ctx.String("out"), r.Pixels(), opts)
}

func displayFrameStats(stats renderer.FrameStats) {
	blocks := append([]renderer.BlockStat(nil), stats.Blocks...)
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].BlockY < blocks[j].BlockY })

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Block row", "Block height", "% of frame", "Render time"})
	for _, stat := range blocks {
		table.Append([]string{
			fmt.Sprintf("%d", stat.BlockY),
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%s", stat.RenderTime),
		})
	}
	table.SetFooter([]string{"", "", "TOTAL", fmt.Sprintf("%s", stats.RenderTime)})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}

// Tone map the accumulated XYZ frame and write it out as an sRGB PNG.
func savePNG(path string, pixels []spectral.XYZ, opts renderer.Options) error {
	exposure := opts.Exposure
	if exposure <= 0 {
		exposure = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, int(opts.FrameW), int(opts.FrameH)))
	for y := 0; y < int(opts.FrameH); y++ {
		for x := 0; x < int(opts.FrameW); x++ {
			c := pixels[y*int(opts.FrameW)+x]
			r := 3.2404542*c.X - 1.5371385*c.Y - 0.4985314*c.Z
			g := -0.9692660*c.X + 1.8760108*c.Y + 0.0415560*c.Z
			b := 0.0556434*c.X - 0.2040259*c.Y + 1.0572252*c.Z
			img.SetRGBA(x, y, color.RGBA{
				R: srgbEncode(r * exposure),
				G: srgbEncode(g * exposure),
				B: srgbEncode(b * exposure),
				A: 0xff,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err = png.Encode(f, img); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", path)
	return nil
}

// Linear -> sRGB transfer function, clamped to [0, 255].
func srgbEncode(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	fv := float64(v)
	if fv <= 0.0031308 {
		fv = fv * 12.92
	} else {
		fv = 1.055*math.Pow(fv, 1/2.4) - 0.055
	}
	if fv >= 1 {
		return 0xff
	}
	return uint8(fv*255 + 0.5)
}
