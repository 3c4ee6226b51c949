package main

import (
	"os"

	"github.com/cessen/psychopath/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "psychopath"
	app.Usage = "render scenes using spectral path tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a frame of the built-in demo scene",
			Description: `
Compile the demo scene into its flattened form (per-mesh BVH trees, instance
BVH trees and light trees), trace it with the wavefront path integrator and
write the tone mapped result to a PNG file.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "spp",
					Value: 16,
					Usage: "samples per pixel",
				},
				cli.IntFlag{
					Name:  "num-bounces",
					Value: 5,
					Usage: "number of indirect bounces",
				},
				cli.IntFlag{
					Name:  "rr-bounces",
					Value: 3,
					Usage: "min bounces before russian roulette path elimination",
				},
				cli.IntFlag{
					Name:  "workers",
					Value: 0,
					Usage: "number of render workers (0 = one per cpu)",
				},
				cli.IntFlag{
					Name:  "seed",
					Value: 1,
					Usage: "random sequence seed",
				},
				cli.Float64Flag{
					Name:  "exposure",
					Value: 1.0,
					Usage: "camera exposure for tone-mapping",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			},
			Action: cmd.RenderFrame,
		},
		{
			Name:   "inspect",
			Usage:  "compile the demo scene and print a summary",
			Action: cmd.InspectScene,
		},
	}

	app.Run(os.Args)
}
