package cmd

import (
	"github.com/cessen/psychopath/log"
	"github.com/urfave/cli"
)

var logger = log.New("psychopath")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
