package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/prometheus/common/version"
	_ "go.uber.org/automaxprocs"

	"github.com/grafana/retrace/pkg/app"
	"github.com/grafana/retrace/pkg/cfg"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var config app.Config
	fs := flag.NewFlagSet("retrace", flag.ContinueOnError)
	fs.SetOutput(stderr)

	if err := cfg.Load(&config, args, fs); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, color.RedString("Error: ")+"failed parsing config: "+err.Error())
		return 2
	}

	if config.ShowVersion {
		fmt.Fprintln(stdout, version.Print("retrace"))
		return 0
	}

	r, err := app.New(config)
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("Error: ")+"failed creating retrace: "+err.Error())
		return 1
	}
	if err := r.Run(); err != nil {
		fmt.Fprintln(stderr, color.RedString("Error: ")+"failed running retrace: "+err.Error())
		return 1
	}
	return 0
}
