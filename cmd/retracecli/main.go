package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"
)

var cfg struct {
	verbose bool
}

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(consoleOutput)
)

func main() {
	ctx := withOutput(context.Background(), os.Stdout)

	app := kingpin.New(filepath.Base(os.Args[0]), "Tooling for retrace, the ProGuard mapping resolution server.").UsageWriter(os.Stdout)
	app.Version(version.Print("retracecli"))
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable verbose logging.").Short('v').Default("0").BoolVar(&cfg.verbose)

	resolveCmd := app.Command("resolve", "Resolve an obfuscated name using a local mapping table.")
	resolveParams := addResolveParams(resolveCmd)

	inspectCmd := app.Command("inspect", "Print statistics of local mapping tables.")
	inspectFiles := inspectCmd.Arg("file", "mapping table path").Required().ExistingFiles()

	queryCmd := app.Command("query", "Send requests to a running retrace server. Without arguments, request lines are read from stdin.")
	queryParams := addQueryParams(queryCmd)

	readyCmd := app.Command("ready", "Check retrace readiness.")
	readyParams := addReadyParams(readyCmd)

	// parse command line arguments
	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// enable verbose logging if requested
	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	switch parsedCmd {
	case resolveCmd.FullCommand():
		os.Exit(checkError(resolve(ctx, resolveParams)))
	case inspectCmd.FullCommand():
		os.Exit(checkError(inspect(ctx, *inspectFiles)))
	case queryCmd.FullCommand():
		os.Exit(checkError(query(ctx, queryParams, os.Stdin)))
	case readyCmd.FullCommand():
		os.Exit(checkError(ready(ctx, readyParams)))
	default:
		level.Error(logger).Log("msg", "unknown command", "cmd", parsedCmd)
	}
}

func checkError(err error) int {
	switch err {
	case nil:
		return 0
	case errNotReady:
		// The reason for the failed ready is already logged, so just exit with
		// an error code.
	default:
		fmt.Fprintln(os.Stderr, color.RedString("error: ")+err.Error())
	}
	return 1
}

type contextKey uint8

const (
	contextKeyOutput contextKey = iota
)

func withOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, contextKeyOutput, w)
}

func output(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(contextKeyOutput).(io.Writer); ok {
		return w
	}
	return os.Stdout
}
