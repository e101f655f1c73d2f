// Command meshgate is the demo gateway binary: it wires the protocol
// dispatcher, router, sandbox pool, audit stream, and credential facade
// behind a single HTTP surface.
//
// Usage:
//
//	meshgate serve --port 8080
//	meshgate serve --credentials-file ./credentials.yaml --sandbox-binary-dir ./bin
//	meshgate version
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	core "github.com/meshgate/core"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the gateway HTTP surface."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose; any other value uses slog's plain text format)." default:"simple"`
}

// VersionCmd prints build version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(core.GetVersion().String())
	return nil
}

func main() {
	// Load a .env file if present; real env vars always win since
	// godotenv.Load never overwrites an already-set variable.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
		}
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("meshgate"),
		kong.Description("Multi-protocol agent-tool gateway."),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
