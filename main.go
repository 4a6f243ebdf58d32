// Command carreritas runs turn based races.
//
// Commands:
//  1. "serve" (default) – HTTP server exposing the REST API, WebSocket events and an /mcp HTTP endpoint
//  2. "mcp" – MCP stdio server; reuses a running API or spins up an internal one
//  3. "play" – hot-seat race in the terminal
//  4. "tracks" – checks track files for playability
//
// Settings come from an optional carreritas.yaml (or --config), CARRERITAS_*
// environment variables and a .env file. See the settings package.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/carreritas/logging"
	"github.com/wricardo/carreritas/settings"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Carreritas"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("carreritas failed")
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "carreritas",
		Usage:   "turn based racing on grid tracks",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "settings file (yaml, json or toml)",
				Sources: cli.EnvVars("CARRERITAS_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn or error (overrides log.level)",
			},
			&cli.StringFlag{
				Name:  "tracks-dir",
				Usage: "directory containing track files (overrides tracks_dir)",
			},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			playCommand(),
			tracksCommand(),
		},
	}
}

// loadSettings reads settings and applies the global flag overrides
func loadSettings(cmd *cli.Command) (*settings.Settings, error) {
	root := cmd.Root()

	v := settings.New()
	if dir := root.String("tracks-dir"); dir != "" {
		v.Set("tracks_dir", dir)
	}
	if level := root.String("log-level"); level != "" {
		v.Set("log.level", level)
	}

	return settings.Load(v, root.String("config"))
}

// setup loads settings and installs the logger. The returned function flushes logging.
func setup(cmd *cli.Command) (*settings.Settings, func() error, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	closeLog, err := logging.Setup(os.Stderr, s.Log.Level, s.Log.GelfAddr)
	if err != nil {
		return nil, nil, err
	}
	return s, closeLog, nil
}
