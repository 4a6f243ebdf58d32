// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger. Human-readable output goes to out; when
// gelfAddr is set, JSON records are also shipped to Graylog over UDP. The
// returned function closes the Graylog writer.
func Setup(out io.Writer, level, gelfAddr string) (func() error, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    out != os.Stderr && out != os.Stdout,
		},
	}

	closer := func() error { return nil }
	if gelfAddr != "" {
		gw, err := gelf.NewWriter(gelfAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to create graylog writer: %w", err)
		}
		writers = append(writers, gw)
		closer = gw.Close
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	log.Debug().Str("level", lvl.String()).Bool("graylog", gelfAddr != "").Msg("logging set up")

	return closer, nil
}

// ParseLevel parses a level name; empty means info
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
