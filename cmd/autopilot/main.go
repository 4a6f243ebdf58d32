// Command autopilot races bots against a running carreritas server.
//
// It either creates a game or joins an existing one, adds one bot per name and
// plays every bot turn with a short lookahead search until the game finishes.
// Turns belonging to other players are waited for by polling.
//
// Usage:
//
//	autopilot [--url http://localhost:8080] [--game ID | --track ID] [bot names...]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/carreritas/game/service"
	"github.com/wricardo/carreritas/logging"
)

const (
	defaultDepth    = 2
	defaultMaxTurns = 500
)

type options struct {
	GameID   string
	TrackID  string
	Bots     []string
	Depth    int
	MaxTurns int
	Poll     time.Duration
}

func main() {
	cmd := &cli.Command{
		Name:  "autopilot",
		Usage: "race bots against a carreritas server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "http://localhost:8080",
				Usage:   "game server URL",
				Sources: cli.EnvVars("CARRERITAS_URL"),
			},
			&cli.StringFlag{Name: "game", Aliases: []string{"g"}, Usage: "join this game instead of creating one"},
			&cli.StringFlag{Name: "track", Aliases: []string{"t"}, Usage: "track for a new game (server default when empty)"},
			&cli.DurationFlag{Name: "poll", Value: 500 * time.Millisecond, Usage: "wait between checks while other players move"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every turn"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := "info"
			if cmd.Bool("verbose") {
				level = "debug"
			}
			closeLog, err := logging.Setup(os.Stderr, level, "")
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			bots := cmd.Args().Slice()
			if len(bots) == 0 {
				bots = []string{"Autopilot"}
			}

			game, err := race(ctx, NewClient(cmd.String("url")), options{
				GameID:   cmd.String("game"),
				TrackID:  cmd.String("track"),
				Bots:     bots,
				Depth:    defaultDepth,
				MaxTurns: defaultMaxTurns,
				Poll:     cmd.Duration("poll"),
			})
			if err != nil {
				return err
			}
			printResult(os.Stdout, game)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("autopilot failed")
	}
}

// race joins the bots and plays their turns until the game is over
func race(ctx context.Context, c *Client, opts options) (*service.GameInfo, error) {
	gameID := opts.GameID
	if gameID == "" {
		game, err := c.CreateGame(ctx, opts.TrackID)
		if err != nil {
			return nil, err
		}
		gameID = game.ID
		log.Info().Str("game", gameID).Str("track", game.TrackID).Msg("created game")
	}

	bots := make(map[string]bool, len(opts.Bots))
	for _, name := range opts.Bots {
		player, err := c.Join(ctx, gameID, name)
		if err != nil {
			return nil, err
		}
		bots[player.ID] = true
		log.Info().Str("game", gameID).Str("player", player.ID).Str("name", name).
			Int("x", player.Position.X).Int("y", player.Position.Y).Msg("bot joined")
	}

	game, err := c.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	track, err := c.Track(ctx, game.TrackID)
	if err != nil {
		return nil, err
	}

	for turns := 0; turns < opts.MaxTurns; {
		if game.Finished {
			return game, nil
		}

		next, err := c.Next(ctx, gameID)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				// Finished between the two calls
				return c.Game(ctx, gameID)
			}
			return nil, err
		}

		if !bots[next.ID] {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.Poll):
			}
			if game, err = c.Game(ctx, gameID); err != nil {
				return nil, err
			}
			continue
		}

		cmd := Choose(track, *next, game.Settings.SpeedConstant, opts.Depth)
		result, err := c.Turn(ctx, gameID, next.ID, cmd)
		if err != nil {
			return nil, err
		}
		turns++
		log.Debug().Str("player", next.Name).Str("accel", string(cmd.Accel)).Int("heading", cmd.Heading).
			Bool("applied", result.Outcome.Applied).Msg(result.Message)

		if game, err = c.Game(ctx, gameID); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("game %s not finished after %d bot turns", gameID, opts.MaxTurns)
}

func printResult(w io.Writer, game *service.GameInfo) {
	names := make([]string, 0, len(game.Winners))
	for _, p := range game.Winners {
		names = append(names, p.Name)
	}
	fmt.Fprintf(w, "Game %s finished. Winners: %s\n", game.ID, strings.Join(names, ", "))
}
