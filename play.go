package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/carreritas/game/config"
	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/service"
	"github.com/wricardo/carreritas/game/session"
	"github.com/wricardo/carreritas/validate"
)

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "race in the terminal, players taking turns at the keyboard",
		ArgsUsage: "[player names...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "track",
				Aliases: []string{"t"},
				Usage:   "track to race on",
				Value:   config.DefaultTrackID,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, closeLog, err := setup(cmd)
			if err != nil {
				return err
			}
			defer closeLog()

			tracks, err := config.NewManager(s.TracksDir)
			if err != nil {
				return fmt.Errorf("failed to create track manager: %w", err)
			}
			svc := service.NewGameService(session.NewManager(tracks), tracks, s.Game)

			names := cmd.Args().Slice()
			if len(names) == 0 {
				names = []string{"Player 1", "Player 2"}
			}
			return runPlay(ctx, svc, cmd.String("track"), names, os.Stdin, os.Stdout)
		},
	}
}

// hotSeat drives one race from a single terminal
type hotSeat struct {
	svc service.GameService
	in  *bufio.Scanner
	out io.Writer
}

// runPlay creates a game, joins the players and plays turns until someone wins
func runPlay(ctx context.Context, svc service.GameService, trackID string, names []string, in io.Reader, out io.Writer) error {
	h := &hotSeat{svc: svc, in: bufio.NewScanner(in), out: out}

	game, err := svc.CreateGame(ctx, service.CreateGameRequest{TrackID: trackID})
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := svc.JoinGame(ctx, game.ID, "", name); err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
	}

	frame, err := svc.RenderFrame(ctx, game.ID)
	if err != nil {
		return err
	}
	fmt.Fprint(out, frame)

	for {
		player, err := svc.NextPlayer(ctx, game.ID)
		if err != nil {
			return err
		}

		result, err := h.turn(ctx, game.ID, player)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, result.Message)
		fmt.Fprintln(out, "--------------------")

		if result.RoundComplete || result.Finished {
			frame, err := svc.RenderFrame(ctx, game.ID)
			if err != nil {
				return err
			}
			fmt.Fprint(out, frame)
		}

		if result.Finished {
			names := make([]string, len(result.Winners))
			for i, w := range result.Winners {
				names[i] = w.Name
			}
			if len(names) > 1 {
				fmt.Fprintf(out, "More than one winner: %s\n", strings.Join(names, ", "))
			} else {
				fmt.Fprintf(out, "%s wins!\n", strings.Join(names, ""))
			}
			return nil
		}
	}
}

// turn prompts the selected player until a valid command is played
func (h *hotSeat) turn(ctx context.Context, gameID string, player *engine.Player) (*service.TurnResult, error) {
	for {
		fmt.Fprintf(h.out, "Turn of %s (gear %d, heading %.0f°)\n", player.Name, player.Gear, player.EffectiveHeading())

		accel, err := h.ask("1) Accelerate\n2) Brake\n0) None\nSelect an option: ")
		if err != nil {
			return nil, err
		}

		var prompt strings.Builder
		prompt.WriteString("Select a heading:\n")
		for i, deg := range engine.HeadingChoices {
			fmt.Fprintf(&prompt, "%d) %d°\n", i, deg)
		}
		prompt.WriteString("Select an option: ")
		heading, err := h.ask(prompt.String())
		if err != nil {
			return nil, err
		}

		cmd, err := engine.ParseCommand(accel, "#"+heading)
		if err == nil {
			var result *service.TurnResult
			result, err = h.svc.PlayTurn(ctx, gameID, player.ID, cmd)
			if err == nil {
				return result, nil
			}
		}
		if !errors.Is(err, engine.ErrInvalidCommand) {
			return nil, err
		}
		fmt.Fprintf(h.out, "Invalid option: %v\n", err)
	}
}

func (h *hotSeat) ask(prompt string) (string, error) {
	fmt.Fprint(h.out, prompt)
	if !h.in.Scan() {
		if err := h.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(h.in.Text()), nil
}

func tracksCommand() *cli.Command {
	return &cli.Command{
		Name:      "tracks",
		Usage:     "check track files for playability",
		ArgsUsage: "[track files...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			var reports []validate.Report
			if cmd.Args().Len() > 0 {
				for _, file := range cmd.Args().Slice() {
					reports = append(reports, validate.File(file, s.Game.PlayerSeparation))
				}
			} else {
				reports, err = validate.Dir(s.TracksDir, s.Game.PlayerSeparation)
				if err != nil {
					return err
				}
				builtin := validate.Track(engine.DefaultTrackConfig(), s.Game.PlayerSeparation)
				builtin.File = "(built-in)"
				reports = append(reports, builtin)
			}

			if !validate.Print(os.Stdout, reports) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
