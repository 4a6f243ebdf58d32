package main

import (
	"math"

	"github.com/wricardo/carreritas/game/engine"
)

// forfeitPenalty keeps moves that bounce off the track behind any legal move
const forfeitPenalty = 1000

var accelOrder = []engine.AccelInput{engine.AccelAccelerate, engine.AccelNone, engine.AccelBrake}

// Choose picks the command whose best line over the next depth turns ends
// closest to the finish zone. Ties go to the first candidate, accelerating and
// turning left first.
func Choose(track *engine.Track, player engine.Player, speed float64, depth int) engine.Command {
	cmd, _ := search(track, player, speed, max(depth, 1))
	return cmd
}

func search(track *engine.Track, player engine.Player, speed float64, depth int) (engine.Command, int) {
	best := engine.Command{Accel: engine.AccelNone}
	bestScore := math.MaxInt

	for _, accel := range accelOrder {
		for _, heading := range engine.HeadingChoices {
			cmd := engine.Command{Accel: accel, Heading: heading}
			outcome, err := engine.ResolveTurn(player, cmd, track, speed)
			if err != nil {
				continue
			}

			next := player
			next.Apply(outcome)
			score := engine.DistanceToFinish(track, next.Position)
			if score < 0 {
				score = 0
			}
			if !outcome.Applied {
				score += forfeitPenalty
			}
			if depth > 1 && score > 0 {
				if _, ahead := search(track, next, speed, depth-1); ahead < score {
					score = ahead
				}
			}

			if score < bestScore {
				best, bestScore = cmd, score
			}
		}
	}
	return best, bestScore
}
