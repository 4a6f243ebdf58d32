// Package engine provides the core race mechanics for the Carreritas racing game.
//
// The engine package implements:
//   - The track validity map (drivable cells, start line, finish zone)
//   - Player state (position, heading, gear, turn counter, winner flag)
//   - Turn resolution: gear clamping, heading integration, displacement,
//     boundary clamping and off-track forfeiture
//   - Track configuration loading and validation
//
// Core Types:
//
// Track answers bounds and drivability queries and is immutable once built.
// Player is a plain state container. ResolveTurn is a pure function that
// computes a TurnOutcome from a Player, a Command and a Track; callers write
// the outcome back with Player.Apply.
//
// Usage:
//
//	track, err := engine.NewTrackFromConfig(engine.DefaultTrackConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := engine.ResolveTurn(player, engine.Command{
//		Accel:   engine.AccelAccelerate,
//		Heading: 45,
//	}, track, engine.DefaultSpeedConstant)
//	if errors.Is(err, engine.ErrInvalidCommand) {
//		// re-prompt
//	}
//	player.Apply(outcome)
//
// Movement Rules:
//
// Heading 0 points up the track (towards decreasing y). Each turn the gear
// moves by at most one step within [0,6], the heading changes by one of
// -90, -45, 0, 45 or 90 degrees, and the car travels speedConstant*gear cells
// along the new heading, truncated toward zero per axis and clamped to the
// track bounds. Landing off the track forfeits the move and the heading
// change but keeps the gear change.
package engine
