// Package session runs race sessions on top of the engine.
//
// A GameSession owns one track, the ordered set of players racing on it and
// the round counter. It decides whose turn it is, applies commands through
// the engine, tracks round completion and records winners. All mutations are
// serialized per session; readers may call any accessor concurrently.
//
// Turn Order:
//
// SelectNextPlayer picks the player with the fewest turns played, breaking
// ties by join order. ApplyTurn only accepts the selected player, and each
// selection is consumed by exactly one applied turn. Player turn counts never
// differ by more than one.
//
// Rounds and Winners:
//
// A round is complete once every player has played the same number of turns.
// Winners are evaluated only at that boundary: every player standing on the
// finish line (bottom row, right half) wins, and the session finishes. Winner
// flags never revert.
//
// Events:
//
// Each committed mutation emits an Event to the registered observers. Events
// are delivered outside the session lock in commit order, so observers may
// read the session but must not mutate it.
//
// Manager:
//
// Manager keeps sessions keyed by case-insensitive 4-character IDs generated
// from cryptographic randomness, and optionally persists snapshots through a
// SessionPersistence after every event.
//
//	manager := session.NewManagerWithPersistence(tracks, persistence)
//
//	sess, err := manager.Create("", track, session.DefaultSettings(), time.Now().UnixNano())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	p, _ := sess.Join("ana", "Ana")
//	next, _ := sess.SelectNextPlayer()
//	outcome, err := sess.ApplyTurn(next.ID, engine.Command{Accel: engine.AccelAccelerate, Heading: 0})
package session
