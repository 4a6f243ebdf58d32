package session

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/wricardo/carreritas/game/engine"
)

var (
	ErrNoPlayers       = errors.New("session has no players")
	ErrNotPlayersTurn  = errors.New("not this player's turn")
	ErrSessionFinished = errors.New("session finished")
	ErrGameStarted     = errors.New("game already started")
	ErrPlayerExists    = errors.New("player already joined")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Settings is the per-session configuration surface
type Settings struct {
	SpeedConstant    float64 `json:"speed_constant" mapstructure:"speed_constant"`
	PlayerSeparation int     `json:"player_separation" mapstructure:"player_separation"`
}

// DefaultSettings returns the stock speed constant and start line spacing
func DefaultSettings() Settings {
	return Settings{
		SpeedConstant:    engine.DefaultSpeedConstant,
		PlayerSeparation: engine.DefaultPlayerSeparation,
	}
}

// Validate checks that both values are positive
func (s Settings) Validate() error {
	if s.SpeedConstant <= 0 {
		return fmt.Errorf("%w: speed_constant must be positive, got %v", ErrInvalidSettings, s.SpeedConstant)
	}
	if s.PlayerSeparation <= 0 {
		return fmt.Errorf("%w: player_separation must be positive, got %d", ErrInvalidSettings, s.PlayerSeparation)
	}
	return nil
}

// GameSession owns the players of one race, the turn order and win detection.
// All methods are safe for concurrent use; mutations are serialized per session.
type GameSession struct {
	mu sync.Mutex

	// event delivery is ordered by ticket and runs outside mu
	emitMu   sync.Mutex
	emitCond *sync.Cond
	emitSeq  uint64 // next ticket, guarded by mu
	emitNext uint64 // ticket being delivered, guarded by emitMu

	id        string
	track     *engine.Track
	settings  Settings
	rng       *rand.Rand
	observers []Observer

	players  []*engine.Player
	nextJoin int
	expected string // player returned by the last SelectNextPlayer, consumed by ApplyTurn
	round    int
	started  bool
	finished bool

	createdAt      time.Time
	lastAccessedAt time.Time
}

// New creates an empty session. The random source drives player colors and
// must be supplied by the caller so games are reproducible.
func New(id string, track *engine.Track, settings Settings, rng *rand.Rand, observers ...Observer) (*GameSession, error) {
	if track == nil {
		return nil, fmt.Errorf("track cannot be nil")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source cannot be nil")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	s := newSession(id, track, settings, rng, observers)
	s.createdAt = now
	s.lastAccessedAt = now
	return s, nil
}

func newSession(id string, track *engine.Track, settings Settings, rng *rand.Rand, observers []Observer) *GameSession {
	s := &GameSession{
		id:        id,
		track:     track,
		settings:  settings,
		rng:       rng,
		observers: observers,
	}
	s.emitCond = sync.NewCond(&s.emitMu)
	return s
}

// ID returns the session identifier
func (s *GameSession) ID() string { return s.id }

// Track returns the track the session is raced on
func (s *GameSession) Track() *engine.Track { return s.track }

// Settings returns the session settings
func (s *GameSession) Settings() Settings { return s.settings }

// AddObserver registers an observer for subsequent events
func (s *GameSession) AddObserver(o Observer) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.observers = append(s.observers, o)
}

// Join adds a player on the next free start line slot. Players can only join
// before the first turn is played.
func (s *GameSession) Join(id, name string) (engine.Player, error) {
	s.mu.Lock()

	if s.finished {
		s.mu.Unlock()
		return engine.Player{}, ErrSessionFinished
	}
	if s.started {
		s.mu.Unlock()
		return engine.Player{}, ErrGameStarted
	}
	if s.find(id) != nil {
		s.mu.Unlock()
		return engine.Player{}, fmt.Errorf("%w: %s", ErrPlayerExists, id)
	}

	pos, err := s.freeSpawn()
	if err != nil {
		s.mu.Unlock()
		return engine.Player{}, err
	}

	player := &engine.Player{
		ID:        id,
		Name:      name,
		JoinOrder: s.nextJoin,
		Position:  pos,
		Color:     s.randomColor(),
	}
	s.nextJoin++
	s.players = append(s.players, player)
	s.touch()

	joined := *player
	s.commit(Event{Type: EventPlayerCreated, Player: &joined})
	return joined, nil
}

// SelectNextPlayer returns the player with the fewest turns played, ties going
// to the earliest to join, and remembers it as the only player allowed to
// submit the next turn.
func (s *GameSession) SelectNextPlayer() (engine.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return engine.Player{}, ErrSessionFinished
	}
	next := s.next()
	if next == nil {
		return engine.Player{}, ErrNoPlayers
	}

	s.expected = next.ID
	s.touch()
	return *next, nil
}

// ApplyTurn resolves a command for the selected player and commits the outcome.
// An invalid command leaves the selection in place so the caller can re-prompt.
func (s *GameSession) ApplyTurn(playerID string, cmd engine.Command) (engine.TurnOutcome, error) {
	s.mu.Lock()

	if s.finished {
		s.mu.Unlock()
		return engine.TurnOutcome{}, ErrSessionFinished
	}
	if len(s.players) == 0 {
		s.mu.Unlock()
		return engine.TurnOutcome{}, ErrNoPlayers
	}
	if s.expected == "" || s.expected != playerID {
		s.mu.Unlock()
		return engine.TurnOutcome{}, fmt.Errorf("%w: %s", ErrNotPlayersTurn, playerID)
	}

	player := s.find(playerID)
	if player == nil {
		s.mu.Unlock()
		return engine.TurnOutcome{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}

	outcome, err := engine.ResolveTurn(*player, cmd, s.track, s.settings.SpeedConstant)
	if err != nil {
		s.mu.Unlock()
		return engine.TurnOutcome{}, err
	}

	player.Apply(outcome)
	s.expected = ""
	s.started = true
	s.touch()

	events := []Event{{Type: EventTurnApplied, Player: copyPlayer(player), Outcome: &outcome}}
	events = append(events, s.settle()...)
	s.commit(events...)
	return outcome, nil
}

// RemovePlayer drops a player, e.g. after a disconnect. Round completion is
// re-checked against the remaining players straight away.
func (s *GameSession) RemovePlayer(playerID string) error {
	s.mu.Lock()

	idx := -1
	for i, p := range s.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}

	removed := s.players[idx]
	s.players = append(s.players[:idx], s.players[idx+1:]...)
	if s.expected == playerID {
		s.expected = ""
	}
	s.touch()

	events := []Event{{Type: EventPlayerRemoved, Player: copyPlayer(removed)}}
	events = append(events, s.settle()...)
	s.commit(events...)
	return nil
}

// IsRoundComplete reports whether every player has played the same number of turns
func (s *GameSession) IsRoundComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roundComplete()
}

// EvaluateWinners settles a completed round and returns the winner set.
// Between round boundaries it only reports players already marked.
func (s *GameSession) EvaluateWinners() []engine.Player {
	s.mu.Lock()
	events := s.settle()
	winners := s.winners()
	s.commit(events...)
	return winners
}

// IsFinished reports whether a round ended with at least one winner
func (s *GameSession) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Round returns the number of completed rounds
func (s *GameSession) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Started reports whether any turn has been played
func (s *GameSession) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Expected returns the ID of the selected player, or "" when nobody is selected
func (s *GameSession) Expected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expected
}

// Players returns a copy of the players in join order
func (s *GameSession) Players() []engine.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playersCopy()
}

// Player returns a copy of one player
func (s *GameSession) Player(id string) (engine.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(id)
	if p == nil {
		return engine.Player{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	return *p, nil
}

// Winners returns the players marked as winners
func (s *GameSession) Winners() []engine.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winners()
}

// CreatedAt returns when the session was created
func (s *GameSession) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

// LastAccessedAt returns when the session was last used
func (s *GameSession) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessedAt
}

// Touch marks the session as used now
func (s *GameSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
}

// settle evaluates a newly completed round. Must be called with mu held.
func (s *GameSession) settle() []Event {
	if s.finished || !s.roundComplete() {
		return nil
	}
	turns := s.players[0].TurnsPlayed
	if turns <= s.round {
		return nil
	}

	for _, p := range s.players {
		if s.track.FinishLine(p.Position) {
			p.IsWinner = true
		}
	}

	if winners := s.winners(); len(winners) > 0 {
		s.finished = true
		s.expected = ""
		return []Event{{Type: EventSessionFinished, Winners: winners}}
	}

	s.round = turns
	return []Event{{Type: EventRoundAdvanced}}
}

// commit releases mu and delivers events to observers in commit order.
// Delivery happens outside mu so observers may read the session.
func (s *GameSession) commit(events ...Event) {
	if len(events) == 0 {
		s.mu.Unlock()
		return
	}

	now := time.Now()
	players := s.playersCopy()
	for i := range events {
		events[i].SessionID = s.id
		events[i].Track = s.track.Name()
		events[i].Settings = s.settings
		events[i].Round = s.round
		events[i].Finished = s.finished
		events[i].Players = players
		events[i].Timestamp = now
	}
	ticket := s.emitSeq
	s.emitSeq++
	s.mu.Unlock()

	s.emitMu.Lock()
	for s.emitNext != ticket {
		s.emitCond.Wait()
	}
	observers := append([]Observer(nil), s.observers...)
	s.emitMu.Unlock()

	for _, e := range events {
		for _, o := range observers {
			o.OnEvent(e)
		}
	}

	s.emitMu.Lock()
	s.emitNext++
	s.emitCond.Broadcast()
	s.emitMu.Unlock()
}

func (s *GameSession) roundComplete() bool {
	if len(s.players) == 0 {
		return false
	}
	turns := s.players[0].TurnsPlayed
	for _, p := range s.players[1:] {
		if p.TurnsPlayed != turns {
			return false
		}
	}
	return true
}

func (s *GameSession) next() *engine.Player {
	var next *engine.Player
	for _, p := range s.players {
		// players are kept in join order, so strict less keeps the earliest on ties
		if next == nil || p.TurnsPlayed < next.TurnsPlayed {
			next = p
		}
	}
	return next
}

func (s *GameSession) find(id string) *engine.Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *GameSession) winners() []engine.Player {
	var winners []engine.Player
	for _, p := range s.players {
		if p.IsWinner {
			winners = append(winners, *p)
		}
	}
	return winners
}

func (s *GameSession) playersCopy() []engine.Player {
	players := make([]engine.Player, len(s.players))
	for i, p := range s.players {
		players[i] = *p
	}
	return players
}

// freeSpawn returns the lowest start line slot not taken by a current player
func (s *GameSession) freeSpawn() (engine.Position, error) {
	for slot := 0; ; slot++ {
		pos, err := s.track.SpawnPosition(slot, s.settings.PlayerSeparation)
		if err != nil {
			return engine.Position{}, err
		}
		taken := false
		for _, p := range s.players {
			if p.Position == pos {
				taken = true
				break
			}
		}
		if !taken {
			return pos, nil
		}
	}
}

func (s *GameSession) randomColor() engine.Color {
	channel := func() uint8 { return uint8(100 + 16*s.rng.Intn(10)) }
	return engine.Color{R: channel(), G: channel(), B: channel()}
}

func (s *GameSession) touch() {
	s.lastAccessedAt = time.Now()
}

func copyPlayer(p *engine.Player) *engine.Player {
	c := *p
	return &c
}
