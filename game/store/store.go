// Package store records races in a SQL database through gorm.
//
// A Store is a session observer: every committed event upserts the game and
// player rows, and every applied turn appends a turn row. SQLite (pure Go,
// no cgo) and Postgres are supported.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/session"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// Store writes session events to the database
type Store struct {
	db *gorm.DB
}

// Open connects to the database and migrates the schema
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// one writer at a time avoids "database is locked"
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db)
}

// New wraps an open connection and migrates the schema
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&GameRecord{}, &PlayerRecord{}, &TurnRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OnEvent implements session.Observer. Write errors are logged, never returned
// to the session.
func (s *Store) OnEvent(event session.Event) {
	if err := s.Record(event); err != nil {
		log.Error().Err(err).Str("game", event.SessionID).Str("event", string(event.Type)).Msg("failed to record event")
	}
}

// Record writes one event
func (s *Store) Record(event session.Event) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertGame(tx, event); err != nil {
			return err
		}
		for _, p := range event.Players {
			if err := upsertPlayer(tx, event.SessionID, p); err != nil {
				return err
			}
		}

		switch event.Type {
		case session.EventPlayerRemoved:
			if event.Player == nil {
				return nil
			}
			err := tx.Model(&PlayerRecord{}).
				Where("game_id = ? AND player_id = ?", event.SessionID, event.Player.ID).
				Update("removed", true).Error
			if err != nil {
				return fmt.Errorf("failed to mark player removed: %w", err)
			}
		case session.EventTurnApplied:
			if event.Outcome == nil {
				return nil
			}
			if err := insertTurn(tx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

// Game returns the record of one race
func (s *Store) Game(id string) (*GameRecord, error) {
	var game GameRecord
	if err := s.db.First(&game, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// Players returns the players of a race in join order
func (s *Store) Players(gameID string) ([]PlayerRecord, error) {
	var players []PlayerRecord
	err := s.db.Where("game_id = ?", gameID).Order("join_order").Find(&players).Error
	return players, err
}

// Turns returns the turns of a race in the order they were played
func (s *Store) Turns(gameID string) ([]TurnRecord, error) {
	var turns []TurnRecord
	err := s.db.Where("game_id = ?", gameID).Order("id").Find(&turns).Error
	return turns, err
}

func upsertGame(tx *gorm.DB, event session.Event) error {
	game := GameRecord{
		ID:               event.SessionID,
		TrackID:          event.Track,
		SpeedConstant:    event.Settings.SpeedConstant,
		PlayerSeparation: event.Settings.PlayerSeparation,
		Round:            event.Round,
		Finished:         event.Finished,
	}
	winners, err := json.Marshal(winnerIDs(event.Players))
	if err != nil {
		return err
	}
	game.Winners = datatypes.JSON(winners)

	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"round", "finished", "winners", "updated_at"}),
	}).Create(&game).Error
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}
	return nil
}

func upsertPlayer(tx *gorm.DB, gameID string, p engine.Player) error {
	color, err := json.Marshal(p.Color)
	if err != nil {
		return err
	}
	record := PlayerRecord{
		GameID:      gameID,
		PlayerID:    p.ID,
		Name:        p.Name,
		JoinOrder:   p.JoinOrder,
		X:           p.Position.X,
		Y:           p.Position.Y,
		Heading:     p.Heading,
		Gear:        p.Gear,
		TurnsPlayed: p.TurnsPlayed,
		IsWinner:    p.IsWinner,
		Color:       datatypes.JSON(color),
	}

	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"x", "y", "heading", "gear", "turns_played", "is_winner", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert player %s: %w", p.ID, err)
	}
	return nil
}

func insertTurn(tx *gorm.DB, event session.Event) error {
	outcome, err := json.Marshal(event.Outcome)
	if err != nil {
		return err
	}
	o := event.Outcome
	turn := TurnRecord{
		GameID:      event.SessionID,
		PlayerID:    o.PlayerID,
		TurnsPlayed: o.TurnsPlayed,
		Round:       event.Round,
		Applied:     o.Applied,
		Gear:        o.Gear,
		Heading:     o.Heading,
		X:           o.Position.X,
		Y:           o.Position.Y,
		DestX:       o.Destination.X,
		DestY:       o.Destination.Y,
		Outcome:     datatypes.JSON(outcome),
	}
	if err := tx.Create(&turn).Error; err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func winnerIDs(players []engine.Player) []string {
	ids := []string{}
	for _, p := range players {
		if p.IsWinner {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
