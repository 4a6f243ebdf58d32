package store

import (
	"time"

	"gorm.io/datatypes"
)

// GameRecord is one row per race
type GameRecord struct {
	ID               string `gorm:"primaryKey;size:64"`
	TrackID          string `gorm:"size:128;index"`
	SpeedConstant    float64
	PlayerSeparation int
	Round            int
	Finished         bool
	Winners          datatypes.JSON
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName overrides the default table name
func (GameRecord) TableName() string { return "games" }

// PlayerRecord is the latest known state of a player in a race
type PlayerRecord struct {
	GameID      string `gorm:"primaryKey;size:64"`
	PlayerID    string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:64"`
	JoinOrder   int
	X           int
	Y           int
	Heading     float64
	Gear        int
	TurnsPlayed int
	IsWinner    bool
	Color       datatypes.JSON
	Removed     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the default table name
func (PlayerRecord) TableName() string { return "players" }

// TurnRecord is one resolved turn
type TurnRecord struct {
	ID          uint   `gorm:"primaryKey"`
	GameID      string `gorm:"size:64;index:idx_turns_game_turn"`
	PlayerID    string `gorm:"size:64"`
	TurnsPlayed int    `gorm:"index:idx_turns_game_turn"`
	Round       int
	Applied     bool
	Gear        int
	Heading     float64
	X           int
	Y           int
	DestX       int
	DestY       int
	Outcome     datatypes.JSON
	CreatedAt   time.Time
}

// TableName overrides the default table name
func (TurnRecord) TableName() string { return "turns" }
