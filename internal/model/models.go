package model

import (
	"time"

	"gorm.io/datatypes"
)

// Accounts

type User struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	LineUserID  *string `gorm:"uniqueIndex;size:64"`
	DisplayName string  `gorm:"size:64;not null"`
	Avatar      string
	Level       int    `gorm:"default:1;not null"`
	Status      string `gorm:"default:normal;not null"` // normal/banned
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Admin struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Status       string `gorm:"default:active;not null"` // active/disabled
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sessions

type Game struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	HostID      int64 `gorm:"index;not null"`
	Title       string
	Location    string
	StartTime   time.Time `gorm:"index"`
	EndTime     time.Time
	CourtCount  int
	CourtLabels datatypes.JSON // ["1","2","A"]
	HostContact string
	Capacity    int
	Notes       string
	Status      string `gorm:"default:open;not null"` // open/closed
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Enrollment is a user's seat in a game; the live board calls it a player.
type Enrollment struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	GameID      int64  `gorm:"uniqueIndex:idx_game_user;not null"`
	UserID      int64  `gorm:"uniqueIndex:idx_game_user;not null"`
	Status      string `gorm:"default:waiting_checkin;not null"` // waiting_checkin/idle/playing
	GamesPlayed int    `gorm:"default:0;not null"`
	Wins        int    `gorm:"default:0;not null"`
	IsHost      bool
	CheckInAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Match struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	GameID      int64  `gorm:"index;not null"`
	CourtNumber string `gorm:"size:16;not null"`
	A1          int64
	A2          int64
	B1          int64
	B2          int64
	Status      string `gorm:"default:active;not null"` // active/finished
	Winner      string `gorm:"size:8"`                  // A/B/none
	StartedAt   time.Time
	EndedAt     *time.Time
	CreatedAt   time.Time
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Admin{},
		&Game{},
		&Enrollment{},
		&Match{},
	}
}
