package db

import (
	"time"

	"gorm.io/datatypes"
)

// UserProfileID is the primary key of the only profile row.
const UserProfileID uint = 1

type UserProfile struct {
	ID               uint   `gorm:"primaryKey;autoIncrement:false"`
	DisplayName      string `gorm:"not null"`
	ProficiencyLevel string `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type RecentQuestion struct {
	ID           uint   `gorm:"primaryKey"`
	QuestionText string `gorm:"not null;uniqueIndex:idx_recent_question_level"`
	UserLevel    string `gorm:"not null;uniqueIndex:idx_recent_question_level;index"`
	CreatedAt    time.Time
}

type LevelStats struct {
	GermanLevel  string `gorm:"primaryKey"`
	CorrectCount int    `gorm:"not null;default:0"`
	WrongCount   int    `gorm:"not null;default:0"`
}

func (LevelStats) TableName() string {
	return "level_stats"
}

// PracticeSession keeps the active question of a chat between updates.
type PracticeSession struct {
	ID             uint           `gorm:"primaryKey"`
	ChatID         int64          `gorm:"uniqueIndex"`
	UserID         int64          `gorm:"index"`
	QuestionType   string         `gorm:"not null"`
	Question       datatypes.JSON `gorm:"not null"`
	Validation     string         `gorm:"not null;default:'UNCHECKED'"`
	Feedback       string         `gorm:"not null;default:''"`
	MessageID      int            `gorm:"not null;default:0"`
	LastActivityAt time.Time      `gorm:"not null"`
	ExpiresAt      time.Time      `gorm:"not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{&UserProfile{}, &RecentQuestion{}, &LevelStats{}, &PracticeSession{}}
}
