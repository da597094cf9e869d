package store

import (
	"context"

	"github.com/smith3v/sprachninja/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxRecentQuestions bounds the history returned per level.
const MaxRecentQuestions = 20

type RecentQuestionRepository struct {
	db *gorm.DB
}

func NewRecentQuestionRepository(gdb *gorm.DB) *RecentQuestionRepository {
	return &RecentQuestionRepository{db: gdb}
}

// Record appends questionText to the history of level. A text already
// recorded for the same level is left untouched.
func (r *RecentQuestionRepository) Record(ctx context.Context, questionText, level string) error {
	row := db.RecentQuestion{QuestionText: questionText, UserLevel: level}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

// RecentFor returns at most MaxRecentQuestions rows for level, newest first.
func (r *RecentQuestionRepository) RecentFor(ctx context.Context, level string) ([]db.RecentQuestion, error) {
	var rows []db.RecentQuestion
	err := r.db.WithContext(ctx).
		Where("user_level = ?", level).
		Order("id DESC").
		Limit(MaxRecentQuestions).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecentTexts is RecentFor reduced to the question texts.
func (r *RecentQuestionRepository) RecentTexts(ctx context.Context, level string) ([]string, error) {
	rows, err := r.RecentFor(ctx, level)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		texts = append(texts, row.QuestionText)
	}
	return texts, nil
}
