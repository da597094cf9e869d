package store

import (
	"context"
	"errors"
	"sync"

	"github.com/smith3v/sprachninja/pkg/db"
	"github.com/smith3v/sprachninja/pkg/observe"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Stats struct {
	Correct int
	Wrong   int
}

type LevelStatsRepository struct {
	db *gorm.DB

	mu       sync.Mutex
	subjects map[string]*observe.Subject[*Stats]
}

func NewLevelStatsRepository(gdb *gorm.DB) *LevelStatsRepository {
	return &LevelStatsRepository{
		db:       gdb,
		subjects: make(map[string]*observe.Subject[*Stats]),
	}
}

// Get returns the counters of level, or nil when nothing was answered there.
func (r *LevelStatsRepository) Get(ctx context.Context, level string) (*Stats, error) {
	var row db.LevelStats
	err := r.db.WithContext(ctx).Where("german_level = ?", level).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Stats{Correct: row.CorrectCount, Wrong: row.WrongCount}, nil
}

// StatsFor streams the counters of level, starting with the stored value.
func (r *LevelStatsRepository) StatsFor(ctx context.Context, level string) (*observe.Subscription[*Stats], error) {
	subject, fresh := r.subjectFor(level)
	if fresh {
		if _, err := r.refresh(ctx, level); err != nil {
			r.mu.Lock()
			delete(r.subjects, level)
			r.mu.Unlock()
			return nil, err
		}
	}
	return subject.Subscribe(), nil
}

func (r *LevelStatsRepository) IncrementCorrect(ctx context.Context, level string) error {
	return r.increment(ctx, level, "correct_count")
}

func (r *LevelStatsRepository) IncrementWrong(ctx context.Context, level string) error {
	return r.increment(ctx, level, "wrong_count")
}

// increment creates the zero row first because UPDATE on a missing row
// changes nothing.
func (r *LevelStatsRepository) increment(ctx context.Context, level, column string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := db.LevelStats{GermanLevel: level}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		return tx.Model(&db.LevelStats{}).
			Where("german_level = ?", level).
			UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
	})
	if err != nil {
		return err
	}
	_, err = r.refresh(ctx, level)
	return err
}

func (r *LevelStatsRepository) subjectFor(level string) (*observe.Subject[*Stats], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subject, ok := r.subjects[level]
	if !ok {
		subject = observe.NewSubject[*Stats]()
		r.subjects[level] = subject
	}
	return subject, !ok
}

func (r *LevelStatsRepository) refresh(ctx context.Context, level string) (*Stats, error) {
	stats, err := r.Get(ctx, level)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	subject, ok := r.subjects[level]
	r.mu.Unlock()
	if ok {
		subject.Publish(stats)
	}
	return stats, nil
}
