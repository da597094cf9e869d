// Package store holds the gorm-backed repositories for the learner profile,
// recent question history, per-level statistics and chat practice sessions.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smith3v/sprachninja/pkg/db"
	"github.com/smith3v/sprachninja/pkg/observe"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrBlankDisplayName = errors.New("display name must not be blank")

// DefaultLevel is assigned when onboarding leaves the level blank.
const DefaultLevel = "A1.1"

type UserRepository struct {
	db      *gorm.DB
	subject *observe.Subject[*db.UserProfile]
}

func NewUserRepository(gdb *gorm.DB) *UserRepository {
	return &UserRepository{
		db:      gdb,
		subject: observe.NewSubject[*db.UserProfile](),
	}
}

// Upsert replaces the singleton profile.
func (r *UserRepository) Upsert(ctx context.Context, displayName, level string) (*db.UserProfile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrBlankDisplayName
	}
	level = strings.TrimSpace(level)
	if level == "" {
		level = DefaultLevel
	}

	profile := db.UserProfile{
		ID:               db.UserProfileID,
		DisplayName:      displayName,
		ProficiencyLevel: level,
		UpdatedAt:        time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "proficiency_level", "updated_at"}),
	}).Create(&profile).Error
	if err != nil {
		return nil, err
	}
	if _, err := r.refresh(ctx); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Current returns the profile, or nil when onboarding has not happened.
func (r *UserRepository) Current(ctx context.Context) (*db.UserProfile, error) {
	var profile db.UserProfile
	err := r.db.WithContext(ctx).First(&profile, db.UserProfileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetLevel changes the level of the existing profile. Without a profile it
// does nothing and reports false.
func (r *UserRepository) SetLevel(ctx context.Context, level string) (bool, error) {
	level = strings.TrimSpace(level)
	res := r.db.WithContext(ctx).
		Model(&db.UserProfile{}).
		Where("id = ?", db.UserProfileID).
		Updates(map[string]any{"proficiency_level": level, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if _, err := r.refresh(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Observe streams the profile: the current value first (nil when absent),
// then every change made through this repository.
func (r *UserRepository) Observe(ctx context.Context) (*observe.Subscription[*db.UserProfile], error) {
	if _, ok := r.subject.Value(); !ok {
		if _, err := r.refresh(ctx); err != nil {
			return nil, err
		}
	}
	return r.subject.Subscribe(), nil
}

func (r *UserRepository) refresh(ctx context.Context) (*db.UserProfile, error) {
	profile, err := r.Current(ctx)
	if err != nil {
		return nil, err
	}
	r.subject.Publish(profile)
	return profile, nil
}
