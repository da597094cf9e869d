package store

import (
	"context"
	"errors"
	"time"

	"github.com/smith3v/sprachninja/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const PracticeSessionTTL = 24 * time.Hour

type PracticeSessionStore struct {
	db *gorm.DB
}

func NewPracticeSessionStore(gdb *gorm.DB) *PracticeSessionStore {
	return &PracticeSessionStore{db: gdb}
}

// Load returns the unexpired session of chatID, or nil.
func (s *PracticeSessionStore) Load(ctx context.Context, chatID int64, now time.Time) (*db.PracticeSession, error) {
	var session db.PracticeSession
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND expires_at > ?", chatID, now).
		First(&session).Error
	if err == nil {
		return &session, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// Upsert stores session, extending its expiry from LastActivityAt.
func (s *PracticeSessionStore) Upsert(ctx context.Context, session *db.PracticeSession) error {
	if session == nil {
		return nil
	}
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = time.Now().UTC()
	}
	session.ExpiresAt = session.LastActivityAt.Add(PracticeSessionTTL)

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"question_type",
			"question",
			"validation",
			"feedback",
			"message_id",
			"last_activity_at",
			"expires_at",
			"updated_at",
		}),
	}).Create(session).Error
}

func (s *PracticeSessionStore) Delete(ctx context.Context, chatID int64) error {
	return s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&db.PracticeSession{}).Error
}
