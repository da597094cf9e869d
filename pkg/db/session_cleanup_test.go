package db

import (
	"context"
	"testing"
	"time"

	"github.com/smith3v/sprachninja/pkg/config"
	"github.com/smith3v/sprachninja/pkg/logger"
	"gorm.io/datatypes"
)

func TestCleanupExpiredSessions(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)
	gdb, err := Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   "file:session_cleanup?mode=memory&cache=shared",
	}, "silent")
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		if err := Close(gdb); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})

	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	raw := datatypes.JSON([]byte(`{}`))

	expired := PracticeSession{
		ChatID:         1,
		UserID:         1,
		QuestionType:   "FILL_IN_THE_BLANK",
		Question:       raw,
		LastActivityAt: now.Add(-48 * time.Hour),
		ExpiresAt:      now.Add(-24 * time.Hour),
	}
	boundary := PracticeSession{
		ChatID:         2,
		UserID:         2,
		QuestionType:   "TRANSLATE_EN_DE",
		Question:       raw,
		LastActivityAt: now.Add(-24 * time.Hour),
		ExpiresAt:      now,
	}
	active := PracticeSession{
		ChatID:         3,
		UserID:         3,
		QuestionType:   "MULTIPLE_CHOICE_WORD",
		Question:       raw,
		LastActivityAt: now,
		ExpiresAt:      now.Add(24 * time.Hour),
	}
	for _, session := range []*PracticeSession{&expired, &boundary, &active} {
		if err := gdb.Create(session).Error; err != nil {
			t.Fatalf("failed to seed session %d: %v", session.ChatID, err)
		}
	}

	deleted, err := CleanupExpiredSessions(context.Background(), gdb, now)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted rows, got %d", deleted)
	}

	var remaining []PracticeSession
	if err := gdb.Find(&remaining).Error; err != nil {
		t.Fatalf("failed to load sessions: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ChatID != 3 {
		t.Fatalf("expected only the active session to remain, got %+v", remaining)
	}
}

func TestCleanupExpiredSessionsNilDB(t *testing.T) {
	deleted, err := CleanupExpiredSessions(context.Background(), nil, time.Now())
	if err != nil || deleted != 0 {
		t.Fatalf("expected no-op for nil db, got %d %v", deleted, err)
	}
}

func TestStartSessionCleanupStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- StartSessionCleanup(ctx, nil, time.Millisecond)
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("cleanup loop did not stop")
	}
}
