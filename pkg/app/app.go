// Package app owns the process-wide collaborators: the database handle, the
// repositories, the settings store and the Gemini-backed services.
package app

import (
	"errors"
	"time"

	"github.com/smith3v/sprachninja/pkg/config"
	"github.com/smith3v/sprachninja/pkg/curriculum"
	"github.com/smith3v/sprachninja/pkg/db"
	"github.com/smith3v/sprachninja/pkg/gemini"
	"github.com/smith3v/sprachninja/pkg/practice"
	"github.com/smith3v/sprachninja/pkg/settings"
	"github.com/smith3v/sprachninja/pkg/store"
	"github.com/smith3v/sprachninja/pkg/tips"
	"gorm.io/gorm"
)

type App struct {
	DB         *gorm.DB
	Users      *store.UserRepository
	Recent     *store.RecentQuestionRepository
	Stats      *store.LevelStatsRepository
	Sessions   *store.PracticeSessionStore
	Settings   *settings.Store
	Curriculum *curriculum.Catalog
	Gemini     *gemini.Client
	Generator  *practice.GeminiGenerator
	Tips       *tips.Cache
}

type Option func(*options)

type options struct {
	geminiOpts []gemini.Option
	now        func() time.Time
}

// WithGeminiOptions customises the Gemini client, e.g. its HTTP transport.
func WithGeminiOptions(opts ...gemini.Option) Option {
	return func(o *options) {
		o.geminiOpts = append(o.geminiOpts, opts...)
	}
}

// WithClock replaces the clock used for the daily tip date.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Open builds the application from cfg. Close must be called to release the
// database.
func Open(cfg config.Config, opts ...Option) (*App, error) {
	gdb, err := db.Open(cfg.Database, cfg.Logging.GormLevel)
	if err != nil {
		return nil, err
	}
	return New(gdb, cfg, opts...)
}

// New wires the application around an already opened database.
func New(gdb *gorm.DB, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	secure, err := settings.Open(cfg.Secure.SettingsFile, cfg.Secure.KeyFile)
	if err != nil {
		return nil, errors.Join(err, db.Close(gdb))
	}

	client := gemini.NewClient(cfg.Gemini.BaseURL, time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second, o.geminiOpts...)
	return &App{
		DB:         gdb,
		Users:      store.NewUserRepository(gdb),
		Recent:     store.NewRecentQuestionRepository(gdb),
		Stats:      store.NewLevelStatsRepository(gdb),
		Sessions:   store.NewPracticeSessionStore(gdb),
		Settings:   secure,
		Curriculum: curriculum.Bundled(),
		Gemini:     client,
		Generator:  practice.NewGeminiGenerator(client, secure),
		Tips:       tips.NewCache(secure, client, o.now),
	}, nil
}

// PracticeDeps returns the collaborators of a practice session.
func (a *App) PracticeDeps() practice.Deps {
	return practice.Deps{
		Profiles:  a.Users,
		History:   a.Recent,
		Stats:     a.Stats,
		Topics:    a.Curriculum,
		Generator: a.Generator,
	}
}

func (a *App) NewSession(qtype practice.QuestionType) (*practice.Session, error) {
	return practice.NewSession(qtype, a.PracticeDeps())
}

func (a *App) Close() error {
	if a == nil {
		return nil
	}
	return db.Close(a.DB)
}
