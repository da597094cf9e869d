// Package tips serves one short German-learning tip per calendar day.
package tips

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/smith3v/sprachninja/pkg/logger"
	"github.com/smith3v/sprachninja/pkg/settings"
)

const (
	DateLayout  = "2006-01-02"
	LoadingText = "Loading tip..."
)

// Store persists the single cached tip.
type Store interface {
	Settings() settings.AppSettings
	DailyTip() (date, text string)
	SaveDailyTip(date, text string) error
}

// TextGenerator returns the model's text for prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, apiKey, prompt string) (string, error)
}

type Cache struct {
	store     Store
	generator TextGenerator
	now       func() time.Time
}

func NewCache(store Store, generator TextGenerator, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{store: store, generator: generator, now: now}
}

// IsLoading reports whether text is the loading placeholder rather than a
// tip or a failure message: it mentions "loading" as a word of its own, so
// tips about downloading or unloading do not count.
func IsLoading(text string) bool {
	if text == LoadingText {
		return true
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, word := range words {
		if word == "loading" {
			return true
		}
	}
	return false
}

// GetTip returns today's tip, asking the model only when no tip is cached
// under today's date. Failures come back as a readable message.
func (c *Cache) GetTip(ctx context.Context, level string) string {
	today := c.now().Format(DateLayout)
	if date, text := c.store.DailyTip(); date == today && text != "" {
		return text
	}

	creds := c.store.Settings()
	if !creds.HasAPIKey() {
		return "Could not fetch today's tip: the Gemini API key is not set."
	}

	tip, err := c.generator.GenerateText(ctx, creds.ModelName, creds.APIKey, buildTipPrompt(level))
	if err != nil {
		logger.Error("failed to fetch daily tip", "model", creds.ModelName, "error", err)
		return fmt.Sprintf("Could not fetch today's tip: %v", err)
	}
	tip = strings.TrimSpace(tip)
	if tip == "" {
		return "Could not fetch today's tip: the model returned an empty answer."
	}

	if err := c.store.SaveDailyTip(today, tip); err != nil {
		logger.Error("failed to cache daily tip", "date", today, "error", err)
	}
	return tip
}

func buildTipPrompt(level string) string {
	return fmt.Sprintf(`You are a friendly German teacher.
Write one short, practical tip (at most 2 sentences) about the German language, grammar or culture for a learner at the %s level.
Return only the tip as plain text, without a heading, quotes or markdown.`, level)
}
