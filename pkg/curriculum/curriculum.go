// Package curriculum resolves a proficiency level such as "A2.1" to the
// topics used to seed question generation.
package curriculum

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/smith3v/sprachninja/pkg/logger"
	"gopkg.in/yaml.v3"
)

//go:embed curriculum.yaml
var bundledCurriculum []byte

type Curriculum struct {
	Levels []Level `yaml:"levels"`
}

type Level struct {
	Level     string     `yaml:"level"`
	SubLevels []SubLevel `yaml:"sub_levels"`
}

type SubLevel struct {
	SubLevel string   `yaml:"sub_level"`
	Topics   []string `yaml:"topics"`
}

// Catalog parses its source once, on first use. A source that cannot be read
// or parsed behaves as an empty curriculum.
type Catalog struct {
	source func() ([]byte, error)

	once       sync.Once
	curriculum Curriculum
	err        error
}

func NewCatalog(source func() ([]byte, error)) *Catalog {
	return &Catalog{source: source}
}

// Bundled returns a catalog over the curriculum compiled into the binary.
func Bundled() *Catalog {
	return NewCatalog(func() ([]byte, error) {
		return bundledCurriculum, nil
	})
}

func (c *Catalog) load() {
	c.once.Do(func() {
		data, err := c.source()
		if err != nil {
			c.err = err
			logger.Error("failed to read curriculum", "error", err)
			return
		}
		var parsed Curriculum
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			c.err = err
			logger.Error("failed to parse curriculum", "error", err)
			return
		}
		c.curriculum = parsed
	})
}

// Err reports why the curriculum could not be loaded, if it could not.
func (c *Catalog) Err() error {
	c.load()
	return c.err
}

// TopicsFor returns the topics of level. The major group is the first two
// characters of level; the sub-level must match level exactly, ignoring case.
// Any miss yields an empty slice.
func (c *Catalog) TopicsFor(level string) []string {
	c.load()
	level = strings.TrimSpace(level)
	if len(level) < 2 {
		return []string{}
	}
	major := level[:2]
	for _, group := range c.curriculum.Levels {
		if !strings.EqualFold(group.Level, major) {
			continue
		}
		for _, sub := range group.SubLevels {
			if strings.EqualFold(sub.SubLevel, level) {
				topics := make([]string, len(sub.Topics))
				copy(topics, sub.Topics)
				return topics
			}
		}
		return []string{}
	}
	return []string{}
}

// SubLevels lists every sub-level in curriculum order.
func (c *Catalog) SubLevels() []string {
	c.load()
	var levels []string
	for _, group := range c.curriculum.Levels {
		for _, sub := range group.SubLevels {
			levels = append(levels, sub.SubLevel)
		}
	}
	return levels
}

// HasLevel reports whether level names a known sub-level.
func (c *Catalog) HasLevel(level string) bool {
	return len(c.TopicsFor(level)) > 0
}
