package curriculum

import (
	"errors"
	"reflect"
	"testing"

	"github.com/smith3v/sprachninja/pkg/logger"
)

func TestBundledTopicsForKnownLevel(t *testing.T) {
	catalog := Bundled()
	if err := catalog.Err(); err != nil {
		t.Fatalf("bundled curriculum failed to load: %v", err)
	}

	topics := catalog.TopicsFor("B1.2")
	if len(topics) == 0 {
		t.Fatalf("expected topics for B1.2")
	}
	if got := catalog.TopicsFor("b1.2"); !reflect.DeepEqual(got, topics) {
		t.Fatalf("expected case-insensitive match, got %v", got)
	}
}

func TestBundledSubLevelsInOrder(t *testing.T) {
	want := []string{"A1.1", "A1.2", "A2.1", "A2.2", "B1.1", "B1.2", "B1.3", "B2.1", "B2.2"}
	if got := Bundled().SubLevels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected sub-levels: %v", got)
	}
}

func TestTopicsForMissesReturnEmpty(t *testing.T) {
	catalog := Bundled()
	for _, level := range []string{"", "A", "C1.1", "A1.9", "A1", "  "} {
		topics := catalog.TopicsFor(level)
		if topics == nil || len(topics) != 0 {
			t.Fatalf("expected empty non-nil topics for %q, got %#v", level, topics)
		}
	}
}

func TestTopicsForMalformedSource(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)
	catalog := NewCatalog(func() ([]byte, error) {
		return []byte("levels: [unterminated"), nil
	})
	if topics := catalog.TopicsFor("A1.1"); len(topics) != 0 {
		t.Fatalf("expected empty topics for malformed source, got %v", topics)
	}
	if catalog.Err() == nil {
		t.Fatalf("expected parse error to be reported")
	}
}

func TestTopicsForUnreadableSource(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)
	catalog := NewCatalog(func() ([]byte, error) {
		return nil, errors.New("missing")
	})
	if topics := catalog.TopicsFor("A1.1"); len(topics) != 0 {
		t.Fatalf("expected empty topics, got %v", topics)
	}
}

func TestTopicsForReturnsCopy(t *testing.T) {
	catalog := NewCatalog(func() ([]byte, error) {
		return []byte("levels:\n  - level: A1\n    sub_levels:\n      - sub_level: A1.1\n        topics: [one, two]\n"), nil
	})
	topics := catalog.TopicsFor("A1.1")
	topics[0] = "changed"
	if got := catalog.TopicsFor("A1.1"); got[0] != "one" {
		t.Fatalf("expected catalog to be unaffected by caller mutation, got %v", got)
	}
}
