// Package settings persists the Gemini credentials and the cached daily tip
// in a single encrypted file.
package settings

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/smith3v/sprachninja/pkg/observe"
	"golang.org/x/crypto/chacha20poly1305"
)

// DefaultModelName is used whenever no model has been chosen.
const DefaultModelName = "gemini-1.5-flash"

var (
	ErrInvalidKey     = errors.New("settings key must be 32 bytes")
	ErrCorruptedStore = errors.New("settings file cannot be decrypted")
)

var additionalData = []byte("sprachninja-settings-v1")

type AppSettings struct {
	APIKey    string
	ModelName string
}

// HasAPIKey reports whether a non-blank key is configured.
func (s AppSettings) HasAPIKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type blob struct {
	APIKey          string `json:"api_key"`
	ModelName       string `json:"model_name"`
	DailyTipDate    string `json:"daily_tip_date,omitempty"`
	DailyTipContent string `json:"daily_tip_content,omitempty"`
}

type Store struct {
	path string
	key  []byte

	mu      sync.Mutex
	data    blob
	subject *observe.Subject[AppSettings]
}

// Open loads the store at path, creating keyPath with a fresh random key on
// first use. A missing settings file yields the defaults.
func Open(path, keyPath string) (*Store, error) {
	key, err := loadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, key: key}
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	s.data = data
	s.subject = observe.NewSubjectWith(s.settingsLocked())
	return s, nil
}

func (s *Store) Settings() AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settingsLocked()
}

// Save trims the key and model, falling back to DefaultModelName for a blank
// model, and returns what was stored.
func (s *Store) Save(next AppSettings) (AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.data
	updated.APIKey = strings.TrimSpace(next.APIKey)
	updated.ModelName = strings.TrimSpace(next.ModelName)
	if err := s.write(updated); err != nil {
		return s.settingsLocked(), err
	}
	s.data = updated
	saved := s.settingsLocked()
	s.subject.Publish(saved)
	return saved, nil
}

// Observe streams the settings, starting with the current value.
func (s *Store) Observe() *observe.Subscription[AppSettings] {
	return s.subject.Subscribe()
}

// DailyTip returns the cached tip and the date it was stored under.
func (s *Store) DailyTip() (date, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DailyTipDate, s.data.DailyTipContent
}

// SaveDailyTip overwrites the cached tip.
func (s *Store) SaveDailyTip(date, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.data
	updated.DailyTipDate = date
	updated.DailyTipContent = text
	if err := s.write(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

func (s *Store) settingsLocked() AppSettings {
	model := s.data.ModelName
	if strings.TrimSpace(model) == "" {
		model = DefaultModelName
	}
	return AppSettings{APIKey: s.data.APIKey, ModelName: model}
}

func (s *Store) read() (blob, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return blob{}, nil
	}
	if err != nil {
		return blob{}, err
	}

	plain, err := open(s.key, raw)
	if err != nil {
		return blob{}, err
	}
	var data blob
	if err := json.Unmarshal(plain, &data); err != nil {
		return blob{}, fmt.Errorf("%w: %v", ErrCorruptedStore, err)
	}
	return data, nil
}

func (s *Store) write(data blob) error {
	plain, err := json.Marshal(data)
	if err != nil {
		return err
	}
	sealed, err := seal(s.key, plain)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, sealed, 0o600)
}

func seal(key, plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, additionalData), nil
}

func open(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCorruptedStore
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, ErrCorruptedStore
	}
	return plain, nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, ErrInvalidKey
		}
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write settings key: %w", err)
	}
	return key, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
