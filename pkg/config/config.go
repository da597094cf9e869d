package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/smith3v/sprachninja/pkg/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultSQLitePath     = "sprachninja.db"
	DefaultGeminiBaseURL  = "https://generativelanguage.googleapis.com"
	DefaultGeminiTimeout  = 60
	DefaultSettingsFile   = "settings.enc"
	DefaultSettingsKey    = "settings.key"
	DefaultPostgresPort   = 5432
	DefaultPostgresSSLMod = "disable"
)

type Config struct {
	Database DatabaseConfig `json:"database"`
	Telegram TelegramConfig `json:"telegram"`
	Gemini   GeminiConfig   `json:"gemini"`
	Secure   SecureConfig   `json:"secure"`
	Logging  LoggingConfig  `json:"logging"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	Path     string `json:"path"`
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
	SSLMode  string `json:"sslmode"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// OwnerID restricts the bot to a single Telegram user when non-zero.
	OwnerID int64 `json:"owner_id"`
}

type GeminiConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type SecureConfig struct {
	SettingsFile string `json:"settings_file"`
	KeyFile      string `json:"key_file"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	GormLevel string `json:"gorm_level"`
}

var AppConfig = Default()

// Default returns a configuration usable without any file: a local sqlite
// store and the public Gemini endpoint.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func LoadConfig(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		logger.Error("failed to open config file", "error", err)
		return err
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		logger.Error("failed to decode config file", "error", err)
		return err
	}
	cfg.applyDefaults()

	AppConfig = cfg
	return nil
}

func (c *Config) applyDefaults() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = DefaultSQLitePath
	}
	if c.Database.Driver == DriverPostgres {
		if c.Database.Port == 0 {
			c.Database.Port = DefaultPostgresPort
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = DefaultPostgresSSLMod
		}
	}
	if strings.TrimSpace(c.Gemini.BaseURL) == "" {
		c.Gemini.BaseURL = DefaultGeminiBaseURL
	}
	c.Gemini.BaseURL = strings.TrimRight(c.Gemini.BaseURL, "/")
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = DefaultGeminiTimeout
	}
	if strings.TrimSpace(c.Secure.SettingsFile) == "" {
		c.Secure.SettingsFile = DefaultSettingsFile
	}
	if strings.TrimSpace(c.Secure.KeyFile) == "" {
		c.Secure.KeyFile = DefaultSettingsKey
	}
}
