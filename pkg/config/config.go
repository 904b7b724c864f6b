package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/smith3v/tg-pantry-reminder/pkg/logger"
)

var (
	ErrMissingToken        = errors.New("telegram token is not configured")
	ErrMissingAllowedUsers = errors.New("allowed users list is empty")
	ErrInvalidUserID       = errors.New("invalid user id")
)

// DefaultImportantProducts is used when no important products are configured.
var DefaultImportantProducts = []string{
	"toilet paper",
	"coffee",
	"cream",
	"trash bags",
	"sugar",
}

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Access   AccessConfig   `json:"access"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Schedule ScheduleConfig `json:"schedule"`
	Pantry   PantryConfig   `json:"pantry"`
}

type TelegramConfig struct {
	Token string `json:"token" env:"BOT_TOKEN"`
}

type AccessConfig struct {
	AllowedUsers UserIDs `json:"allowed_users" env:"ALLOWED_USERS"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	Path     string `json:"path" env:"DB_PATH" env-default:"products.db"`
	Host     string `json:"host" env:"DB_HOST"`
	User     string `json:"user" env:"DB_USER"`
	Password string `json:"password" env:"DB_PASSWORD"`
	DBName   string `json:"dbname" env:"DB_NAME"`
	Port     int    `json:"port" env:"DB_PORT" env-default:"5432"`
	SSLMode  string `json:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
}

type LoggingConfig struct {
	Level     string `json:"level" env:"LOG_LEVEL" env-default:"info"`
	File      string `json:"file" env:"LOG_FILE"`
	Format    string `json:"format" env:"LOG_FORMAT" env-default:"text"`
	GormLevel string `json:"gorm_level" env:"GORM_LOG_LEVEL" env-default:"warn"`
}

type ScheduleConfig struct {
	DailyCron          string `json:"daily_cron" env:"DAILY_CHECK_CRON" env-default:"0 18 * * *"`
	PollSeconds        int    `json:"poll_interval_seconds" env:"REMINDER_POLL_SECONDS" env-default:"30"`
	SendTimeoutSeconds int    `json:"send_timeout_seconds" env:"SEND_TIMEOUT_SECONDS" env-default:"10"`
	Timezone           string `json:"timezone" env:"TIMEZONE" env-default:"Local"`
}

type PantryConfig struct {
	ImportantProducts []string `json:"important_products" env:"IMPORTANT_PRODUCTS" env-separator:","`
}

// UserIDs decodes a comma-separated list of Telegram user IDs.
type UserIDs []int64

func (u *UserIDs) SetValue(value string) error {
	ids, err := ParseUserIDs(value)
	if err != nil {
		return err
	}
	*u = ids
	return nil
}

func ParseUserIDs(value string) (UserIDs, error) {
	var ids UserIDs
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidUserID, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var AppConfig Config

// LoadConfig reads an optional .env file, then the JSON config file when it
// exists, then environment overrides. The result is validated before it
// replaces AppConfig.
func LoadConfig(filename string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to load .env file", "error", err)
	}

	var cfg Config
	var err error
	if _, statErr := os.Stat(filename); statErr == nil {
		err = cleanenv.ReadConfig(filename, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		logger.Error("failed to read config", "file", filename, "error", err)
		return err
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		return err
	}

	AppConfig = cfg
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrMissingToken
	}
	if len(c.Access.AllowedUsers) == 0 {
		return ErrMissingAllowedUsers
	}
	for _, id := range c.Access.AllowedUsers {
		if id == 0 {
			return fmt.Errorf("%w: 0", ErrInvalidUserID)
		}
	}
	switch c.Database.DriverName() {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Schedule.PollSeconds <= 0 {
		return fmt.Errorf("reminder poll interval must be positive, got %d", c.Schedule.PollSeconds)
	}
	if c.Schedule.SendTimeoutSeconds <= 0 {
		return fmt.Errorf("send timeout must be positive, got %d", c.Schedule.SendTimeoutSeconds)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}
	return nil
}

// DriverName is the trimmed, lower-cased driver; empty means sqlite.
func (d DatabaseConfig) DriverName() string {
	name := strings.ToLower(strings.TrimSpace(d.Driver))
	if name == "" {
		return "sqlite"
	}
	return name
}

func (s ScheduleConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

func (s ScheduleConfig) PollInterval() time.Duration {
	return time.Duration(s.PollSeconds) * time.Second
}

func (s ScheduleConfig) SendTimeout() time.Duration {
	return time.Duration(s.SendTimeoutSeconds) * time.Second
}

// Important returns the configured important products or the defaults.
func (p PantryConfig) Important() []string {
	if len(p.ImportantProducts) == 0 {
		return append([]string(nil), DefaultImportantProducts...)
	}
	return append([]string(nil), p.ImportantProducts...)
}
