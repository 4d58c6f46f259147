package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"telegram-support-bot/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token       string        `yaml:"token"`
	Username    string        `yaml:"username"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	AdminIDs    []int64       `yaml:"admin_ids"`
}

// CategoriesConfig maps every category to its staff group chat. Chat ids are
// deploy-time configuration, not runtime state.
type CategoriesConfig struct {
	YouthPolicy   int64 `yaml:"youth_policy"`
	Psychologist  int64 `yaml:"psychologist_support"`
	CivicEd       int64 `yaml:"civic_education"`
	LegalSupport  int64 `yaml:"legal_support"`
	CommunityChat int64 `yaml:"community_chat"` // living library group
}

// StaffChat returns the staff group chat id serving category c.
func (c *CategoriesConfig) StaffChat(cat model.Category) (int64, bool) {
	switch cat {
	case model.CategoryYouthPolicy:
		return c.YouthPolicy, c.YouthPolicy != 0
	case model.CategoryPsychologist:
		return c.Psychologist, c.Psychologist != 0
	case model.CategoryCivicEducation:
		return c.CivicEd, c.CivicEd != 0
	case model.CategoryLegalSupport:
		return c.LegalSupport, c.LegalSupport != 0
	}
	return 0, false
}

/// CategoryOf is the inverse lookup: which category a staff chat belongs to.
func (c *CategoriesConfig) CategoryOf(chatID int64) (model.Category, bool) {
	switch chatID {
	case 0:
		return "", false
	case c.YouthPolicy:
		return model.CategoryYouthPolicy, true
	case c.Psychologist:
		return model.CategoryPsychologist, true
	case c.CivicEd:
		return model.CategoryCivicEducation, true
	case c.LegalSupport:
		return model.CategoryLegalSupport, true
	}
	return "", false
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// RoutingConfig tunes the inbound pipeline.
type RoutingConfig struct {
	// AlbumLatency is the debounce window the album accumulator waits for
	// the rest of a media group after its first message.
	AlbumLatency time.Duration `yaml:"album_latency"`
	// ThrottleWindow is the per-user fixed window: at most one inbound
	// message per user is processed per window.
	ThrottleWindow time.Duration `yaml:"throttle_window"`
}

type BroadcastConfig struct {
	// RatePerSec caps outbound broadcast sends (cooperative pacing against
	// Telegram's own limits, not a correctness mechanism).
	RatePerSec    int           `yaml:"rate_per_sec"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type AdminConfig struct {
	Port  int    `yaml:"port"`
	Token string `yaml:"token"` // bearer token for mutating endpoints
}

type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Categories CategoriesConfig `yaml:"categories"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Routing    RoutingConfig    `yaml:"routing"`
	Broadcast  BroadcastConfig  `yaml:"broadcast"`
	Admin      AdminConfig      `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.PollTimeout <= 0 {
		cfg.Bot.PollTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Routing.AlbumLatency <= 0 {
		cfg.Routing.AlbumLatency = 50 * time.Millisecond
	}
	if cfg.Routing.ThrottleWindow <= 0 {
		cfg.Routing.ThrottleWindow = 800 * time.Millisecond
	}
	if cfg.Broadcast.RatePerSec <= 0 {
		cfg.Broadcast.RatePerSec = 25
	}
	if cfg.Broadcast.SweepInterval <= 0 {
		cfg.Broadcast.SweepInterval = 5 * time.Minute
	}

	// Minimal validation. Dev mode runs against the logging gateway, so a
	// real token is only required for production.
	if cfg.Bot.Token == "" && !dev {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	for _, cat := range model.AllCategories() {
		if _, ok := cfg.Categories.StaffChat(cat); !ok {
			return nil, fmt.Errorf("categories.%s staff chat id is required", cat)
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
