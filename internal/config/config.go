package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"stirka/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Google     GoogleConfig     `yaml:"google"`
	API        APIConfig        `yaml:"api"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Machines   []string         `yaml:"machines"`
	Admins     []AdminSeed      `yaml:"admins"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type GoogleConfig struct {
	ClientID      string `yaml:"client_id"`
	AllowedDomain string `yaml:"allowed_domain"`
}

type APIConfig struct {
	Port              int                `yaml:"port"`
	SessionTTLSeconds int                `yaml:"session_ttl_seconds"`
	RateLimit         APIRateLimitConfig `yaml:"rate_limit"`
}

// SessionTTL возвращает время жизни сессии как Duration.
func (c APIConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// AdminSeed учетная запись администратора, создаваемая при старте.
type AdminSeed struct {
	AdminID  string `yaml:"admin_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func Load(configPath string) (*Config, error) {
	// .env не обязателен, но если есть — подхватываем
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.SMTP.Enabled {
		if c.SMTP.Host == "" || c.SMTP.Port == 0 {
			return errors.New("smtp host and port are required when smtp is enabled")
		}
	}

	seen := make(map[string]bool)
	for _, a := range c.Admins {
		if a.AdminID == "" || a.Password == "" {
			return errors.New("admin seed requires admin_id and password")
		}
		if seen[a.AdminID] {
			return fmt.Errorf("duplicate admin seed: %s", a.AdminID)
		}
		seen[a.AdminID] = true
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "stirka"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.SessionTTLSeconds == 0 {
		c.API.SessionTTLSeconds = models.DefaultSessionTTL
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
