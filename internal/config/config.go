package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort      = 2333
	defaultEnv       = "development"
	defaultDBHost    = "127.0.0.1"
	defaultDBPort    = 3306
	defaultDBUser    = "root"
	defaultDBName    = "studiolens"
	defaultDBCharset = "utf8mb4"
	defaultRedisURL  = "redis://localhost:6379/0"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int             `yaml:"port"`
	Env            string          `yaml:"env"` // "development" | "production"
	DSN            string          `yaml:"dsn"` // MySQL DSN, overrides database section
	Database       DatabaseOptions `yaml:"database"`
	RedisURL       string          `yaml:"redis_url"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	JWTSecret      string          `yaml:"jwt_secret"`
	Timezone       string          `yaml:"timezone"`
	Wechat         WechatOptions   `yaml:"wechat"`
	Payment        PaymentOptions  `yaml:"payment"`
	S3             S3Options       `yaml:"s3"`
}

type DatabaseOptions struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
}

type WechatOptions struct {
	AppID              string `yaml:"appid"`
	AppSecret          string `yaml:"secret"`
	PaidTemplateID     string `yaml:"paid_template_id"`
	PhotosTemplateID   string `yaml:"photos_template_id"`
	SubscribeMessageOn bool   `yaml:"subscribe_message_on"`
}

type PaymentOptions struct {
	// NotifyToken authenticates the gateway callback; empty disables the check.
	NotifyToken string `yaml:"notify_token"`
}

type S3Options struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	BaseURL         string `yaml:"base_url"`
	Prefix          string `yaml:"prefix"`
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development") || c.Env == ""
}

// DSNValue returns the configured DSN, assembling one from the database
// section when no explicit DSN is set.
func (c *AppConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	db := c.Database
	host := strings.TrimSpace(db.Host)
	if host == "" {
		host = defaultDBHost
	}
	port := db.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := strings.TrimSpace(db.User)
	if user == "" {
		user = defaultDBUser
	}
	name := strings.TrimSpace(db.Name)
	if name == "" {
		name = defaultDBName
	}
	charset := strings.TrimSpace(db.Charset)
	if charset == "" {
		charset = defaultDBCharset
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		user, db.Password, host, port, name, charset)
}

// Load reads the YAML config file and applies defaults. A missing file is not
// an error in development; defaults apply.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultConfigPath:
		// fall through to defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = defaultEnv
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		cfg.RedisURL = defaultRedisURL
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = "Asia/Shanghai"
	}

	return cfg, nil
}
