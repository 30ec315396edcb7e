package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Proxy     ProxyConfig
	S3        S3Config
	HTTPAddr  string
	LogLevel  string
	LogFile   string
	// PlatformsDir holds one YAML override file per platform.
	PlatformsDir string
	Platforms    []PlatformOverride
}

type DatabaseConfig struct {
	// Path is the SQLite file used when URL is empty.
	Path string
	// URL selects Postgres when set.
	URL string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
	Batch    int
}

type ProxyConfig struct {
	URL string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether photo archiving to S3 is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// PlatformOverride extends a built-in platform, for instance with a
// regional mirror domain or a new CDN host.
type PlatformOverride struct {
	ID           string   `yaml:"id"`
	ExtraDomains []string `yaml:"extra_domains"`
	ImageDomains []string `yaml:"image_domains"`
	ImageReferer string   `yaml:"image_referer"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "hogar.db"),
			URL:  os.Getenv("DATABASE_URL"),
		},
		Scheduler: SchedulerConfig{
			Interval: getEnvDuration("MEDIA_INTERVAL", 2*time.Minute),
			Cron:     os.Getenv("MEDIA_CRON"),
			Batch:    getEnvInt("MEDIA_BATCH", 20),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("HTTP_PROXY_URL"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "eu-west-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", "hogar.log"),
		PlatformsDir: getEnv("PLATFORMS_DIR", "config/platforms"),
	}

	overrides, err := LoadPlatformOverrides(cfg.PlatformsDir)
	if err != nil {
		return nil, err
	}
	cfg.Platforms = overrides

	return cfg, nil
}

// LoadPlatformOverrides reads every *.yaml file in dir, sorted by file
// name. A missing directory yields no overrides.
func LoadPlatformOverrides(dir string) ([]PlatformOverride, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []PlatformOverride
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		var o PlatformOverride
		if err := yaml.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if o.ID == "" {
			return nil, fmt.Errorf("parse %s: missing id", path)
		}
		out = append(out, o)
	}

	return out, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// Extender is the part of the platform registry overrides are applied to.
type Extender interface {
	Extend(id string, domains, imageDomains []string, referer string) error
}

// ApplyPlatformOverrides extends registered platforms. It must run before
// the registry is shared with request handlers.
func ApplyPlatformOverrides(r Extender, overrides []PlatformOverride) error {
	for _, o := range overrides {
		if err := r.Extend(o.ID, o.ExtraDomains, o.ImageDomains, o.ImageReferer); err != nil {
			return fmt.Errorf("platform override %s: %w", o.ID, err)
		}
	}
	return nil
}
