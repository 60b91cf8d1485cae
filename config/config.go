package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Minio    MinioConfig    `yaml:"minio"`
	Redis    RedisConfig    `yaml:"redis"`
	Render   RenderConfig   `yaml:"render"`
	Export   ExportConfig   `yaml:"export"`
	Reniec   ReniecConfig   `yaml:"reniec"`
	Signing  SigningConfig  `yaml:"signing"`
	Company  CompanyConfig  `yaml:"company"`
}

type ServerConfig struct {
	Port          int `yaml:"port"`
	RateLimit     int `yaml:"rate_limit"` // requests per minute per client
	WriteTimeoutS int `yaml:"write_timeout_s"`
	ShutdownWaitS int `yaml:"shutdown_wait_s"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // postgres, sqlite
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type MinioConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// RenderConfig tunes page capture. Fidelities are tried in order.
type RenderConfig struct {
	Fidelities     []int   `yaml:"fidelities"`
	ImageTimeoutMS int     `yaml:"image_timeout_ms"`
	BlankThreshold float64 `yaml:"blank_threshold"`
	SampleRadius   int     `yaml:"sample_radius"`
	SampleGrid     int     `yaml:"sample_grid"`
	ScanStride     int     `yaml:"scan_stride"` // negative falls back to sample points
	MinInk         float64 `yaml:"min_ink"`
	MaxPixels      int     `yaml:"max_pixels"`
	QueueSize      int     `yaml:"queue_size"`
}

type ExportConfig struct {
	MaxJobs  int    `yaml:"max_jobs"`
	Timezone string `yaml:"timezone"`
	Schedule string `yaml:"schedule"` // cron spec for the nightly day export, empty disables it
}

type ReniecConfig struct {
	BaseURL     string `yaml:"base_url"`
	PrimaryURL  string `yaml:"primary_url"`
	FallbackURL string `yaml:"fallback_url"`
	Token       string `yaml:"token"`
	TimeoutMS   int    `yaml:"timeout_ms"`
}

type SigningConfig struct {
	Secret        string `yaml:"secret"`
	LinkTTLHours  int    `yaml:"link_ttl_hours"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// CompanyConfig is the employer printed on every document.
type CompanyConfig struct {
	Name           string `yaml:"name"`
	RUC            string `yaml:"ruc"`
	Address        string `yaml:"address"`
	Representative string `yaml:"representative"`
	City           string `yaml:"city"`
}

var GlobalConfig *Config

// Load reads the YAML file at path. Variables from a .env file in the working
// directory are loaded first and ${VAR} references in the YAML are expanded.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	GlobalConfig = &cfg
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 100
	}
	if c.Server.WriteTimeoutS == 0 {
		c.Server.WriteTimeoutS = 300
	}
	if c.Server.ShutdownWaitS == 0 {
		c.Server.ShutdownWaitS = 5
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "aqualima.db"
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "firmas"
	}
	if len(c.Render.Fidelities) == 0 {
		c.Render.Fidelities = []int{5, 4, 3}
	}
	if c.Render.ImageTimeoutMS == 0 {
		c.Render.ImageTimeoutMS = 5000
	}
	if c.Render.BlankThreshold == 0 {
		c.Render.BlankThreshold = 250
	}
	if c.Render.ScanStride == 0 {
		c.Render.ScanStride = 2
	}
	if c.Render.MinInk == 0 {
		c.Render.MinInk = 0.0005
	}
	if c.Render.MaxPixels == 0 {
		c.Render.MaxPixels = 60_000_000
	}
	if c.Render.QueueSize == 0 {
		c.Render.QueueSize = 16
	}
	if c.Export.MaxJobs == 0 {
		c.Export.MaxJobs = 20
	}
	if c.Export.Timezone == "" {
		c.Export.Timezone = "America/Lima"
	}
	if c.Reniec.TimeoutMS == 0 {
		c.Reniec.TimeoutMS = 8000
	}
	if c.Signing.LinkTTLHours == 0 {
		c.Signing.LinkTTLHours = 24
	}
	if c.Company.City == "" {
		c.Company.City = "Lima"
	}
}

// Location returns the time zone used to compute calendar days.
func (c *ExportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *RenderConfig) ImageTimeout() time.Duration {
	return time.Duration(c.ImageTimeoutMS) * time.Millisecond
}

func (c *ReniecConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c *SigningConfig) LinkTTL() time.Duration {
	return time.Duration(c.LinkTTLHours) * time.Hour
}
