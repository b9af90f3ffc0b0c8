package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	MinIO       MinIOConfig       `yaml:"minio"`
	NATS        NATSConfig        `yaml:"nats"`
	Library     LibraryConfig     `yaml:"library"`
	Jobs        JobsConfig        `yaml:"jobs"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Reconciler  ReconcilerConfig  `yaml:"reconciler"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type LibraryConfig struct {
	// SourceDir is the default root scanned when a scan request omits one.
	SourceDir     string `yaml:"source_dir"`
	BatchSize     int    `yaml:"batch_size"`
	ThumbnailSize int    `yaml:"thumbnail_size"`
}

type JobsConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	Retention     time.Duration `yaml:"retention"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// UnmarshalYAML accepts durations as strings ("500ms", "1h").
func (j *JobsConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxConcurrent int    `yaml:"max_concurrent"`
		TickInterval  string `yaml:"tick_interval"`
		Retention     string `yaml:"retention"`
		ShutdownGrace string `yaml:"shutdown_grace"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	j.MaxConcurrent = raw.MaxConcurrent

	var err error
	if j.TickInterval, err = parseDuration("tick_interval", raw.TickInterval); err != nil {
		return err
	}
	if j.Retention, err = parseDuration("retention", raw.Retention); err != nil {
		return err
	}
	if j.ShutdownGrace, err = parseDuration("shutdown_grace", raw.ShutdownGrace); err != nil {
		return err
	}
	return nil
}

type RecognitionConfig struct {
	BaseURL             string        `yaml:"base_url"`
	APIKey              string        `yaml:"api_key"`
	Timeout             time.Duration `yaml:"timeout"`
	MaxConcurrent       int           `yaml:"max_concurrent"`
	AutoAssignThreshold float64       `yaml:"auto_assign_threshold"`
	ReviewThreshold     float64       `yaml:"review_threshold"`
}

// UnmarshalYAML accepts the timeout as a duration string.
func (r *RecognitionConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseURL             string  `yaml:"base_url"`
		APIKey              string  `yaml:"api_key"`
		Timeout             string  `yaml:"timeout"`
		MaxConcurrent       int     `yaml:"max_concurrent"`
		AutoAssignThreshold float64 `yaml:"auto_assign_threshold"`
		ReviewThreshold     float64 `yaml:"review_threshold"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.BaseURL = raw.BaseURL
	r.APIKey = raw.APIKey
	r.MaxConcurrent = raw.MaxConcurrent
	r.AutoAssignThreshold = raw.AutoAssignThreshold
	r.ReviewThreshold = raw.ReviewThreshold

	var err error
	if r.Timeout, err = parseDuration("timeout", raw.Timeout); err != nil {
		return err
	}
	return nil
}

func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return d, nil
}

type ReconcilerConfig struct {
	AutoRepair     bool `yaml:"auto_repair"`
	DriftTolerance int  `yaml:"drift_tolerance"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	SetDefaults(cfg)

	return cfg, nil
}

// SetDefaults fills in zero-valued fields. Exposed so callers constructing a
// Config in code (the reconcile CLI, tests) get the same defaults as Load.
func SetDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Library.BatchSize == 0 {
		cfg.Library.BatchSize = 10
	}
	if cfg.Library.ThumbnailSize == 0 {
		cfg.Library.ThumbnailSize = 320
	}
	if cfg.Jobs.MaxConcurrent == 0 {
		cfg.Jobs.MaxConcurrent = 3
	}
	if cfg.Jobs.TickInterval == 0 {
		cfg.Jobs.TickInterval = 500 * time.Millisecond
	}
	if cfg.Jobs.Retention == 0 {
		cfg.Jobs.Retention = time.Hour
	}
	if cfg.Jobs.ShutdownGrace == 0 {
		cfg.Jobs.ShutdownGrace = 30 * time.Second
	}
	if cfg.Recognition.Timeout == 0 {
		cfg.Recognition.Timeout = 30 * time.Second
	}
	if cfg.Recognition.MaxConcurrent == 0 {
		cfg.Recognition.MaxConcurrent = 2
	}
	if cfg.Recognition.AutoAssignThreshold == 0 {
		cfg.Recognition.AutoAssignThreshold = 0.90
	}
	if cfg.Recognition.ReviewThreshold == 0 {
		cfg.Recognition.ReviewThreshold = 0.75
	}
	if cfg.Reconciler.DriftTolerance == 0 {
		cfg.Reconciler.DriftTolerance = 2
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PV_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PV_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("PV_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("PV_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("PV_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("PV_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("PV_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("PV_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("PV_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("PV_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("PV_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("PV_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("PV_SOURCE_DIR"); v != "" {
		cfg.Library.SourceDir = v
	}
	if v := os.Getenv("PV_RECOGNITION_URL"); v != "" {
		cfg.Recognition.BaseURL = v
	}
	if v := os.Getenv("PV_RECOGNITION_API_KEY"); v != "" {
		cfg.Recognition.APIKey = v
	}
	if v := os.Getenv("PV_JOBS_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Jobs.MaxConcurrent = n
		}
	}
}
