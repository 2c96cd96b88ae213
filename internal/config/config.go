package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Sink     SinkConfig     `mapstructure:"sink"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Image    ImageConfig    `mapstructure:"image"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSNOverride     string        `mapstructure:"dsn"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.DSNOverride != "" {
		return c.DSNOverride
	}
	return c.Path
}

type SourceConfig struct {
	Type  string            `mapstructure:"type"` // s3, local
	S3    S3SourceConfig    `mapstructure:"s3"`
	Local LocalSourceConfig `mapstructure:"local"`
}

type S3SourceConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"` // target folder inside the bucket, optional
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"` // URL prefix used for photo references in the log
}

type LocalSourceConfig struct {
	Dir string `mapstructure:"dir"`
}

type VisionConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

type SinkConfig struct {
	Type   string           `mapstructure:"type"` // sheets, csv
	Sheets SheetsSinkConfig `mapstructure:"sheets"`
	CSV    CSVSinkConfig    `mapstructure:"csv"`
}

type SheetsSinkConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	Token         string `mapstructure:"token"`
	BaseURL       string `mapstructure:"base_url"`
	SheetName     string `mapstructure:"sheet_name"`
}

type CSVSinkConfig struct {
	Path string `mapstructure:"path"`
}

type SyncConfig struct {
	Monitor         bool `mapstructure:"monitor"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	LookbackHours   int  `mapstructure:"lookback_hours"`
	Limit           int  `mapstructure:"limit"`
}

type ImageConfig struct {
	MaxWidth    int `mapstructure:"max_width"`
	MaxHeight   int `mapstructure:"max_height"`
	JPEGQuality int `mapstructure:"jpeg_quality"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/foodsync.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("source.type", "s3")
	v.SetDefault("source.s3.endpoint", "s3.amazonaws.com")
	v.SetDefault("source.s3.use_ssl", true)
	v.SetDefault("source.s3.region", "us-east-1")
	v.SetDefault("source.local.dir", "./data/photos")
	v.SetDefault("vision.provider", "openai")
	v.SetDefault("vision.model", "gpt-4o-mini")
	v.SetDefault("vision.base_url", "https://api.openai.com/v1")
	v.SetDefault("sink.type", "sheets")
	v.SetDefault("sink.sheets.base_url", "https://sheets.googleapis.com/v4")
	v.SetDefault("sink.sheets.sheet_name", "Sheet1")
	v.SetDefault("sink.csv.path", "./data/foodlog.csv")
	v.SetDefault("sync.monitor", false)
	v.SetDefault("sync.interval_minutes", 5)
	v.SetDefault("sync.lookback_hours", 24)
	v.SetDefault("sync.limit", 10)
	v.SetDefault("image.max_width", 1920)
	v.SetDefault("image.max_height", 1080)
	v.SetDefault("image.jpeg_quality", 85)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("source.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("source.s3.access_key", "S3_ACCESS_KEY")
	v.BindEnv("source.s3.secret_key", "S3_SECRET_KEY")
	v.BindEnv("source.s3.bucket", "S3_BUCKET")
	v.BindEnv("source.s3.prefix", "PHOTO_FOLDER_PREFIX")
	v.BindEnv("vision.api_key", "OPENAI_API_KEY")
	v.BindEnv("vision.base_url", "OPENAI_BASE_URL")
	v.BindEnv("vision.model", "VISION_MODEL")
	v.BindEnv("sink.sheets.spreadsheet_id", "GOOGLE_SHEET_ID")
	v.BindEnv("sink.sheets.token", "GOOGLE_SHEETS_TOKEN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required secrets and settings are present.
// A failure here is fatal at startup; the pipeline cannot run without them.
func (c *Config) Validate() error {
	var errs []string

	if c.Vision.APIKey == "" {
		errs = append(errs, "vision.api_key (OPENAI_API_KEY) is required")
	}
	switch c.Sink.Type {
	case "sheets":
		if c.Sink.Sheets.SpreadsheetID == "" {
			errs = append(errs, "sink.sheets.spreadsheet_id (GOOGLE_SHEET_ID) is required")
		}
	case "csv":
		if c.Sink.CSV.Path == "" {
			errs = append(errs, "sink.csv.path is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown sink type %q", c.Sink.Type))
	}
	switch c.Source.Type {
	case "s3":
		if c.Source.S3.Bucket == "" {
			errs = append(errs, "source.s3.bucket (S3_BUCKET) is required")
		}
	case "local":
		if c.Source.Local.Dir == "" {
			errs = append(errs, "source.local.dir is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown source type %q", c.Source.Type))
	}
	if c.Sync.IntervalMinutes <= 0 {
		errs = append(errs, "sync.interval_minutes must be positive")
	}
	if c.Sync.Limit <= 0 {
		errs = append(errs, "sync.limit must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}
