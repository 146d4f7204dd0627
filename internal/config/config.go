package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	S3        S3Config
	Extractor ExtractorConfig
	Filing    FilingConfig
	CORS      CORSConfig
	Upload    UploadConfig
	Batch     BatchConfig
	Email     EmailConfig
}

// EmailConfig holds rejection-notice delivery settings.
type EmailConfig struct {
	Provider      string `mapstructure:"provider"`
	Region        string `mapstructure:"region"`
	FromAddress   string `mapstructure:"from_address"`
	FromName      string `mapstructure:"from_name"`
	NotifyAddress string `mapstructure:"notify_address"`
}

// UploadConfig holds upload limits.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// BatchConfig holds batch extraction settings.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ExtractorProviderConfig holds settings for a single LLM extraction provider.
type ExtractorProviderConfig struct {
	Provider       string        `mapstructure:"provider"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	Endpoint       string        `mapstructure:"endpoint"`
	TimeoutSecs    int           `mapstructure:"timeout_secs"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// ExtractorConfig holds the ordered extraction providers.
type ExtractorConfig struct {
	Primary   ExtractorProviderConfig `mapstructure:"primary"`
	Secondary ExtractorProviderConfig `mapstructure:"secondary"`
	Tertiary  ExtractorProviderConfig `mapstructure:"tertiary"`
	// Deadline bounds one extraction request across all providers, retries
	// and backoff. It must be shorter than the server write timeout.
	Deadline time.Duration `mapstructure:"deadline"`
}

// Providers returns the configured providers in fallback order. The primary is
// always included; secondary and tertiary only when a provider name is set.
func (e *ExtractorConfig) Providers() []*ExtractorProviderConfig {
	out := []*ExtractorProviderConfig{&e.Primary}
	if e.Secondary.Provider != "" {
		out = append(out, &e.Secondary)
	}
	if e.Tertiary.Provider != "" {
		out = append(out, &e.Tertiary)
	}
	return out
}

// FilingConfig holds BorderConnect settings.
type FilingConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	CompanyKey  string `mapstructure:"company_key"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	AutoSend    bool   `mapstructure:"auto_send"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds settings for the submission archive bucket.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	ArchivePrefix string `mapstructure:"archive_prefix"`
}

// extractionHeadroom is left between the extraction deadline and the write
// timeout for validation and writing the response.
const extractionHeadroom = 10 * time.Second

var providerSlots = []string{"primary", "secondary", "tertiary"}

// Load reads configuration from environment variables with the BORDERDESK_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BORDERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "borderdesk")
	v.SetDefault("db.password", "borderdesk_secret")
	v.SetDefault("db.name", "borderdesk_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "borderdesk-submissions")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.archive_prefix", "submissions")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173")

	v.SetDefault("upload.max_file_size_mb", 20)
	v.SetDefault("batch.concurrency", 4)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@borderdesk.local")
	v.SetDefault("email.from_name", "BorderDesk")
	v.SetDefault("email.notify_address", "")

	// Filing defaults
	v.SetDefault("filing.base_url", "https://borderconnect.com")
	v.SetDefault("filing.api_key", "")
	v.SetDefault("filing.company_key", "")
	v.SetDefault("filing.timeout_secs", 15)
	v.SetDefault("filing.auto_send", false)

	// Extractor defaults: Groq-hosted Llama as primary, others opt-in.
	v.SetDefault("extractor.primary.provider", "groq")
	v.SetDefault("extractor.deadline", "240s")
	for _, slot := range providerSlots {
		prefix := "extractor." + slot + "."
		if slot != "primary" {
			v.SetDefault(prefix+"provider", "")
		}
		v.SetDefault(prefix+"api_key", "")
		v.SetDefault(prefix+"model", "")
		v.SetDefault(prefix+"endpoint", "")
		v.SetDefault(prefix+"timeout_secs", 30)
		v.SetDefault(prefix+"max_tokens", 3000)
		v.SetDefault(prefix+"temperature", 0.0)
		v.SetDefault(prefix+"max_retries", 3)
		v.SetDefault(prefix+"retry_base_delay", "1s")
	}

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":             "BORDERDESK_SERVER_PORT",
		"server.read_timeout":     "BORDERDESK_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "BORDERDESK_SERVER_WRITE_TIMEOUT",
		"server.environment":      "BORDERDESK_SERVER_ENVIRONMENT",
		"db.host":                 "BORDERDESK_DB_HOST",
		"db.port":                 "BORDERDESK_DB_PORT",
		"db.user":                 "BORDERDESK_DB_USER",
		"db.password":             "BORDERDESK_DB_PASSWORD",
		"db.name":                 "BORDERDESK_DB_NAME",
		"db.sslmode":              "BORDERDESK_DB_SSLMODE",
		"db.max_open":             "BORDERDESK_DB_MAX_OPEN",
		"db.max_idle":             "BORDERDESK_DB_MAX_IDLE",
		"s3.region":               "BORDERDESK_S3_REGION",
		"s3.bucket":               "BORDERDESK_S3_BUCKET",
		"s3.endpoint":             "BORDERDESK_S3_ENDPOINT",
		"s3.access_key":           "BORDERDESK_S3_ACCESS_KEY",
		"s3.secret_key":           "BORDERDESK_S3_SECRET_KEY",
		"s3.archive_prefix":       "BORDERDESK_S3_ARCHIVE_PREFIX",
		"cors.allowed_origins":    "BORDERDESK_CORS_ALLOWED_ORIGINS",
		"upload.max_file_size_mb": "BORDERDESK_UPLOAD_MAX_FILE_SIZE_MB",
		"batch.concurrency":       "BORDERDESK_BATCH_CONCURRENCY",
		"email.provider":          "BORDERDESK_EMAIL_PROVIDER",
		"email.region":            "BORDERDESK_EMAIL_REGION",
		"email.from_address":      "BORDERDESK_EMAIL_FROM_ADDRESS",
		"email.from_name":         "BORDERDESK_EMAIL_FROM_NAME",
		"email.notify_address":    "BORDERDESK_EMAIL_NOTIFY_ADDRESS",
		"filing.base_url":         "BORDERDESK_FILING_BASE_URL",
		"filing.api_key":          "BORDERDESK_FILING_API_KEY",
		"filing.company_key":      "BORDERDESK_FILING_COMPANY_KEY",
		"filing.timeout_secs":     "BORDERDESK_FILING_TIMEOUT_SECS",
		"filing.auto_send":        "BORDERDESK_FILING_AUTO_SEND",
		"extractor.deadline":      "BORDERDESK_EXTRACTOR_DEADLINE",
	}
	for _, slot := range providerSlots {
		for _, field := range []string{"provider", "api_key", "model", "endpoint", "timeout_secs", "max_tokens", "temperature", "max_retries", "retry_base_delay"} {
			key := "extractor." + slot + "." + field
			envBindings[key] = "BORDERDESK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if BORDERDESK_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("BORDERDESK_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		ArchivePrefix: v.GetString("s3.archive_prefix"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Upload = UploadConfig{MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb")}
	cfg.Batch = BatchConfig{Concurrency: v.GetInt("batch.concurrency")}

	cfg.Extractor = ExtractorConfig{
		Primary:   providerConfig(v, "primary"),
		Secondary: providerConfig(v, "secondary"),
		Tertiary:  providerConfig(v, "tertiary"),
		Deadline:  v.GetDuration("extractor.deadline"),
	}
	// The upload response must still be writable when extraction gives up.
	if wt := cfg.Server.WriteTimeout; wt > extractionHeadroom && (cfg.Extractor.Deadline <= 0 || cfg.Extractor.Deadline > wt-extractionHeadroom) {
		cfg.Extractor.Deadline = wt - extractionHeadroom
	}

	cfg.Filing = FilingConfig{
		BaseURL:     strings.TrimRight(v.GetString("filing.base_url"), "/"),
		APIKey:      v.GetString("filing.api_key"),
		CompanyKey:  v.GetString("filing.company_key"),
		TimeoutSecs: v.GetInt("filing.timeout_secs"),
		AutoSend:    v.GetBool("filing.auto_send"),
	}

	cfg.Email = EmailConfig{
		Provider:      v.GetString("email.provider"),
		Region:        v.GetString("email.region"),
		FromAddress:   v.GetString("email.from_address"),
		FromName:      v.GetString("email.from_name"),
		NotifyAddress: v.GetString("email.notify_address"),
	}

	return cfg, nil
}

func providerConfig(v *viper.Viper, slot string) ExtractorProviderConfig {
	prefix := "extractor." + slot + "."
	return ExtractorProviderConfig{
		Provider:       v.GetString(prefix + "provider"),
		APIKey:         v.GetString(prefix + "api_key"),
		Model:          v.GetString(prefix + "model"),
		Endpoint:       v.GetString(prefix + "endpoint"),
		TimeoutSecs:    v.GetInt(prefix + "timeout_secs"),
		MaxTokens:      v.GetInt(prefix + "max_tokens"),
		Temperature:    v.GetFloat64(prefix + "temperature"),
		MaxRetries:     v.GetInt(prefix + "max_retries"),
		RetryBaseDelay: v.GetDuration(prefix + "retry_base_delay"),
	}
}
