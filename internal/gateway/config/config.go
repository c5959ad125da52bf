package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	// PublicBaseURL is how the outside world (incl. the sync service's
	// webhook sender) reaches this gateway.
	PublicBaseURL string
	Sync          SyncConfig
	Media         MediaConfig
}

type SyncConfig struct {
	APIKey        string
	BaseURL       string
	WebhookSecret string
}

type MediaConfig struct {
	Enabled       bool
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	apiKey := strings.TrimSpace(os.Getenv("SYNC_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("SYNC_API_KEY environment variable not set")
	}

	cfg := &Config{
		Port:          *port,
		Env:           env,
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/"),
		Sync: SyncConfig{
			APIKey:        apiKey,
			BaseURL:       strings.TrimSpace(os.Getenv("SYNC_BASE_URL")),
			WebhookSecret: strings.TrimSpace(os.Getenv("SYNC_WEBHOOK_SECRET")),
		},
		Media: loadMediaConfig(env),
	}
	if strings.EqualFold(env, "local") {
		local := localConfig()
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = local.DatabaseURL
		}
		if !cfg.Media.CanUseS3() {
			cfg.Media = local.Media
		}
	}
	return cfg, nil
}

// WebhookURL is the callback address advertised to the sync API on create.
// Empty when the gateway has no public address or no webhook secret.
func (c *Config) WebhookURL() string {
	if c == nil || c.PublicBaseURL == "" || c.Sync.WebhookSecret == "" {
		return ""
	}
	return c.PublicBaseURL + "/webhooks/sync"
}

func loadMediaConfig(env string) MediaConfig {
	endpoint := resolveMediaEndpoint(env)
	return MediaConfig{
		Enabled:       strings.EqualFold(strings.TrimSpace(env), "local") || endpoint != "",
		Endpoint:      endpoint,
		Region:        firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_REGION")), "us-east-1"),
		AccessKey:     firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey:     firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:        firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_BUCKET")), "lipsync-uploads"),
		UseSSL:        resolveMediaUseSSL(env),
		PublicBaseURL: strings.TrimSpace(os.Getenv("MEDIA_PUBLIC_BASE_URL")),
	}
}

// CanUseS3 reports whether the config is complete enough for the S3 backend.
func (m MediaConfig) CanUseS3() bool {
	return strings.TrimSpace(m.Endpoint) != "" &&
		strings.TrimSpace(m.AccessKey) != "" &&
		strings.TrimSpace(m.SecretKey) != "" &&
		strings.TrimSpace(m.Bucket) != ""
}

func resolveMediaEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("MEDIA_S3_ENDPOINT"))
}

func resolveMediaUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("MEDIA_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
