package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	GigaChatAuthKey   string
	GigaChatScope     string
	GigaChatTokenURL  string
	GigaChatBaseURL   string
	GigaChatModel     string
	GigaChatVerifySSL bool

	FBAPIKey    string
	FBAPISecret string
	FBBaseURL   string

	Model3DProvider string
	MeshyAPIKey     string
	MeshyBaseURL    string

	ImagesOutDir  string
	ModelsOutDir  string
	PublicBaseURL string

	ProviderCallTimeout time.Duration
	PollInterval        time.Duration
	PollMaxInterval     time.Duration
	PollBudget          time.Duration

	MeshyPollInterval  time.Duration
	MeshyPreviewBudget time.Duration
	MeshyRefineBudget  time.Duration

	DatabaseURL    string
	DefaultLocale  string
	AllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Provider credentials are validated by the client
// constructors so each binary only requires the providers it actually uses.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		GigaChatAuthKey:   os.Getenv("GIGACHAT_AUTH_KEY"),
		GigaChatScope:     getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
		GigaChatTokenURL:  getEnv("GIGACHAT_TOKEN_URL", "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"),
		GigaChatBaseURL:   getEnv("GIGACHAT_BASE_URL", "https://gigachat.devices.sberbank.ru/api/v1"),
		GigaChatModel:     getEnv("GIGACHAT_MODEL", "GigaChat-2-Max"),
		GigaChatVerifySSL: getEnvBool("GIGACHAT_VERIFY_SSL", true),

		FBAPIKey:    os.Getenv("FB_API_KEY"),
		FBAPISecret: os.Getenv("FB_API_SECRET"),
		FBBaseURL:   getEnv("FB_BASE_URL", "https://api-key.fusionbrain.ai"),

		Model3DProvider: getEnv("MODEL3D_PROVIDER", "gigachat"),
		MeshyAPIKey:     os.Getenv("MESHY_API_KEY"),
		MeshyBaseURL:    getEnv("MESHY_BASE_URL", "https://api.meshy.ai"),

		ImagesOutDir: getEnv("IMAGES_OUT_DIR", "./generated_images"),
		ModelsOutDir: getEnv("MODELS_OUT_DIR", "./generated_models"),

		ProviderCallTimeout: getEnvDuration("PROVIDER_CALL_TIMEOUT", 30*time.Second),
		// POLL_INTERVAL is floored at one second.
		PollInterval:    max(getEnvDuration("POLL_INTERVAL", 3*time.Second), time.Second),
		PollMaxInterval: getEnvDuration("POLL_MAX_INTERVAL", 10*time.Second),
		PollBudget:      getEnvDuration("POLL_BUDGET", 90*time.Second),

		MeshyPollInterval:  getEnvDuration("MESHY_POLL_INTERVAL", 2500*time.Millisecond),
		MeshyPreviewBudget: getEnvDuration("MESHY_PREVIEW_BUDGET", 10*time.Minute),
		MeshyRefineBudget:  getEnvDuration("MESHY_REFINE_BUDGET", 20*time.Minute),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "ru"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	cfg.PublicBaseURL = getEnv("PUBLIC_BASE_URL", "")
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port + "/files"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
