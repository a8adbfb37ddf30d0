package profile

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the scoring server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string

	// Cache backend configuration
	RedisAddr     string // KCT_CACHE_REDIS_ADDR (default: localhost:6379)
	RedisPassword string // KCT_CACHE_REDIS_PASSWORD
	RedisDB       int    // KCT_CACHE_REDIS_DB (default: 0)
	RedisPoolSize int    // KCT_CACHE_REDIS_POOL_SIZE (default: 10)
	CachePrefix   string // KCT_CACHE_PREFIX (default: "kct")

	// CompressionThreshold is the serialized size in bytes above which
	// cache payloads are compressed.
	CompressionThreshold int // KCT_CACHE_COMPRESSION_THRESHOLD (default: 10240)

	// Advisory collaborator configuration
	AdvisoryEnabled bool          // KCT_ADVISORY_ENABLED (default: false)
	AdvisoryBaseURL string        // KCT_ADVISORY_BASE_URL
	AdvisoryAPIKey  string        // KCT_ADVISORY_API_KEY
	AdvisoryTimeout time.Duration // KCT_ADVISORY_TIMEOUT_MS (default: 5s)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAdvisoryEnabled returns true if advisory calls are enabled and a base URL
// is configured.
func (p *Profile) IsAdvisoryEnabled() bool {
	return p.AdvisoryEnabled && p.AdvisoryBaseURL != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvOrDefault returns the environment variable parsed as an int, or the
// default value when unset or unparseable.
func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// FromEnv loads configuration from KCT_* environment variables.
func (p *Profile) FromEnv() {
	p.RedisAddr = getEnvOrDefault("KCT_CACHE_REDIS_ADDR", "localhost:6379")
	p.RedisPassword = os.Getenv("KCT_CACHE_REDIS_PASSWORD")
	p.RedisDB = getIntEnvOrDefault("KCT_CACHE_REDIS_DB", 0)
	p.RedisPoolSize = getIntEnvOrDefault("KCT_CACHE_REDIS_POOL_SIZE", 10)
	p.CachePrefix = getEnvOrDefault("KCT_CACHE_PREFIX", "kct")
	p.CompressionThreshold = getIntEnvOrDefault("KCT_CACHE_COMPRESSION_THRESHOLD", 10*1024)

	p.AdvisoryEnabled = os.Getenv("KCT_ADVISORY_ENABLED") == "true"
	p.AdvisoryBaseURL = os.Getenv("KCT_ADVISORY_BASE_URL")
	p.AdvisoryAPIKey = os.Getenv("KCT_ADVISORY_API_KEY")
	if timeout := getIntEnvOrDefault("KCT_ADVISORY_TIMEOUT_MS", 5000); timeout > 0 {
		p.AdvisoryTimeout = time.Duration(timeout) * time.Millisecond
	}
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Port < 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	if p.CompressionThreshold <= 0 {
		p.CompressionThreshold = 10 * 1024
	}

	if p.AdvisoryEnabled && p.AdvisoryBaseURL == "" {
		return errors.New("advisory is enabled but KCT_ADVISORY_BASE_URL is not set")
	}

	return nil
}

// ListenAddr returns the addr:port string the server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}
