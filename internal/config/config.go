package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ModePage = "page"
	ModeAPI  = "api"
)

type Config struct {
	Mode    string
	Catalog CatalogConfig
	Fetcher FetcherConfig
	API     APIConfig
	Output  OutputConfig
	Logging LoggingConfig
}

type CatalogConfig struct {
	Path     string
	Format   string // auto, csv, xlsx, json, txt
	Encoding string // declared catalog encoding, tried first
}

type FetcherConfig struct {
	BaseURL          string
	Timeout          time.Duration
	MaxAttempts      int
	DelayMin         time.Duration // pre-request pacing
	DelayMax         time.Duration
	RetryDelayMin    time.Duration // between failed attempts
	RetryDelayMax    time.Duration
	ThrottleDelayMin time.Duration // after a 503
	ThrottleDelayMax time.Duration
	CourtesyEvery    int // extended pause cadence, in items
	CourtesyMin      time.Duration
	CourtesyMax      time.Duration
	UserAgents       []string
}

type APIConfig struct {
	AccessKey   string
	SecretKey   string
	PartnerTag  string
	Host        string
	Region      string
	Marketplace string
	Timeout     time.Duration
	BatchSize   int
	BatchDelay  time.Duration
}

type OutputConfig struct {
	FeedPath string
	HTMLPath string // empty disables the HTML patch step
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Mode: getEnvOrDefault("PRICE_MODE", ModePage),
		Catalog: CatalogConfig{
			Path:     getEnvOrDefault("CATALOG_PATH", "data/products.csv"),
			Format:   getEnvOrDefault("CATALOG_FORMAT", "auto"),
			Encoding: getEnvOrDefault("CATALOG_ENCODING", ""),
		},
		Fetcher: FetcherConfig{
			BaseURL:          getEnvOrDefault("PAGE_BASE_URL", "https://www.amazon.com"),
			Timeout:          getDurationOrDefault("PAGE_HTTP_TIMEOUT", 15*time.Second),
			MaxAttempts:      getIntOrDefault("PAGE_MAX_ATTEMPTS", 3),
			DelayMin:         getDurationOrDefault("PAGE_DELAY_MIN", 3*time.Second),
			DelayMax:         getDurationOrDefault("PAGE_DELAY_MAX", 8*time.Second),
			RetryDelayMin:    getDurationOrDefault("PAGE_RETRY_DELAY_MIN", 5*time.Second),
			RetryDelayMax:    getDurationOrDefault("PAGE_RETRY_DELAY_MAX", 15*time.Second),
			ThrottleDelayMin: getDurationOrDefault("PAGE_THROTTLE_DELAY_MIN", 10*time.Second),
			ThrottleDelayMax: getDurationOrDefault("PAGE_THROTTLE_DELAY_MAX", 20*time.Second),
			CourtesyEvery:    getIntOrDefault("PAGE_COURTESY_EVERY", 5),
			CourtesyMin:      getDurationOrDefault("PAGE_COURTESY_MIN", 15*time.Second),
			CourtesyMax:      getDurationOrDefault("PAGE_COURTESY_MAX", 30*time.Second),
			UserAgents:       getStringSliceOrDefault("PAGE_USER_AGENTS", defaultUserAgents()),
		},
		API: APIConfig{
			AccessKey:   os.Getenv("AMAZON_ACCESS_KEY"),
			SecretKey:   os.Getenv("AMAZON_SECRET_KEY"),
			PartnerTag:  os.Getenv("AMAZON_ASSOCIATE_TAG"),
			Host:        getEnvOrDefault("AMAZON_API_HOST", "webservices.amazon.com"),
			Region:      getEnvOrDefault("AMAZON_API_REGION", "us-east-1"),
			Marketplace: getEnvOrDefault("AMAZON_MARKETPLACE", "www.amazon.com"),
			Timeout:     getDurationOrDefault("API_HTTP_TIMEOUT", 15*time.Second),
			BatchSize:   getIntOrDefault("API_BATCH_SIZE", 10),
			BatchDelay:  getDurationOrDefault("API_BATCH_DELAY", 500*time.Millisecond),
		},
		Output: OutputConfig{
			FeedPath: getEnvOrDefault("OUTPUT_FEED_PATH", "data/products-data.json"),
			HTMLPath: getEnvOrDefault("OUTPUT_HTML_PATH", "public/index.html"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Mode != ModePage && c.Mode != ModeAPI {
		return fmt.Errorf("PRICE_MODE must be %q or %q", ModePage, ModeAPI)
	}

	if c.Catalog.Path == "" {
		return fmt.Errorf("CATALOG_PATH cannot be empty")
	}

	if c.Mode == ModeAPI {
		if c.API.AccessKey == "" || c.API.SecretKey == "" || c.API.PartnerTag == "" {
			return fmt.Errorf("API mode requires AMAZON_ACCESS_KEY, AMAZON_SECRET_KEY and AMAZON_ASSOCIATE_TAG")
		}
		if c.API.BatchSize < 1 || c.API.BatchSize > 10 {
			return fmt.Errorf("API_BATCH_SIZE must be between 1 and 10")
		}
	}

	if c.Fetcher.MaxAttempts < 1 {
		return fmt.Errorf("PAGE_MAX_ATTEMPTS must be at least 1")
	}

	if c.Fetcher.DelayMin > c.Fetcher.DelayMax {
		return fmt.Errorf("PAGE_DELAY_MIN cannot be greater than PAGE_DELAY_MAX")
	}

	if c.Fetcher.CourtesyEvery < 1 {
		return fmt.Errorf("PAGE_COURTESY_EVERY must be at least 1")
	}

	if len(c.Fetcher.UserAgents) == 0 {
		return fmt.Errorf("PAGE_USER_AGENTS cannot be empty")
	}

	if c.Output.FeedPath == "" {
		return fmt.Errorf("OUTPUT_FEED_PATH cannot be empty")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}
