package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModePage, cfg.Mode)
	assert.Equal(t, "data/products.csv", cfg.Catalog.Path)
	assert.Equal(t, "auto", cfg.Catalog.Format)

	assert.Equal(t, "https://www.amazon.com", cfg.Fetcher.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Fetcher.Timeout)
	assert.Equal(t, 3, cfg.Fetcher.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Fetcher.DelayMin)
	assert.Equal(t, 8*time.Second, cfg.Fetcher.DelayMax)
	assert.Equal(t, 5, cfg.Fetcher.CourtesyEvery)
	assert.Len(t, cfg.Fetcher.UserAgents, 4)

	assert.Equal(t, "webservices.amazon.com", cfg.API.Host)
	assert.Equal(t, "us-east-1", cfg.API.Region)
	assert.Equal(t, 10, cfg.API.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.API.BatchDelay)

	assert.Equal(t, "data/products-data.json", cfg.Output.FeedPath)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PRICE_MODE", "api")
	t.Setenv("CATALOG_PATH", "/tmp/catalog.xlsx")
	t.Setenv("PAGE_MAX_ATTEMPTS", "5")
	t.Setenv("PAGE_DELAY_MIN", "100ms")
	t.Setenv("API_BATCH_SIZE", "4")
	t.Setenv("PAGE_USER_AGENTS", "agent-one,agent-two")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeAPI, cfg.Mode)
	assert.Equal(t, "/tmp/catalog.xlsx", cfg.Catalog.Path)
	assert.Equal(t, 5, cfg.Fetcher.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Fetcher.DelayMin)
	assert.Equal(t, 4, cfg.API.BatchSize)
	assert.Equal(t, []string{"agent-one", "agent-two"}, cfg.Fetcher.UserAgents)
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("PAGE_MAX_ATTEMPTS", "many")
	t.Setenv("PAGE_DELAY_MIN", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Fetcher.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Fetcher.DelayMin)
}

func validConfig() *Config {
	return &Config{
		Mode:    ModePage,
		Catalog: CatalogConfig{Path: "data/products.csv"},
		Fetcher: FetcherConfig{
			MaxAttempts:   3,
			DelayMin:      3 * time.Second,
			DelayMax:      8 * time.Second,
			CourtesyEvery: 5,
			UserAgents:    []string{"agent"},
		},
		API:    APIConfig{BatchSize: 10},
		Output: OutputConfig{FeedPath: "data/products-data.json"},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateAPIModeRequiresCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = ModeAPI

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMAZON_ACCESS_KEY")

	cfg.API.AccessKey = "AKID"
	cfg.API.SecretKey = "secret"
	cfg.API.PartnerTag = "tag-20"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "hybrid" }},
		{"empty catalog path", func(c *Config) { c.Catalog.Path = "" }},
		{"zero attempts", func(c *Config) { c.Fetcher.MaxAttempts = 0 }},
		{"inverted delay bounds", func(c *Config) { c.Fetcher.DelayMin = 10 * time.Second; c.Fetcher.DelayMax = time.Second }},
		{"zero courtesy cadence", func(c *Config) { c.Fetcher.CourtesyEvery = 0 }},
		{"no user agents", func(c *Config) { c.Fetcher.UserAgents = nil }},
		{"empty feed path", func(c *Config) { c.Output.FeedPath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateBatchSizeBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = ModeAPI
	cfg.API.AccessKey = "AKID"
	cfg.API.SecretKey = "secret"
	cfg.API.PartnerTag = "tag-20"

	for _, size := range []int{0, 11} {
		cfg.API.BatchSize = size
		assert.Error(t, cfg.Validate(), "size %d", size)
	}

	cfg.API.BatchSize = 10
	assert.NoError(t, cfg.Validate())
}
