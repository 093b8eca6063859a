package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFileDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: "file::memory:"
retailers:
  - name: Jumbo
    feed:
      type: file
      path: ./jumbo.json
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.65, cfg.Matching.Threshold)
	assert.Equal(t, 10, cfg.Matching.MaxCandidates)
	assert.Equal(t, 3, cfg.Ingest.ConflictRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Ingest.BackoffBase)
	assert.Equal(t, "CLP", cfg.Ingest.DefaultCurrency)
	assert.Equal(t, 20, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 100, cfg.Pagination.MaxLimit)
	assert.Equal(t, 30, cfg.Pagination.HistoryLimit)
	require.Len(t, cfg.Retailers, 1)
	assert.Equal(t, "file", cfg.Retailers[0].Feed.Type)
}

func TestLoadFromFileEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_DSN", "file:override?mode=memory")
	t.Setenv("REDIS_ADDR", "redis:6379")
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: "file::memory:"
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file:override?mode=memory", cfg.Database.DSN)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Database:   DatabaseConfig{Driver: "sqlite"},
			Matching:   MatchingConfig{Threshold: 0.65, MaxCandidates: 10},
			Pagination: PaginationConfig{DefaultLimit: 20, MaxLimit: 100},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "threshold zero", mutate: func(c *Config) { c.Matching.Threshold = 0 }, wantErr: true},
		{name: "threshold above one", mutate: func(c *Config) { c.Matching.Threshold = 1.2 }, wantErr: true},
		{name: "default above max", mutate: func(c *Config) { c.Pagination.DefaultLimit = 200 }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Redis.Enabled = true }, wantErr: true},
		{name: "retailer without name", mutate: func(c *Config) {
			c.Retailers = []RetailerConfig{{Name: " "}}
		}, wantErr: true},
		{name: "http feed without url", mutate: func(c *Config) {
			c.Retailers = []RetailerConfig{{Name: "Lider", Feed: FeedConfig{Type: "http"}}}
		}, wantErr: true},
		{name: "unknown feed type", mutate: func(c *Config) {
			c.Retailers = []RetailerConfig{{Name: "Lider", Feed: FeedConfig{Type: "ftp"}}}
		}, wantErr: true},
		{name: "duplicate slug", mutate: func(c *Config) {
			c.Retailers = []RetailerConfig{{Name: "A", Slug: "x"}, {Name: "B", Slug: "x"}}
		}, wantErr: true},
		{name: "slug not url safe", mutate: func(c *Config) {
			c.Retailers = []RetailerConfig{{Name: "Santa Isabel", Slug: "Santa Isabel/Ñ"}}
		}, wantErr: true},
		{name: "names derive same slug", mutate: func(c *Config) {
			c.Retailers = []RetailerConfig{{Name: "Líder"}, {Name: "Lider"}}
		}, wantErr: true},
		{name: "derived slug collides with explicit", mutate: func(c *Config) {
			c.Retailers = []RetailerConfig{{Name: "Jumbo Express", Slug: "santa-isabel"}, {Name: "Santa Isabel"}}
		}, wantErr: true},
		{name: "name without slug characters", mutate: func(c *Config) {
			c.Retailers = []RetailerConfig{{Name: "¡¡!!"}}
		}, wantErr: true},
		{name: "distinct slugs", mutate: func(c *Config) {
			c.Retailers = []RetailerConfig{{Name: "Líder"}, {Name: "Jumbo", Slug: "jumbo-cl"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
