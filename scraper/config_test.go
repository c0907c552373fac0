package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDefaultUDNConfig verifies the built-in site configuration is usable
func TestDefaultUDNConfig(t *testing.T) {
	cfg := DefaultUDNConfig()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "https://udndata.com/ndapp/Index?cp=udn", cfg.SearchURL())
	assert.Equal(t, []string{"article", "div.article", "div.content", "div.story"},
		cfg.Article.ContentSelectors, "content chain should run most specific first")
}

// TestDefaultDelays verifies the fixed settle waits
func TestDefaultDelays(t *testing.T) {
	d := DefaultDelays()
	assert.Equal(t, 5*time.Second, d.Search)
	assert.Equal(t, 3*time.Second, d.Page)
	assert.Equal(t, 2*time.Second, d.Article)
	assert.Equal(t, 30*time.Second, d.Navigation)
}

// TestSiteConfig_Validate verifies configuration errors
func TestSiteConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SiteConfig)
		wantErr error
	}{
		{"missing base url", func(c *SiteConfig) { c.BaseURL = "" }, ErrMissingBaseURL},
		{"relative base url", func(c *SiteConfig) { c.BaseURL = "/udn" }, ErrInvalidBaseURL},
		{"ftp base url", func(c *SiteConfig) { c.BaseURL = "ftp://udndata.com" }, ErrInvalidBaseURL},
		{"missing selector", func(c *SiteConfig) { c.List.ResultSelector = "" }, ErrMissingSelector},
		{"no content chain", func(c *SiteConfig) { c.Article.ContentSelectors = nil }, ErrNoContentSelector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultUDNConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}
