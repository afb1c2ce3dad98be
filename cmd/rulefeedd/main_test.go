package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulefeed/rulefeed/internal/rules/config"
	"github.com/rulefeed/rulefeed/internal/rules/domain"
	"github.com/rulefeed/rulefeed/internal/rules/services/engine"
)

func testConfig(t *testing.T, feedURL string) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		FeedURL:             feedURL,
		FeedPath:            "ios/latest.txt",
		FetchTimeoutSeconds: 5,
		StorageDir:          t.TempDir(),
		DecisionCacheSize:   16,
		Env:                 "dev",
		LogLevel:            "error",
	}
}

func TestBuildApplication(t *testing.T) {
	cfg := testConfig(t, "https://rules.example.net")

	app, err := buildApplication(cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.store)
	assert.NotNil(t, app.refresher)
}

func TestEndToEndRefreshAndDecide(t *testing.T) {
	const rules = "||example.com^\n@@||example.com/allow^$document\n"

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(rules))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	app, err := buildApplication(cfg)
	require.NoError(t, err)
	defer app.Close()

	first, err := app.refresher.RefreshContentRules(context.Background())
	require.NoError(t, err)

	second, err := app.refresher.RefreshContentRules(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, requests)
	assert.Equal(t, first, second, "a 304 refresh must reproduce the same result")

	eng, err := engine.New(engine.Options{
		SerializedRules: first.SerializedRules,
		CacheSize:       cfg.DecisionCacheSize,
	})
	require.NoError(t, err)

	assert.False(t, eng.ShouldBlock("https://example.com/allow", "https://other.com", domain.ResourceDocument, false),
		"exception rule wins")
	assert.True(t, eng.ShouldBlock("https://example.com/x", "https://other.com", domain.ResourceScript, false))
}

func TestRunCheckValidation(t *testing.T) {
	cfg := testConfig(t, "https://rules.example.net")
	result := domain.ContentRulesResult{SerializedRules: "[]"}

	assert.Error(t, runCheck(cfg, result, "https://a.com", "https://b.com", "websocket"),
		"unknown resource type is rejected")
	assert.Error(t, runCheck(cfg, result, "https://a.com", "", "script"),
		"missing source URL is rejected")
	assert.NoError(t, runCheck(cfg, result, "https://a.com", "https://b.com", "script"))
}
