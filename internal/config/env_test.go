package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBaseURL(t *testing.T) {
	assert.Equal(t, DefaultAPIURL, ResolveBaseURL(""))
	assert.Equal(t, DefaultAPIURL, ResolveBaseURL("   "))
	assert.Equal(t, "https://api.battleide.dev", ResolveBaseURL("https://api.battleide.dev/"))
	assert.Equal(t, "http://10.0.0.2:4000", ResolveBaseURL(" http://10.0.0.2:4000 "))
}

func TestSocketURL(t *testing.T) {
	cases := map[string]string{
		"":                          "ws://localhost:4000/ws",
		"http://localhost:4000":     "ws://localhost:4000/ws",
		"https://api.battleide.dev": "wss://api.battleide.dev/ws",
		"https://host/prefix/":      "wss://host/prefix/ws",
		"http://host:4000/?x=1":     "ws://host:4000/ws",
	}
	for in, want := range cases {
		got, err := SocketURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestSocketURLRejectsUnknownScheme(t *testing.T) {
	_, err := SocketURL("ftp://host")
	require.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 50, cfg.LeaderboardLimit)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("API_URL", "https://battle.example.com/")
	t.Setenv("SOCKET_AUTH", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("LEADERBOARD_LIMIT", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://battle.example.com", cfg.APIURL)
	assert.True(t, cfg.SocketAuth)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 10, cfg.LeaderboardLimit)
}
