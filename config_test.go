package restclient

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
timeout: 30s
user_agent: custom/2.0
debug: true
stall_timeout: 10s
max_idle_conns: 5
`)))

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "custom/2.0", cfg.UserAgent)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 10*time.Second, cfg.StallTimeout)
	assert.Equal(t, 5, cfg.MaxIdleConns)

	// untouched keys keep their defaults
	def := DefaultConfig()
	assert.Equal(t, def.MaxIdleConnsPerHost, cfg.MaxIdleConnsPerHost)
	assert.Equal(t, def.StallThreshold, cfg.StallThreshold)
	assert.True(t, cfg.ProxyFromEnvironment)
}

func TestLoadConfigNil(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Timeout, cfg.Timeout)
}

func TestNewClient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 3 * time.Second
	cfg.UserAgent = "agent"
	cfg.TraceMultipart = true

	c := NewClient(cfg)
	assert.Equal(t, 3*time.Second, c.HTTP.Timeout)
	assert.Equal(t, "agent", c.userAgent())
	assert.Equal(t, os.Stdout, c.Trace)

	ctx := c.Use(context.Background())
	assert.Same(t, c, clientFrom(ctx))
	assert.Same(t, DefaultClient, clientFrom(context.Background()))
}

func TestZeroClientDefaults(t *testing.T) {
	var c Client
	assert.Same(t, RestHttpClient, c.httpClient())
	assert.Equal(t, UserAgent, c.userAgent())
	assert.NotNil(t, c.logger())
}
