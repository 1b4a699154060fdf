package restclient

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config describes a Client. Keys follow the mapstructure tags, so a
// config file section such as
//
//	timeout: 30s
//	debug: true
//	stall_timeout: 30s
//
// can be loaded with LoadConfig.
type Config struct {
	Timeout              time.Duration `mapstructure:"timeout"`
	UserAgent            string        `mapstructure:"user_agent"`
	Debug                bool          `mapstructure:"debug"`
	TraceMultipart       bool          `mapstructure:"trace_multipart"`
	StallTimeout         time.Duration `mapstructure:"stall_timeout"`
	StallThreshold       int64         `mapstructure:"stall_threshold"`
	MaxIdleConns         int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost  int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout      time.Duration `mapstructure:"idle_conn_timeout"`
	ProxyFromEnvironment bool          `mapstructure:"proxy_from_environment"`

	// not loaded from configuration
	Logger *slog.Logger `mapstructure:"-"`
	Trace  io.Writer    `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:              120 * time.Second,
		UserAgent:            UserAgent,
		StallThreshold:       150 * 1024,
		MaxIdleConns:         100,
		MaxIdleConnsPerHost:  50,
		IdleConnTimeout:      90 * time.Second,
		ProxyFromEnvironment: true,
	}
}

// LoadConfig reads a Config from v, starting from DefaultConfig.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if v == nil {
		return cfg, nil
	}
	for key, val := range map[string]any{
		"timeout":                 cfg.Timeout,
		"user_agent":              cfg.UserAgent,
		"debug":                   cfg.Debug,
		"trace_multipart":         cfg.TraceMultipart,
		"stall_timeout":           cfg.StallTimeout,
		"stall_threshold":         cfg.StallThreshold,
		"max_idle_conns":          cfg.MaxIdleConns,
		"max_idle_conns_per_host": cfg.MaxIdleConnsPerHost,
		"idle_conn_timeout":       cfg.IdleConnTimeout,
		"proxy_from_environment":  cfg.ProxyFromEnvironment,
	} {
		v.SetDefault(key, val)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NewClient builds a Client with its own transport.
func NewClient(cfg Config) *Client {
	tr := &http.Transport{
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   RestHttpTransport.TLSHandshakeTimeout,
		ExpectContinueTimeout: RestHttpTransport.ExpectContinueTimeout,
	}
	if cfg.ProxyFromEnvironment {
		tr.Proxy = http.ProxyFromEnvironment
	}

	c := &Client{
		HTTP:           &http.Client{Transport: tr, Timeout: cfg.Timeout},
		UserAgent:      cfg.UserAgent,
		Debug:          cfg.Debug,
		Logger:         cfg.Logger,
		Trace:          cfg.Trace,
		StallTimeout:   cfg.StallTimeout,
		StallThreshold: cfg.StallThreshold,
	}
	if cfg.TraceMultipart && c.Trace == nil {
		c.Trace = os.Stdout
	}
	return c
}
