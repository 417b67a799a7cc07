// Package config loads service settings from config.yaml and the
// environment. A local .env is honored in development.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config is the explicit settings struct threaded through main. No component
// reads configuration ambiently.
type Config struct {
	AppPort  string
	LogLevel string

	PrivateKey string
	IsMainnet  bool

	HyperliquidAPIURL string
	HyperliquidWSURL  string
	AsterAPIURL       string
	LighterAPIURL     string
	BridgeAPIURL      string

	RPCEndpoints map[uint64]string

	PollInterval       time.Duration
	FallbackCollateral float64
}

// Load reads configuration with precedence: environment, then config.yaml,
// then defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, reading from environment directly")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("PERPDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_port", "3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("is_mainnet", true)
	v.SetDefault("hyperliquid_api_url", "")
	v.SetDefault("hyperliquid_ws_url", "")
	v.SetDefault("aster_api_url", "")
	v.SetDefault("lighter_api_url", "")
	v.SetDefault("bridge_api_url", "")
	v.SetDefault("poll_interval", "5m")
	v.SetDefault("fallback_collateral", 0.0)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	endpoints, err := parseRPCEndpoints(v.GetStringMapString("rpc_endpoints"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppPort:            v.GetString("app_port"),
		LogLevel:           v.GetString("log_level"),
		PrivateKey:         v.GetString("private_key"),
		IsMainnet:          v.GetBool("is_mainnet"),
		HyperliquidAPIURL:  v.GetString("hyperliquid_api_url"),
		HyperliquidWSURL:   v.GetString("hyperliquid_ws_url"),
		AsterAPIURL:        v.GetString("aster_api_url"),
		LighterAPIURL:      v.GetString("lighter_api_url"),
		BridgeAPIURL:       v.GetString("bridge_api_url"),
		RPCEndpoints:       endpoints,
		PollInterval:       v.GetDuration("poll_interval"),
		FallbackCollateral: v.GetFloat64("fallback_collateral"),
	}
	return cfg, nil
}

func parseRPCEndpoints(raw map[string]string) (map[uint64]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[uint64]string, len(raw))
	for key, url := range raw {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("rpc_endpoints key %q is not a chain id: %w", key, err)
		}
		out[id] = url
	}
	return out, nil
}
