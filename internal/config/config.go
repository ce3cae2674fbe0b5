package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	PositionManager string
	RentRouter      string
	RentalEscrow    string
	Factory         string
	Multicall       string
	Accounts        []string

	BatchSize     int
	Concurrency   int
	MaxRetries    int
	RetryBackoff  time.Duration
	Timeout       time.Duration
	FailureMode   string
	EnforceExpiry bool
	ChainTime     bool

	Follow       bool
	PollInterval time.Duration

	Out         string
	PGDSN       string
	MetricsAddr string
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RENTALSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("multicall", "0xcA11bde05977b3631167028862bE2a173976CA11")
	v.SetDefault("batch-size", 100)
	v.SetDefault("concurrency", 4)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("failure-mode", "all-or-nothing")
	v.SetDefault("enforce-expiry", true)
	v.SetDefault("chain-time", false)
	v.SetDefault("follow", false)
	v.SetDefault("poll-interval", 12*time.Second)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		PositionManager: v.GetString("position-manager"),
		RentRouter:      v.GetString("rent-router"),
		RentalEscrow:    v.GetString("rental-escrow"),
		Factory:         v.GetString("factory"),
		Multicall:       v.GetString("multicall"),
		Accounts:        getStringSlice(v, "account"),
		BatchSize:       v.GetInt("batch-size"),
		Concurrency:     v.GetInt("concurrency"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		Timeout:         v.GetDuration("timeout"),
		FailureMode:     v.GetString("failure-mode"),
		EnforceExpiry:   v.GetBool("enforce-expiry"),
		ChainTime:       v.GetBool("chain-time"),
		Follow:          v.GetBool("follow"),
		PollInterval:    v.GetDuration("poll-interval"),
		Out:             v.GetString("out"),
		PGDSN:           v.GetString("pg-dsn"),
		MetricsAddr:     v.GetString("metrics-addr"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
