// Package config merges config file, environment variables, and flags into
// typed per-command configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("CHAINSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

// ServeConfig configures the API server.
type ServeConfig struct {
	Addr            string
	PGDSN           string
	RefreshInterval time.Duration
	LogLevel        string
}

// LoadServe merges config sources for the serve command.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ServeConfig{}, err
	}

	v.SetDefault("addr", ":8080")
	v.SetDefault("refresh-interval", 30*time.Second)
	v.SetDefault("log-level", "info")

	return ServeConfig{
		Addr:            v.GetString("addr"),
		PGDSN:           v.GetString("pg-dsn"),
		RefreshInterval: v.GetDuration("refresh-interval"),
		LogLevel:        v.GetString("log-level"),
	}, nil
}

// CollectConfig configures the block collector.
type CollectConfig struct {
	Network      string
	RPCURL       string
	FromBlock    uint64
	ToBlock      uint64
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
	PGDSN        string
	LogLevel     string
}

// LoadCollect merges config sources for the collect command.
func LoadCollect(cfgFile string, flags *pflag.FlagSet) (CollectConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return CollectConfig{}, err
	}

	v.SetDefault("batch-size", uint64(200))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	return CollectConfig{
		Network:      v.GetString("network"),
		RPCURL:       v.GetString("rpc"),
		FromBlock:    v.GetUint64("from"),
		ToBlock:      v.GetUint64("to"),
		BatchSize:    v.GetUint64("batch-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		PGDSN:        v.GetString("pg-dsn"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// IngestConfig configures the JSONL loader.
type IngestConfig struct {
	Input     string
	BatchSize int
	PGDSN     string
	LogLevel  string
}

// LoadIngest merges config sources for the ingest command.
func LoadIngest(cfgFile string, flags *pflag.FlagSet) (IngestConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return IngestConfig{}, err
	}

	v.SetDefault("batch-size", 1000)
	v.SetDefault("log-level", "info")

	return IngestConfig{
		Input:     v.GetString("in"),
		BatchSize: v.GetInt("batch-size"),
		PGDSN:     v.GetString("pg-dsn"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}

// ExportConfig configures the CSV export command.
type ExportConfig struct {
	Network  string
	Metric   string
	Range    string
	Mode     string
	Keys     []string
	Out      string
	PGDSN    string
	LogLevel string
}

// LoadExport merges config sources for the export command.
func LoadExport(cfgFile string, flags *pflag.FlagSet) (ExportConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ExportConfig{}, err
	}

	v.SetDefault("range", "30D")
	v.SetDefault("mode", "sum")
	v.SetDefault("log-level", "info")

	return ExportConfig{
		Network:  v.GetString("network"),
		Metric:   v.GetString("metric"),
		Range:    v.GetString("range"),
		Mode:     v.GetString("mode"),
		Keys:     getStringSlice(v, "key"),
		Out:      v.GetString("out"),
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}, nil
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
		return cleanStrings(strings.Split(typed, ","))
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
