package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ch-pump/internal/engine"
)

type Settings struct {
	BatchSize            int     `mapstructure:"batch_size"`
	SkipExistingTables   bool    `mapstructure:"skip_existing_tables"`
	AutoRecreateTable    bool    `mapstructure:"auto_recreate_table"`
	EnableValidation     bool    `mapstructure:"enable_validation"`
	ValidationSampleSize int     `mapstructure:"validation_sample_size"`
	WriteRetries         int     `mapstructure:"write_retries"`
	RetryBackoff         string  `mapstructure:"retry_backoff"`
	MaxRowErrorRate      float64 `mapstructure:"max_row_error_rate"`
}

type DictFiles struct {
	TableFile  string `mapstructure:"table_file"`
	ColumnFile string `mapstructure:"column_file"`
}

type FilterFiles struct {
	IncludeFile string `mapstructure:"include_file"`
	ExcludeFile string `mapstructure:"exclude_file"`
}

// LoadEngineConfig converts the viper settings tree into the engine's
// runtime config, including the table filter lists.
func LoadEngineConfig() (engine.Config, error) {
	var s Settings
	if err := viper.UnmarshalKey("settings", &s); err != nil {
		return engine.Config{}, fmt.Errorf("failed to parse settings: %w", err)
	}

	backoff := 500 * time.Millisecond
	if s.RetryBackoff != "" {
		d, err := time.ParseDuration(s.RetryBackoff)
		if err != nil {
			return engine.Config{}, fmt.Errorf("invalid settings.retry_backoff %q: %w", s.RetryBackoff, err)
		}
		backoff = d
	}

	cfg := engine.Config{
		BatchSize:            s.BatchSize,
		SkipExisting:         s.SkipExistingTables,
		AutoRecreate:         s.AutoRecreateTable,
		EnableValidation:     s.EnableValidation,
		ValidationSampleSize: s.ValidationSampleSize,
		WriteRetries:         s.WriteRetries,
		RetryBackoff:         backoff,
		MaxRowErrorRate:      s.MaxRowErrorRate,
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.ValidationSampleSize <= 0 {
		cfg.ValidationSampleSize = 100
	}

	var f FilterFiles
	if err := viper.UnmarshalKey("filter", &f); err != nil {
		return engine.Config{}, fmt.Errorf("failed to parse filter config: %w", err)
	}
	var err error
	if cfg.Include, err = readTableList(f.IncludeFile); err != nil {
		return engine.Config{}, err
	}
	if cfg.Exclude, err = readTableList(f.ExcludeFile); err != nil {
		return engine.Config{}, err
	}

	return cfg, nil
}

// readTableList reads one table name per line; blank lines and lines
// starting with # are ignored.
func readTableList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table list %s: %w", path, err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table list %s: %w", path, err)
	}
	return names, nil
}
