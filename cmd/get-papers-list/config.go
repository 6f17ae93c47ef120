// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pharma-extractor/internal/logger"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "get-papers-list/0.1"
	defaultTool      = "get-papers-list"
)

func setDefaults() {
	viper.SetDefault("http.timeout", defaultTimeout)
	viper.SetDefault("http.user_agent", defaultUserAgent)
	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.base_delay", time.Second)
	viper.SetDefault("pubmed.tool", defaultTool)
	viper.SetDefault("pubmed.max_results", 50)
	viper.SetDefault("pubmed.fetch_batch_size", 200)

	def := logger.DefaultConfig()
	viper.SetDefault("log.level", def.Level)
	viper.SetDefault("log.format", def.Format)
	viper.SetDefault("log.output", def.Output)
	viper.SetDefault("log.file.filename", def.File.Filename)
	viper.SetDefault("log.file.max_size", def.File.MaxSize)
	viper.SetDefault("log.file.max_age", def.File.MaxAge)
	viper.SetDefault("log.file.max_backups", def.File.MaxBackups)
	viper.SetDefault("log.file.compress", def.File.Compress)
}

// pubmedConfig reads the E-utilities client settings.
func pubmedConfig() types.PubMedConfig {
	return types.PubMedConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("http.timeout"),
			UserAgent: viper.GetString("http.user_agent"),
		},
		Retry: types.RetryConfig{
			MaxAttempts: viper.GetInt("retry.max_attempts"),
			BaseDelay:   viper.GetDuration("retry.base_delay"),
		},
		SearchURL:      viper.GetString("pubmed.search_url"),
		FetchURL:       viper.GetString("pubmed.fetch_url"),
		Tool:           viper.GetString("pubmed.tool"),
		Email:          viper.GetString("pubmed.email"),
		MaxResults:     viper.GetInt("pubmed.max_results"),
		FetchBatchSize: viper.GetInt("pubmed.fetch_batch_size"),
	}
}

// classifierConfig reads the keyword overrides.
func classifierConfig() types.ClassifierConfig {
	return types.ClassifierConfig{
		KeywordsFile:        viper.GetString("classifier.keywords_file"),
		AcademicKeywords:    viper.GetStringSlice("classifier.academic_keywords"),
		NonAcademicKeywords: viper.GetStringSlice("classifier.non_academic_keywords"),
	}
}

// logConfig reads the logger settings; --debug forces the debug level.
func logConfig(cmd *cobra.Command) *logger.Config {
	cfg := &logger.Config{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
		Output: viper.GetString("log.output"),
		File: logger.FileConfig{
			Filename:   viper.GetString("log.file.filename"),
			MaxSize:    viper.GetInt("log.file.max_size"),
			MaxAge:     viper.GetInt("log.file.max_age"),
			MaxBackups: viper.GetInt("log.file.max_backups"),
			Compress:   viper.GetBool("log.file.compress"),
		},
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Level = "debug"
	}
	return cfg
}
