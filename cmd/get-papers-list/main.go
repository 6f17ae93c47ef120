// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the get-papers-list CLI. It searches
// PubMed, keeps the articles with at least one author affiliated with a
// pharmaceutical or biotech company, and writes them as CSV or JSON.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pharma-extractor/internal/errs"
)

// version is set at build time via ldflags.
var version = "dev"

// exitInterrupted is returned when the run is cancelled by SIGINT/SIGTERM.
const exitInterrupted = 130

// rootCmd runs an extraction for the query given as arguments.
var rootCmd = &cobra.Command{
	Use:   "get-papers-list QUERY",
	Short: "List PubMed papers with pharmaceutical or biotech authors",
	Long: `get-papers-list searches PubMed with the full PubMed query syntax, fetches
the matching articles and reports those with at least one author affiliated
with a pharmaceutical or biotech company.

Results go to stdout as CSV unless --file is given. Logs go to stderr.`,
	Example: `  get-papers-list "acne AND pharmaceutical" --file acne.csv
  get-papers-list "cancer immunotherapy[tiab] AND 2023[dp]" --format json -n 200`,
	Args:          queryArgs,
	RunE:          runExtract,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./get-papers-list.yaml or ~/.config/get-papers-list/get-papers-list.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "print debug information during execution")

	rootCmd.Flags().StringP("file", "f", "", "filename to save the results (default: print to stdout)")
	rootCmd.Flags().String("format", "", "output format: csv or json (default: from the file extension, else csv)")
	rootCmd.Flags().IntP("max-results", "n", 0, "maximum number of articles to fetch (default: pubmed.max_results or 50)")
	rootCmd.Flags().String("summary", "", "write a YAML run summary to this file")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errs.Wrap(errs.KindValidation, "cli", err, "invalid flags")
	})
	rootCmd.Version = version
}

func queryArgs(_ *cobra.Command, args []string) error {
	if len(args) == 0 || strings.TrimSpace(strings.Join(args, " ")) == "" {
		return errs.New(errs.KindValidation, "cli", "a search query is required")
	}
	return nil
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("get-papers-list")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "get-papers-list"))
		}
	}

	viper.SetEnvPrefix("GET_PAPERS_LIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "warning: reading config file %s: %v\n", cfgFile, err)
	}
}

// exitCode maps a command error onto the process exit status.
func exitCode(ctx context.Context, err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return exitInterrupted
	}
	return errs.KindOf(err).ExitCode()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	code := exitCode(ctx, err)
	if code == exitInterrupted {
		fmt.Fprintln(os.Stderr, "interrupted")
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	stop()
	os.Exit(code)
}
