// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yatsu/githubstat/internal/domain"
	"github.com/yatsu/githubstat/internal/gateway"
	"github.com/yatsu/githubstat/internal/stat"
	"github.com/yatsu/githubstat/internal/usecase"
)

// writeResult is the JSON shape of one per-statistic outcome printed
// to standard output.
type writeResult struct {
	Stat  string `json:"stat"`
	File  string `json:"file,omitempty"`
	Rows  int    `json:"rows"`
	Error string `json:"error,omitempty"`
}

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Fetches repository statistics and merges them into CSV files",
	Long: `Fetches the requested statistics for one repository and merges the rows
into {outdir}/{year}_githubstat_{kind}.csv. Re-running with overlapping data
is safe: rows are deduplicated by each statistic's natural key. Exits with a
non-zero status if any statistic fails.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Get the verbose flag from the root command to set up the logger.
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := logrus.New()
		logger.SetOutput(io.Discard) // Default: discard all logs.
		if verbose {
			logger.SetOutput(os.Stderr)
			logger.SetLevel(logrus.DebugLevel)
		}

		// Get other flags.
		owner, _ := cmd.Flags().GetString("owner")
		repo, _ := cmd.Flags().GetString("repo")
		outdir, _ := cmd.Flags().GetString("outdir")
		dateStr, _ := cmd.Flags().GetString("date")
		statsStr, _ := cmd.Flags().GetString("stats")
		parallel, _ := cmd.Flags().GetInt("parallel")

		// The token comes from the environment; a local .env file is
		// honored when present.
		_ = godotenv.Load()
		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			fmt.Fprintln(os.Stderr, "Error: GITHUB_TOKEN environment variable is not set.")
			os.Exit(1)
		}

		// The reference date defaults to today.
		refDate := time.Now()
		if dateStr != "" {
			parsed, err := time.Parse(domain.DateLayout, dateStr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid --date format. Please use YYYY-MM-DD. Error: %v\n", err)
				os.Exit(1)
			}
			refDate = parsed
		}

		sources := stat.All()
		if statsStr != "" {
			var err error
			sources, err = stat.ForNames(strings.Split(statsStr, ","))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid --stats value: %v\n", err)
				os.Exit(1)
			}
		}

		// Inject dependencies and run the main business logic.
		target := domain.Target{Owner: owner, Repo: repo}
		githubGateway, err := gateway.NewGitHubGateway(target, token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		writer := usecase.NewWriter(githubGateway, logger, usecase.WithConcurrency(parallel))

		outcomes := writer.Write(ctx, sources, refDate, outdir)

		results := make([]writeResult, 0, len(outcomes))
		failed := false
		for _, o := range outcomes {
			r := writeResult{Stat: string(o.Kind), Rows: o.Count}
			if o.Failed() {
				failed = true
				r.Error = o.Err.Error()
			} else {
				r.File = o.Path
			}
			results = append(results, r)
		}

		jsonData, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal results to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))

		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().StringP("owner", "o", "", "Repository owner (required)")
	writeCmd.Flags().StringP("repo", "r", "", "Repository name (required)")
	writeCmd.MarkFlagRequired("owner")
	writeCmd.MarkFlagRequired("repo")
	writeCmd.Flags().String("outdir", ".", "Directory the CSV files are written to")
	writeCmd.Flags().String("date", "", "Reference date for the snapshot (YYYY-MM-DD, default: today)")
	writeCmd.Flags().String("stats", "", "Comma-separated statistic kinds: referrers,paths,starsforks,viewsclones (default: all)")
	writeCmd.Flags().Int("parallel", 1, "Number of statistics to collect in parallel")
}
