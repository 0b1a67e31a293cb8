package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/sitemap-explorer/config"
	"github.com/aluiziolira/sitemap-explorer/pipeline"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	defaults := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "analyze [site...]",
		Short: "Analyze the sitemaps of one or more sites",
		Long: `Analyze fetches <site>/sitemap.xml for every site given, resolves child
sitemaps and writes one report per site.

Examples:
  # Summary table on stdout
  sitemap-explorer analyze example.com

  # Several sites, JSON lines into a file
  sitemap-explorer analyze -f json -o reports.jsonl shop.example.com blog.example.com

  # Sites listed one per line (# starts a comment), "-" reads stdin
  sitemap-explorer analyze --list sites.txt -f csv -o out/report.csv

The command exits with status 1 if any site could not be analyzed.`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().StringP("list", "l", "", "File with one site per line (- for stdin)")
	cmd.Flags().StringP("format", "f", defaults.OutputFormat,
		"Output format: text, json, csv, markdown, or dual")
	cmd.Flags().StringP("output", "o", defaults.OutputFile, "Output file path (- for stdout)")
	cmd.Flags().IntP("parallel", "p", defaults.Parallelism, "Number of sites analyzed concurrently")
	addFetchFlags(cmd)

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sites := args
	if listPath, _ := cmd.Flags().GetString("list"); listPath != "" {
		listed, err := readSiteList(listPath, cmd.InOrStdin())
		if err != nil {
			return err
		}
		sites = append(sites, listed...)
	}
	if len(sites) == 0 {
		return errors.New("no sites given: pass site arguments or --list")
	}

	explorer, err := newExplorer(cfg)
	if err != nil {
		return fmt.Errorf("initialising explorer: %w", err)
	}

	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting analysis",
		slog.Int("sites", len(sites)),
		slog.Int("workers", cfg.Parallelism),
		slog.String("format", cfg.OutputFormat),
	)

	p := pipeline.NewPipeline(ctx, explorer, writer, cfg)
	p.Start(cfg.Parallelism)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	start := time.Now()
	if err := p.Process(sites...); err != nil {
		return fmt.Errorf("queue sites: %w", err)
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("pipeline shutdown failed: %w", err)
	}

	failures := p.Failures()
	metrics := p.GetMetrics()
	if processed, _ := metrics["processed_sites"].(int64); processed > 0 {
		if err := writer.Validate(); err != nil {
			return fmt.Errorf("output validation failed: %w", err)
		}
	}

	printSummary(cmd.ErrOrStderr(), metrics, failures, time.Since(start), cfg.OutputFile)

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d sites could not be analyzed", len(failures), len(sites))
	}
	return nil
}

func readSiteList(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	if path != pipeline.Stdout {
		f, err := os.Open(path) //nolint:gosec // user supplied list path
		if err != nil {
			return nil, fmt.Errorf("open site list: %w", err)
		}
		defer f.Close()
		r = f
	}

	var sites []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sites = append(sites, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read site list: %w", err)
	}
	return sites, nil
}

func printSummary(w io.Writer, metrics map[string]interface{}, failures []pipeline.Failure, duration time.Duration, output string) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Analysis complete")

	processed, _ := metrics["processed_sites"].(int64)
	fmt.Fprintf(w, "  Reports:       %d\n", processed)
	fmt.Fprintf(w, "  Failed sites:  %d\n", len(failures))
	for _, failure := range failures {
		fmt.Fprintf(w, "    %s: %v\n", failure.Site, failure.Err)
	}
	if skipped, ok := metrics["skipped_sites"].(map[string]int); ok && len(skipped) > 0 {
		fmt.Fprintf(w, "  Skipped:       %v\n", skipped)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	if output == pipeline.Stdout {
		output = "stdout"
	}
	fmt.Fprintf(w, "  Output:        %s\n", output)
	fmt.Fprintln(w, separator)
}

