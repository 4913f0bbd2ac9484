package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MihirGambhire/linkedin-monitor/internal/storage"
)

var (
	historyRunID    string
	historyCategory string
	historySince    string
	historyLimit    int
	historyOffset   int
	historyJSON     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query archived posts",
	Long: `History lists posts persisted by earlier runs, newest first.

Examples:
  linkedin-monitor history --since 7d
  linkedin-monitor history --category BESS --limit 10
  linkedin-monitor history --run 8f14e45f --json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyRunID, "run", "", "only posts from this run id")
	historyCmd.Flags().StringVar(&historyCategory, "category", "", "only posts filed under this category")
	historyCmd.Flags().StringVar(&historySince, "since", "", "only posts newer than this, e.g. 7d or 36h")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum posts to list")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "posts to skip")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.Archive.Driver == "none" {
		return fmt.Errorf("archive is disabled (archive.driver is %q)", cfg.Archive.Driver)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg.Archive)
	if err != nil {
		return err
	}
	defer backend.Close()

	filter := storage.Filter{
		RunID:    historyRunID,
		Category: historyCategory,
		Limit:    historyLimit,
		Offset:   historyOffset,
	}
	if historySince != "" {
		d, err := parseSince(historySince)
		if err != nil {
			return err
		}
		since := time.Now().Add(-d)
		filter.Since = &since
	}

	entries, err := backend.Query(ctx, filter)
	if err != nil {
		return err
	}

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No archived posts match.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %-12s  [%s]  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Category, e.CaptureStatus, e.Title)
		fmt.Printf("%24s%s\n", "", e.URL)
		if len(e.MatchedKeywords) > 0 {
			fmt.Printf("%24smatched: %s\n", "", strings.Join(e.MatchedKeywords, ", "))
		}
	}
	fmt.Printf("\n%d posts\n", len(entries))
	return nil
}

// parseSince accepts a Go duration or a day count like "7d".
func parseSince(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid --since value %q, use 7d or 36h", s)
	}
	return d, nil
}
