// One-shot daily AR brief for cron and local inspection. Fetches the
// open-invoice snapshot once and prints the brief as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models/reports"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/netsuite"
)

func main() {
	asOfFlag := flag.String("as-of", "", "as-of date (YYYY-MM-DD, default today UTC)")
	lookbackDays := flag.Int("lookback-days", 0, "how far back to pull invoices (default 365)")
	limit := flag.Int("limit", 0, "feed row cap (default 1000)")
	topNQueue := flag.Int("top-n-queue", 0, "priority queue size in the brief (default 10)")
	topNRisk := flag.Int("top-n-risk", 0, "risk customer count in the brief (default 10)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	var asOf time.Time
	if *asOfFlag != "" {
		parsed, err := time.Parse("2006-01-02", *asOfFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -as-of %q: %v\n", *asOfFlag, err)
			os.Exit(2)
		}
		asOf = parsed
	}

	client, err := netsuite.NewClientFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	brief, err := reports.GetDailyARBrief(ctx, client, reports.DailyARBriefParams{
		AsOfDate:     asOf,
		LookbackDays: *lookbackDays,
		Limit:        *limit,
		TopNQueue:    *topNQueue,
		TopNRisk:     *topNRisk,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(brief); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
