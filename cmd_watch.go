package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goldlanka/goldmarket/internal/rss"
)

var (
	watchURL      string
	watchInterval time.Duration
	watchOnce     bool
)

// watchCmd polls a server's listings feed and prints new items
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print new listings from a server's RSS feed as they appear",
	RunE:  runWatch,
}

func init() {
	flags := watchCmd.Flags()
	flags.StringVar(&watchURL, "url", "", "feed URL (default <client.base_url>/feed.rss)")
	flags.DurationVar(&watchInterval, "interval", rss.DefaultInterval, "poll interval")
	flags.BoolVar(&watchOnce, "once", false, "print the current listings and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	url := watchURL
	if url == "" {
		url = strings.TrimRight(cfg.Client.BaseURL, "/") + "/feed.rss"
	}
	out := cmd.OutOrStdout()
	w := rss.NewWatcher(url, watchInterval, logger, func(l rss.Listing) {
		fmt.Fprintf(out, "%s  %s\n    %s\n", l.Published.Local().Format(time.DateTime), l.Title, l.Link)
	})

	if watchOnce {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.Timeout)
		defer cancel()
		_, err := w.Check(ctx)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	w.Start()
	<-ctx.Done()
	w.Stop()
	return nil
}
