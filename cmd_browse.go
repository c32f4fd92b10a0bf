package main

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goldlanka/goldmarket/internal/auth"
	"github.com/goldlanka/goldmarket/internal/browse"
	"github.com/goldlanka/goldmarket/internal/client"
	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/logging"
	"github.com/goldlanka/goldmarket/internal/model"
)

var browseDistrict string

// browseCmd pages through a running server in the terminal
var browseCmd = &cobra.Command{
	Use:   "browse [items|shops|forum]",
	Short: "Browse items, shops or the forum in the terminal",
	Long: `Pages through a running goldmarket server. Scrolling to the last row
loads the next page; press / to filter by district.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"items", "shops", "forum"},
	RunE:      runBrowse,
}

func init() {
	flags := browseCmd.Flags()
	flags.StringVar(&browseDistrict, "district", "", "start filtered to a district")
	flags.String("server", "http://localhost:8080", "server URL")
	flags.String("user", "", "user ID sent with requests")
	mustBind("client.base_url", flags.Lookup("server"))
	mustBind("client.user_id", flags.Lookup("user"))
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	collection := "items"
	if len(args) > 0 {
		collection = args[0]
	}
	district := ""
	if browseDistrict != "" {
		if collection == "forum" {
			return errors.New("the forum cannot be filtered by district")
		}
		var err error
		if district, err = model.NormalizeDistrict(browseDistrict); err != nil {
			return err
		}
	}

	session := auth.NewSession(auth.Identity{})
	if cfg.Client.UserID != "" {
		if err := session.SignIn(auth.Identity{UserID: cfg.Client.UserID}); err != nil {
			return errors.New(auth.FriendlyError(err))
		}
	}
	c := client.New(cfg.Client.BaseURL, session, cfg.Client.Timeout)

	switch collection {
	case "shops":
		return runBrowser[model.Shop](c.Shops(), browse.Options[model.Shop]{
			Title: "Gold shops", Filterable: true, Filter: district, Render: browse.ShopRow,
		})
	case "forum":
		return runBrowser[model.ForumPost](c.Forum(), browse.Options[model.ForumPost]{
			Title: "Forum", Render: browse.ForumRow,
		})
	default:
		return runBrowser[model.Item](c.Items(), browse.Options[model.Item]{
			Title: "Gold items", Filterable: true, Filter: district, Render: browse.ItemRow,
		})
	}
}

// browseLogFile receives the browser's logs when no log file is configured;
// stderr would draw over the full-screen display.
const browseLogFile = "goldmarket-browse.log"

// browseLogger returns the root logger if it already writes to a file, and
// otherwise a logger with the same settings writing to browseLogFile.
func browseLogger() (*zap.Logger, error) {
	if cfg.Logging.File != "" {
		return logger, nil
	}
	lc := cfg.Logging
	lc.File = browseLogFile
	return logging.New(lc)
}

func runBrowser[T feed.Record](src feed.Source[T], opts browse.Options[T]) error {
	log, err := browseLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	f := feed.New(src, feed.WithPageSize(cfg.Feed.PageSize), feed.WithLogger(log.Named("feed")))
	defer f.Close()
	opts.Timeout = cfg.Client.Timeout

	m := browse.New(f, opts)
	defer m.Close()
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
