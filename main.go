package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/goldlanka/goldmarket/internal/config"
	"github.com/goldlanka/goldmarket/internal/logging"
)

var (
	// Global flags
	configFile string

	v      = viper.New()
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "goldmarket",
	Short: "Gold marketplace for Sri Lanka",
	Long: `goldmarket lists gold items for bidding, keeps a directory of gold shops
and hosts a small forum.

Run "goldmarket serve" to start the web server, or "goldmarket browse" to
page through a running server from the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, configFile)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./goldmarket.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("dev", false, "human-readable development logging")
	flags.String("log-file", "", "write logs to this file instead of stderr")
	flags.Int("page-size", 10, "records per feed page")
	flags.String("db-driver", "sqlite", "record store: sqlite or postgres")
	flags.String("db-path", "goldmarket.db", "SQLite database file")
	flags.String("dsn", "", "PostgreSQL connection string")
	mustBind("logging.level", flags.Lookup("log-level"))
	mustBind("logging.development", flags.Lookup("dev"))
	mustBind("logging.file", flags.Lookup("log-file"))
	mustBind("feed.page_size", flags.Lookup("page-size"))
	mustBind("database.driver", flags.Lookup("db-driver"))
	mustBind("database.path", flags.Lookup("db-path"))
	mustBind("database.dsn", flags.Lookup("dsn"))
}

// mustBind binds a flag to a config key. Binding only fails for a nil flag.
func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
