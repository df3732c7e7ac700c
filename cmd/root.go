package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/lepinkainen/readtube/internal/config"
	"github.com/spf13/viper"
)

// stdout receives command output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// CLI represents the complete command structure for the readtube application
type CLI struct {
	// Global flags
	Config  string `help:"Path to a YAML config file (defaults to ./config.yaml when present)" type:"path"`
	Debug   bool   `help:"Enable debug logging"`
	APIKey  string `name:"api-key" help:"Catalog API key (overrides GOOGLE_BOOKS_API_KEY)"`
	DB      string `name:"db" help:"Path to the SQLite file holding saved books and history"`
	NoCache bool   `help:"Bypass the catalog response cache"`

	Search  SearchCmd  `cmd:"" help:"Search the book catalog"`
	Feed    FeedCmd    `cmd:"" help:"List new releases"`
	Saved   SavedCmd   `cmd:"" help:"Manage saved books"`
	History HistoryCmd `cmd:"" help:"Manage recent searches"`
	Preview PreviewCmd `cmd:"" help:"Print or capture the embedded preview for a book"`
	Browse  BrowseCmd  `cmd:"" help:"Open the interactive browser"`
	Cache   CacheCmd   `cmd:"" help:"Manage the catalog response cache"`
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI

	kctx := kong.Parse(&cli,
		kong.Name("readtube"),
		kong.Description("Browse, search and bookmark books from the Google Books catalog."),
		kong.UsageOnError(),
	)

	initLogging(os.Stderr, cli.Debug)

	if err := initConfig(viper.GetViper(), cli.Config); err != nil {
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}
	applyGlobalFlags(viper.GetViper(), &cli)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := kctx.Run()
	stop()
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// initConfig registers defaults and environment bindings on v and reads the
// config file. A missing ./config.yaml is fine; an explicit path must exist.
func initConfig(v *viper.Viper, path string) error {
	config.SetDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("catalog.apikey", "GOOGLE_BOOKS_API_KEY"); err != nil {
		return fmt.Errorf("binding GOOGLE_BOOKS_API_KEY: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			slog.Debug("Config file not found, using defaults")
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	slog.Debug("Loaded config file", "path", v.ConfigFileUsed())
	return nil
}

// applyGlobalFlags lets global flags override file and environment values.
func applyGlobalFlags(v *viper.Viper, cli *CLI) {
	if cli.APIKey != "" {
		v.Set("catalog.apikey", cli.APIKey)
	}
	if cli.DB != "" {
		v.Set("storage.dbfile", cli.DB)
	}
	if cli.NoCache {
		v.Set("cache.enabled", false)
	}
}

func initLogging(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	// Create a human-readable handler for logging
	handler := humanlog.NewHandler(w, &humanlog.Options{
		Level: level,
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
