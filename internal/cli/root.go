// Package cli implements the postcache CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/rcliao/postcache/internal/config"
	"github.com/rcliao/postcache/internal/projection"
	"github.com/rcliao/postcache/internal/remote"
	"github.com/rcliao/postcache/internal/store"
	"github.com/rcliao/postcache/internal/syncer"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	endpoint   string
	logLevel   string
	formatFlag string

	cfg    *config.Config
	logger *slog.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "postcache",
	Short: "Fetch, cache and list posts",
	Long:  "Fetches posts from a JSON API, caches them in SQLite, and lists either source.",

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := setup(); err != nil {
			exitErr("config", err)
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $POSTCACHE_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $POSTCACHE_DB or ~/.postcache/posts.db)")
	RootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "Posts endpoint (default: "+remote.DefaultEndpoint+")")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func setup() error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.DBPath = dbPath
	}
	if endpoint != "" {
		c.Endpoint = endpoint
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	cfg = c

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	return nil
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DBPath)
}

func newSyncer(s store.Store) *syncer.Syncer {
	client := &http.Client{Timeout: cfg.Timeout}
	f := remote.New(client, cfg.Endpoint, logger)
	return syncer.New(f, s, cfg.Endpoint, logger)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

type listOutput struct {
	Source string            `json:"source"`
	Count  int               `json:"count"`
	Items  []projection.Item `json:"items"`
}

func printList(l *projection.List) {
	if formatFlag == "text" {
		for row := 0; row < l.Count(); row++ {
			it, _ := l.ItemAt(row)
			fmt.Printf("%d\t%d\t%s\n", row, it.ID, it.Title)
		}
		return
	}
	printJSON(listOutput{Source: l.Source().String(), Count: l.Count(), Items: l.Items()})
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
