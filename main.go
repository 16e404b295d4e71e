package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/beatnet/serverbrowser/internal/app"
	"github.com/beatnet/serverbrowser/internal/config"
	"github.com/beatnet/serverbrowser/internal/directory"
)

var (
	cfgPath     = flag.String("config", "config.json", "Path to the config file (created if missing)")
	browseQuery = flag.String("browse", "", "One-shot: list public lobbies matching the query and exit (\"*\" for all)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	version     = flag.Bool("version", false, "Show version")
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("serverbrowser v%s\n", appVersion)
		return
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, created, err := config.Ensure(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *cfgPath).Msg("load config")
	}
	if created {
		log.Info().Str("path", *cfgPath).Msg("wrote default config")
	}

	if *browseQuery != "" {
		if err := runBrowse(cfg, *browseQuery); err != nil {
			log.Fatal().Err(err).Msg("browse")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Options{CfgPath: *cfgPath, Cfg: cfg}); err != nil {
		log.Fatal().Err(err).Msg("announcer exited")
	}
	log.Info().Msg("announcer stopped")
}

// runBrowse prints one page of public lobbies to stdout.
func runBrowse(cfg config.Config, query string) error {
	if query == "*" {
		query = ""
	}

	client := directory.NewClient(cfg.Directory.BaseURL, time.Duration(cfg.Directory.TimeoutSec)*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page, err := client.Browse(ctx, 0, query)
	if err != nil {
		return err
	}

	fmt.Printf("%d lobby(ies) listed\n", page.Count)
	for _, lobby := range page.Lobbies {
		fmt.Printf("  [%s] %s — %d/%d players, %s, %s\n",
			lobby.ServerCode, lobby.GameName, lobby.PlayerCount, lobby.PlayerLimit,
			lobby.ServerType, lobby.LobbyState)
	}
	return nil
}
