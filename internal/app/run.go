// Package app wires the announcer runtime together.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beatnet/serverbrowser/internal/announce"
	"github.com/beatnet/serverbrowser/internal/bridge"
	"github.com/beatnet/serverbrowser/internal/config"
	"github.com/beatnet/serverbrowser/internal/directory"
	"github.com/beatnet/serverbrowser/internal/events"
	"github.com/beatnet/serverbrowser/internal/session"
)

// teardownGrace bounds how long shutdown waits for the final un-announce
// round; removal is best-effort once the process is exiting.
const teardownGrace = 5 * time.Second

type Options struct {
	CfgPath string
	Cfg     config.Config
}

// Run starts the announcer and blocks until ctx is cancelled.
func Run(ctx context.Context, opt Options) error {
	cfg := opt.Cfg
	store := config.NewStore(opt.CfgPath, cfg)

	client := directory.NewClient(cfg.Directory.BaseURL, time.Duration(cfg.Directory.TimeoutSec)*time.Second)
	log.Info().Str("directory", client.BaseURL).Msg("announcer: directory configured")

	bus := events.NewBus()
	notifier := announce.NewNotifier()
	activity := session.New()
	projector := announce.NewProjector(cfg.Client)
	coordinator := announce.NewCoordinator(client, projector, activity, notifier)
	coordinator.SetTimeout(time.Duration(cfg.Directory.TimeoutSec) * time.Second)

	router := announce.NewRouter(coordinator, store, notifier)
	router.Attach(bus)
	defer router.Detach()

	// Preference edits outside the game (config file) re-run eligibility.
	go func() {
		if err := store.Watch(ctx, func() {
			coordinator.Reconcile(store.Prefs())
		}); err != nil {
			log.Warn().Err(err).Msg("announcer: config watch unavailable")
		}
	}()

	// Status notices land in the log; a panel process can subscribe the same
	// way.
	statusCh := notifier.Subscribe()
	defer notifier.Unsubscribe(statusCh)
	go func() {
		for notice := range statusCh {
			if notice.Kind == announce.NoticeStatus {
				log.Info().Bool("errored", notice.Errored).Msg("status: " + notice.Status)
			}
		}
	}()

	br := bridge.New(cfg.Bridge.ListenAddr, bus)
	if err := br.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	// Best-effort teardown: retract anything still listed.
	coordinator.UnAnnounceAll()
	waitWithTimeout(coordinator, teardownGrace)
	return nil
}

func waitWithTimeout(c *announce.Coordinator, d time.Duration) {
	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		log.Warn().Msg("announcer: teardown timed out with directory calls in flight")
	}
}
