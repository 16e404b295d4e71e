package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beatnet/serverbrowser/internal/config"
	"github.com/beatnet/serverbrowser/internal/proto"
	"github.com/beatnet/serverbrowser/internal/session"
	"github.com/beatnet/serverbrowser/internal/util"
)

// DirectoryClient is the remote server-browser API as the coordinator needs
// it. Both operations are idempotent per server code; failures come back as
// values and never as panics.
type DirectoryClient interface {
	Announce(ctx context.Context, listing proto.DirectoryListing) (proto.AnnounceResponse, error)
	UnAnnounce(ctx context.Context, req proto.UnannounceRequest) (bool, error)
}

// state tracks one session code's standing with the directory. Entries live
// from the first announce attempt until an un-announce is confirmed; several
// may coexist transiently across a rapid rejoin.
type state struct {
	ServerCode  string
	OwnerID     string
	HostSecret  string
	DidAnnounce bool
	DidFail     bool
	LastSuccess time.Time
	LastFailure time.Time

	// lastPayload is the body of the most recent acknowledged announce, kept
	// to suppress resending an identical listing.
	lastPayload []byte
}

// Coordinator reconciles the live snapshot against the directory: it decides
// eligibility on every change, issues announce/un-announce calls, and tracks
// per-code state. All snapshot mutation and evaluation happen under mu; the
// network calls run on goroutines and re-acquire mu only to record results.
type Coordinator struct {
	mu sync.Mutex

	client    DirectoryClient
	projector *Projector
	activity  *session.Activity
	notifier  *Notifier

	states  map[string]*state
	status  string
	errored bool

	timeout time.Duration
	wg      sync.WaitGroup
}

func NewCoordinator(client DirectoryClient, projector *Projector, activity *session.Activity, notifier *Notifier) *Coordinator {
	return &Coordinator{
		client:    client,
		projector: projector,
		activity:  activity,
		notifier:  notifier,
		states:    map[string]*state{},
		status:    "Not announced",
		errored:   true,
		timeout:   util.DefaultRequestTimeout,
	}
}

// SetTimeout overrides the per-call directory timeout.
func (c *Coordinator) SetTimeout(d time.Duration) { c.timeout = d }

// Status returns the latest reconciliation outcome: the user-facing status
// text and whether it represents an error.
func (c *Coordinator) Status() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.errored
}

// Reconcile evaluates eligibility for the current snapshot and drives the
// directory toward it. Nothing escapes this boundary: unexpected faults are
// reported as a generic error status so event delivery is never disrupted.
func (c *Coordinator) Reconcile(prefs config.Preferences) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcileLocked(prefs)
}

func (c *Coordinator) reconcileLocked(prefs config.Preferences) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("announce: reconcile fault")
			c.setErrorLocked("Error: could not send announce", true)
		}
	}()

	decision := Evaluate(c.activity, prefs)
	if decision.Verdict != Eligible {
		c.setErrorLocked(decision.Reason, true)
		return
	}

	listing, err := c.projector.Build(c.activity, prefs)
	if err != nil {
		// Eligibility said yes but projection disagreed; treat as a fault.
		log.Error().Err(err).Msg("announce: projection failed after eligibility")
		c.setErrorLocked("Error: could not send announce", true)
		return
	}

	payload, err := json.Marshal(listing)
	if err != nil {
		log.Error().Err(err).Msg("announce: encode listing")
		c.setErrorLocked("Error: could not send announce", true)
		return
	}

	st := c.stateForLocked(listing)
	if st.DidAnnounce && bytes.Equal(st.lastPayload, payload) {
		// Already announced with identical content; nothing to send.
		c.setStatusLocked("Players can now join from the browser!", false)
		return
	}

	c.setStatusLocked("Announcing your game to the world...", false)

	c.wg.Add(1)
	go c.doAnnounce(listing, payload)
}

// doAnnounce performs one directory announce and records the result against
// the state entry for the listing's code. Completion order does not matter:
// results are keyed by the code captured at send time.
func (c *Coordinator) doAnnounce(listing proto.DirectoryListing, payload []byte) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.client.Announce(ctx, listing)

	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.stateForLocked(listing)
	if err != nil {
		st.DidFail = true
		st.LastFailure = time.Now()
		log.Warn().Err(err).Str("serverCode", listing.ServerCode).Msg("announce: directory call failed")
		c.setStatusLocked("Failed to announce to the server browser!", true)
		return
	}

	st.DidAnnounce = true
	st.DidFail = false
	st.LastSuccess = time.Now()
	st.lastPayload = payload

	listing.Key = resp.Key
	c.activity.LastPublished = &listing

	log.Info().Str("serverCode", listing.ServerCode).Str("key", resp.Key).Msg("announce: listed")
	c.setStatusLocked("Players can now join from the browser!", false)
	c.notifier.publish(Notice{
		Kind:    NoticeListing,
		Status:  c.status,
		Errored: c.errored,
		Listing: &listing,
	})
}

// UnAnnounceAll retracts every known announcement, once each. Entries whose
// removal the directory confirms are dropped; failures stay behind for the
// next opportunistic retry. The network calls run off-thread.
func (c *Coordinator) UnAnnounceAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unAnnounceAllLocked()
}

func (c *Coordinator) unAnnounceOne(st *state) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	removed, err := c.client.UnAnnounce(ctx, proto.UnannounceRequest{
		ServerCode: st.ServerCode,
		OwnerID:    st.OwnerID,
		HostSecret: st.HostSecret,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil || !removed {
		st.DidFail = true
		st.LastFailure = time.Now()
		log.Warn().Err(err).Str("serverCode", st.ServerCode).Msg("announce: un-announce did not confirm removal")
		return
	}

	delete(c.states, st.ServerCode)
	log.Info().Str("serverCode", st.ServerCode).Msg("announce: listing removed")
}

// Wait blocks until all in-flight directory calls have completed. Tests and
// teardown use it to observe a quiescent coordinator instead of sleeping.
func (c *Coordinator) Wait() { c.wg.Wait() }

// AnnouncedCodes reports the codes with a standing successful announce.
func (c *Coordinator) AnnouncedCodes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	codes := make([]string, 0, len(c.states))
	for code, st := range c.states {
		if st.DidAnnounce {
			codes = append(codes, code)
		}
	}
	return codes
}

// stateForLocked returns the entry for the listing's code, creating it on
// the first announce attempt.
func (c *Coordinator) stateForLocked(listing proto.DirectoryListing) *state {
	st, ok := c.states[listing.ServerCode]
	if !ok {
		st = &state{
			ServerCode: listing.ServerCode,
			OwnerID:    listing.OwnerID,
			HostSecret: listing.HostSecret,
		}
		c.states[listing.ServerCode] = st
	}
	return st
}

// setErrorLocked reports a not-announced outcome and, unless told otherwise,
// retracts any standing announcements.
func (c *Coordinator) setErrorLocked(statusText string, unAnnounce bool) {
	c.setStatusLocked(statusText, true)
	if unAnnounce {
		c.unAnnounceAllLocked()
	}
}

// unAnnounceAllLocked is UnAnnounceAll for callers already holding mu.
func (c *Coordinator) unAnnounceAllLocked() {
	pending := make([]*state, 0, len(c.states))
	for _, st := range c.states {
		pending = append(pending, st)
	}
	if len(pending) == 0 {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for _, st := range pending {
			c.unAnnounceOne(st)
		}
	}()
}

func (c *Coordinator) setStatusLocked(text string, errored bool) {
	if c.status == text && c.errored == errored {
		return
	}
	c.status = text
	c.errored = errored
	c.notifier.publish(Notice{
		Kind:    NoticeStatus,
		Status:  text,
		Errored: errored,
	})
}
