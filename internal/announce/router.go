package announce

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beatnet/serverbrowser/internal/config"
	"github.com/beatnet/serverbrowser/internal/events"
	"github.com/beatnet/serverbrowser/internal/proto"
	"github.com/beatnet/serverbrowser/internal/session"
)

// DefaultSettleDelay is how long the router waits after an automatic host
// takeover before reconciling a second time. The outgoing host's un-announce
// can reach the directory after our announce and erase it; the delayed pass
// re-publishes the listing.
const DefaultSettleDelay = 1500 * time.Millisecond

// Router folds the engine-bridge event stream into the activity snapshot and
// triggers a reconciliation on every relevant change. It is the only writer
// of the snapshot; mutations happen under the coordinator's lock.
type Router struct {
	coord    *Coordinator
	activity *session.Activity
	store    *config.Store
	notifier *Notifier

	// SettleDelay overrides DefaultSettleDelay; tests shrink it.
	SettleDelay time.Duration

	// wasAnnounced remembers whether the lobby carried an active announce
	// the last time the roster or manager changed. It decides whether a
	// host takeover adopts the previous manager's announcement.
	wasAnnounced bool

	sub *events.Subscription
}

func NewRouter(coord *Coordinator, store *config.Store, notifier *Notifier) *Router {
	return &Router{
		coord:       coord,
		activity:    coord.activity,
		store:       store,
		notifier:    notifier,
		SettleDelay: DefaultSettleDelay,
	}
}

// Attach subscribes the router to the bus. Call Detach to release the
// handler; events published after Detach are ignored.
func (r *Router) Attach(bus *events.Bus) {
	r.sub = bus.Subscribe(r.Handle)
}

func (r *Router) Detach() {
	if r.sub != nil {
		r.sub.Close()
		r.sub = nil
	}
}

// Activity returns the snapshot the router maintains. Read it only between
// events or from notices; the router owns all mutation.
func (r *Router) Activity() *session.Activity { return r.activity }

// Handle applies one lifecycle event to the snapshot. Events arriving on
// different goroutines are serialized by the coordinator's lock, preserving
// publish order from the bus.
func (r *Router) Handle(evt any) {
	r.coord.mu.Lock()
	defer r.coord.mu.Unlock()

	a := r.activity

	switch e := evt.(type) {
	case events.OnlineMenuOpened:
		a.InOnlineMenu = true
		r.updateLocked()

	case events.OnlineMenuClosed:
		a.InOnlineMenu = false
		r.updateLocked()

	case events.MasterServerChanged:
		if e.Endpoint.IsZero() || e.Endpoint == a.MasterServer {
			return
		}
		a.MasterServer = e.Endpoint
		r.updateLocked()

	case events.ConnectionTypeChanged:
		if a.ConnectionType == e.ConnectionType {
			return
		}
		a.ConnectionType = e.ConnectionType
		r.updateLocked()

	case events.LobbyStateChanged:
		if a.LobbyState == e.LobbyState {
			return
		}
		a.LobbyState = e.LobbyState
		// Terminal transitions are teardown noise; announcing during them
		// would race the disconnect reset.
		if a.LobbyState != proto.LobbyNone {
			r.updateLocked()
		}

	case events.ServerCodeChanged:
		// The code is immutable once observed; only teardown clears it.
		if e.ServerCode == "" || a.ServerCode != "" {
			return
		}
		a.ServerCode = e.ServerCode
		r.updateLocked()

	case events.BeforeConnect:
		a.ServerCode = e.ServerCode
		a.HostUserID = e.HostUserID
		a.HostSecret = e.HostSecret
		a.Endpoint = e.RemoteEndpoint
		a.IsDedicatedServer = e.IsDedicatedServer
		a.SelectionMask = e.SelectionMask
		if e.MaxPlayers > 0 {
			a.MaxPlayers = e.MaxPlayers
		}
		a.ManagerID = e.ManagerID
		a.Players = make([]session.Player, 0, a.MaxPlayers)
		r.updateLocked()

	case events.SessionConnected:
		a.SessionStartedAt = time.Now()
		if e.MaxPlayers > 0 {
			a.MaxPlayers = e.MaxPlayers
		}
		a.HostUserID = e.ConnectionOwner.UserID
		if a.Players == nil {
			a.Players = make([]session.Player, 0, a.MaxPlayers)
		} else {
			a.Players = a.Players[:0]
		}
		a.Name = e.ConnectionOwner.UserName + "'s game"
		r.playerConnectedLocked(e.LocalPlayer)
		r.playerConnectedLocked(e.ConnectionOwner)

	case events.SessionDisconnected:
		log.Info().Str("reason", e.Reason).Msg("router: session disconnected")
		a.Reset()
		r.wasAnnounced = false
		r.updateLocked()

	case events.PlayerConnected:
		r.playerConnectedLocked(e.Player)

	case events.PlayerDisconnected:
		if a.Players == nil {
			return
		}
		a.RemovePlayer(e.Player.UserID)
		r.updateLocked()

	case events.StartingLevel:
		level := e.Level
		a.CurrentLevel = &level
		a.CurrentDifficulty = e.Difficulty
		a.Characteristic = e.Characteristic
		a.Modifiers = e.Modifiers
		r.updateLocked()

	case events.PartyOwnerChanged:
		r.partyOwnerChangedLocked(e.UserID)
	}
}

func (r *Router) playerConnectedLocked(p session.Player) {
	if !r.activity.AddPlayer(p) {
		return
	}
	r.wasAnnounced = r.activity.IsAnnounced()
	r.updateLocked()
}

func (r *Router) partyOwnerChangedLocked(userID string) {
	a := r.activity
	if a.ManagerID == userID {
		return
	}
	a.ManagerID = userID

	didTakeOver := false
	local := a.LocalPlayer()
	if local != nil && local.UserID == userID && a.ConnectionType == proto.ConnectionPartyClient {
		// We are transitioning from client to host.
		log.Info().Bool("wasAnnounced", r.wasAnnounced).Msg("router: local player promoted to party leader")
		a.ConnectionType = proto.ConnectionPartyHost

		if r.wasAnnounced {
			// The previous manager already published this lobby; adopt the
			// announcement instead of letting it lapse.
			r.store.SetAnnounceToggle(true)
			didTakeOver = true
		}
	}

	r.wasAnnounced = a.IsAnnounced()
	r.updateLocked()

	if didTakeOver {
		delay := r.SettleDelay
		if delay <= 0 {
			delay = DefaultSettleDelay
		}
		time.AfterFunc(delay, func() {
			r.coord.mu.Lock()
			defer r.coord.mu.Unlock()
			r.updateLocked()
		})
	}
}

// updateLocked raises the activity-updated notice and reconciles. Observers
// may momentarily see a stale or ineligible status; the subsequent status
// notice settles it.
func (r *Router) updateLocked() {
	r.notifier.publish(Notice{
		Kind:     NoticeActivity,
		Snapshot: r.snapshotCopyLocked(),
	})
	r.coord.reconcileLocked(r.store.Prefs())
}

// snapshotCopyLocked clones the activity for observers so later mutations
// do not race their reads.
func (r *Router) snapshotCopyLocked() *session.Activity {
	cp := *r.activity
	if r.activity.Players != nil {
		cp.Players = make([]session.Player, len(r.activity.Players))
		copy(cp.Players, r.activity.Players)
	}
	return &cp
}
