package announce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatnet/serverbrowser/internal/config"
	"github.com/beatnet/serverbrowser/internal/events"
	"github.com/beatnet/serverbrowser/internal/proto"
	"github.com/beatnet/serverbrowser/internal/session"
)

type routerRig struct {
	fake     *fakeDirectory
	store    *config.Store
	coord    *Coordinator
	router   *Router
	bus      *events.Bus
	notifier *Notifier
	notices  chan Notice
}

func newRouterRig(t *testing.T, prefs config.Preferences) *routerRig {
	t.Helper()

	cfg := config.Default()
	cfg.Announce = prefs

	fake := &fakeDirectory{}
	store := config.NewStore("", cfg)
	notifier := NewNotifier()
	coord := NewCoordinator(fake, NewProjector(cfg.Client), session.New(), notifier)

	router := NewRouter(coord, store, notifier)
	router.SettleDelay = 20 * time.Millisecond

	bus := events.NewBus()
	router.Attach(bus)
	t.Cleanup(router.Detach)

	ch := notifier.Subscribe()
	t.Cleanup(func() { notifier.Unsubscribe(ch) })

	return &routerRig{
		fake:     fake,
		store:    store,
		coord:    coord,
		router:   router,
		bus:      bus,
		notifier: notifier,
		notices:  ch,
	}
}

// connectAsHost replays the event sequence of hosting a fresh lobby.
func (rg *routerRig) connectAsHost() {
	self := session.Player{UserID: "H", UserName: "Hosty", IsConnectionOwner: true, IsMe: true}
	rg.bus.Publish(events.ConnectionTypeChanged{ConnectionType: proto.ConnectionPartyHost})
	rg.bus.Publish(events.LobbyStateChanged{LobbyState: proto.LobbySetup})
	rg.bus.Publish(events.BeforeConnect{ServerCode: "ABC123", HostSecret: "sec", MaxPlayers: 10})
	rg.bus.Publish(events.SessionConnected{ConnectionOwner: self, LocalPlayer: self})
}

// drainActivityNotices counts buffered snapshot-changed notices.
func (rg *routerRig) drainActivityNotices() int {
	n := 0
	for {
		select {
		case notice := <-rg.notices:
			if notice.Kind == NoticeActivity {
				n++
			}
		default:
			return n
		}
	}
}

func TestRouterHostFlowAnnouncesOnce(t *testing.T) {
	rg := newRouterRig(t, config.Preferences{AnnounceToggle: true})

	rg.connectAsHost()
	rg.coord.Wait()

	require.Equal(t, 1, rg.fake.announceCount())
	listing := rg.fake.lastAnnounce()
	assert.Equal(t, "ABC123", listing.ServerCode)
	assert.Equal(t, 10, listing.PlayerLimit)
	assert.Equal(t, "Hosty", listing.OwnerName)
	assert.Equal(t, []string{"ABC123"}, rg.coord.AnnouncedCodes())
}

func TestRouterDisconnectResetsAndRetracts(t *testing.T) {
	rg := newRouterRig(t, config.Preferences{AnnounceToggle: true})

	rg.connectAsHost()
	rg.coord.Wait()
	require.Equal(t, []string{"ABC123"}, rg.coord.AnnouncedCodes())

	rg.bus.Publish(events.SessionDisconnected{Reason: "user quit"})
	rg.coord.Wait()

	require.Equal(t, 1, rg.fake.unannounceCount())
	assert.Equal(t, "ABC123", rg.fake.unannounces[0].ServerCode)
	assert.Empty(t, rg.coord.AnnouncedCodes())

	a := rg.router.Activity()
	assert.Equal(t, proto.ConnectionNone, a.ConnectionType)
	assert.Equal(t, proto.LobbyNone, a.LobbyState)
	assert.Empty(t, a.ServerCode)
	assert.Nil(t, a.Players)
	assert.Nil(t, a.LastPublished)
	assert.Equal(t, session.DefaultMaxPlayers, a.MaxPlayers)
}

func TestRouterIgnoresEmptyServerCode(t *testing.T) {
	rg := newRouterRig(t, config.Preferences{AnnounceToggle: true})

	rg.bus.Publish(events.ConnectionTypeChanged{ConnectionType: proto.ConnectionPartyHost})
	rg.drainActivityNotices()

	rg.bus.Publish(events.ServerCodeChanged{ServerCode: ""})

	assert.Zero(t, rg.drainActivityNotices(), "empty code must not trigger an update")
	assert.Empty(t, rg.router.Activity().ServerCode)

	// Once observed, the code is pinned until teardown.
	rg.bus.Publish(events.ServerCodeChanged{ServerCode: "XYZ789"})
	rg.bus.Publish(events.ServerCodeChanged{ServerCode: "QQQ111"})
	assert.Equal(t, "XYZ789", rg.router.Activity().ServerCode)
}

func TestRouterSkipsUnchangedValues(t *testing.T) {
	rg := newRouterRig(t, config.Preferences{})

	rg.bus.Publish(events.ConnectionTypeChanged{ConnectionType: proto.ConnectionPartyHost})
	rg.bus.Publish(events.ConnectionTypeChanged{ConnectionType: proto.ConnectionPartyHost})
	rg.bus.Publish(events.LobbyStateChanged{LobbyState: proto.LobbySetup})
	rg.bus.Publish(events.LobbyStateChanged{LobbyState: proto.LobbySetup})
	rg.bus.Publish(events.ServerCodeChanged{ServerCode: "XYZ789"})
	rg.bus.Publish(events.ServerCodeChanged{ServerCode: "XYZ789"})

	assert.Equal(t, 3, rg.drainActivityNotices(), "repeated values must be ignored")
}

func TestRouterLobbyTeardownStateIsSilent(t *testing.T) {
	rg := newRouterRig(t, config.Preferences{AnnounceToggle: true})

	rg.bus.Publish(events.LobbyStateChanged{LobbyState: proto.LobbySetup})
	rg.drainActivityNotices()

	rg.bus.Publish(events.LobbyStateChanged{LobbyState: proto.LobbyNone})

	assert.Zero(t, rg.drainActivityNotices(), "terminal lobby state must not reconcile")
	assert.Equal(t, proto.LobbyNone, rg.router.Activity().LobbyState)
}

func TestRouterRosterChangesRepublish(t *testing.T) {
	rg := newRouterRig(t, config.Preferences{AnnounceToggle: true})

	rg.connectAsHost()
	rg.coord.Wait()
	require.Equal(t, 1, rg.fake.announceCount())

	rg.bus.Publish(events.PlayerConnected{Player: session.Player{UserID: "B", UserName: "Friend", SortIndex: 1}})
	rg.coord.Wait()

	require.Equal(t, 2, rg.fake.announceCount())
	assert.Equal(t, 2, rg.fake.lastAnnounce().PlayerCount)

	rg.bus.Publish(events.PlayerDisconnected{Player: session.Player{UserID: "B"}})
	rg.coord.Wait()

	require.Equal(t, 3, rg.fake.announceCount())
	assert.Equal(t, 1, rg.fake.lastAnnounce().PlayerCount)
}

func TestRouterStartingLevelPublishesSong(t *testing.T) {
	rg := newRouterRig(t, config.Preferences{AnnounceToggle: true})

	rg.connectAsHost()
	rg.coord.Wait()

	rg.bus.Publish(events.StartingLevel{
		Level:      session.Level{LevelID: "custom_level_cafe", SongName: "Cafe Night", SongAuthor: "Nomi"},
		Difficulty: proto.DifficultyExpert,
	})
	rg.coord.Wait()

	listing := rg.fake.lastAnnounce()
	assert.Equal(t, "Cafe Night", listing.SongName)
	assert.Equal(t, "Nomi", listing.SongAuthor)
	assert.Equal(t, "Expert", listing.Difficulty)
}

func TestRouterTakeoverAdoptsAnnouncement(t *testing.T) {
	rg := newRouterRig(t, config.Preferences{AnnounceToggle: false})

	// Join an announced lobby as a regular client. "M" manages the party and
	// advertises an active announcement; "S" is the server bot.
	rg.bus.Publish(events.ConnectionTypeChanged{ConnectionType: proto.ConnectionPartyClient})
	rg.bus.Publish(events.LobbyStateChanged{LobbyState: proto.LobbySetup})
	rg.bus.Publish(events.BeforeConnect{ServerCode: "ABC123", HostSecret: "sec", MaxPlayers: 5, ManagerID: "M"})
	rg.bus.Publish(events.SessionConnected{
		ConnectionOwner: session.Player{UserID: "S", UserName: "server", IsConnectionOwner: true},
		LocalPlayer:     session.Player{UserID: "L", UserName: "Louie", IsMe: true, SortIndex: 1},
	})
	rg.bus.Publish(events.PlayerConnected{Player: session.Player{
		UserID:    "M",
		UserName:  "Mandy",
		SortIndex: 2,
		States:    map[string]bool{session.StateLobbyAnnounce: true},
	}})
	rg.coord.Wait()
	require.Zero(t, rg.fake.announceCount(), "clients never announce")

	rg.drainActivityNotices()

	// The manager leaves and the lobby promotes us.
	rg.bus.Publish(events.PartyOwnerChanged{UserID: "L"})

	a := rg.router.Activity()
	assert.Equal(t, proto.ConnectionPartyHost, a.ConnectionType)
	assert.True(t, rg.store.Prefs().AnnounceToggle, "takeover flips the announce switch on")

	// Two reconcile passes: one immediately, one after the settle delay so the
	// outgoing host's late un-announce cannot erase the listing.
	seen := 0
	require.Eventually(t, func() bool {
		seen += rg.drainActivityNotices()
		return seen >= 2
	}, time.Second, 5*time.Millisecond, "expected the delayed settle pass")

	rg.coord.Wait()
	require.GreaterOrEqual(t, rg.fake.announceCount(), 1)
	for _, listing := range rg.fake.announces {
		assert.Equal(t, "ABC123", listing.ServerCode)
	}
	assert.Equal(t, []string{"ABC123"}, rg.coord.AnnouncedCodes())
}

func TestRouterManagerChangeToSomeoneElse(t *testing.T) {
	rg := newRouterRig(t, config.Preferences{AnnounceToggle: false})

	rg.bus.Publish(events.ConnectionTypeChanged{ConnectionType: proto.ConnectionPartyClient})
	rg.bus.Publish(events.BeforeConnect{ServerCode: "ABC123", MaxPlayers: 5, ManagerID: "M"})
	rg.bus.Publish(events.SessionConnected{
		ConnectionOwner: session.Player{UserID: "S", UserName: "server", IsConnectionOwner: true},
		LocalPlayer:     session.Player{UserID: "L", UserName: "Louie", IsMe: true, SortIndex: 1},
	})

	rg.bus.Publish(events.PartyOwnerChanged{UserID: "Q"})

	a := rg.router.Activity()
	assert.Equal(t, proto.ConnectionPartyClient, a.ConnectionType, "promotion only applies to ourselves")
	assert.Equal(t, "Q", a.ManagerID)
	assert.False(t, rg.store.Prefs().AnnounceToggle)
}
