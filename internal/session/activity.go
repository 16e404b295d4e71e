// Package session holds the live summary of the local multiplayer session.
package session

import (
	"time"

	"github.com/beatnet/serverbrowser/internal/proto"
)

// DefaultMaxPlayers is the lobby capacity assumed until the server reports one.
const DefaultMaxPlayers = 5

// Capability states a player can advertise to the lobby.
const (
	StateModded        = "modded"
	StateCustomSongs   = "customsongs"
	StateLobbyAnnounce = "lobbyannounce"
)

// Player is one connected participant as reported by the game.
type Player struct {
	UserID            string
	UserName          string
	IsConnectionOwner bool
	IsMe              bool
	IsKicked          bool
	SortIndex         int
	Latency           float64
	States            map[string]bool
}

// HasState reports whether the player advertises the given capability.
func (p Player) HasState(state string) bool { return p.States[state] }

// Level describes the song selected for the running or upcoming round.
type Level struct {
	LevelID    string
	SongName   string
	SongAuthor string
}

// Activity is the executive summary of the current local multiplayer state.
// It is mutated only by the announce router, under the router's lock; other
// components read it during a single reconciliation pass.
type Activity struct {
	InOnlineMenu      bool
	Name              string
	MasterServer      proto.Endpoint
	ConnectionType    string
	LobbyState        string
	ServerCode        string
	HostUserID        string
	HostSecret        string
	Endpoint          string
	IsDedicatedServer bool
	SelectionMask     uint32
	MaxPlayers        int
	Players           []Player
	CurrentLevel      *Level
	CurrentDifficulty proto.Difficulty
	Characteristic    string
	Modifiers         string
	SessionStartedAt  time.Time
	ManagerID         string

	// LastPublished is the most recent listing the directory acknowledged,
	// including the key it assigned.
	LastPublished *proto.DirectoryListing
}

// New returns an Activity with session defaults applied.
func New() *Activity {
	return &Activity{
		ConnectionType: proto.ConnectionNone,
		LobbyState:     proto.LobbyNone,
		MaxPlayers:     DefaultMaxPlayers,
	}
}

// Reset clears every transient session field back to its default. Menu and
// master-server state survive a disconnect; everything tied to the session
// does not.
func (a *Activity) Reset() {
	a.Name = ""
	a.ConnectionType = proto.ConnectionNone
	a.LobbyState = proto.LobbyNone
	a.ServerCode = ""
	a.HostUserID = ""
	a.HostSecret = ""
	a.Endpoint = ""
	a.IsDedicatedServer = false
	a.SelectionMask = 0
	a.MaxPlayers = DefaultMaxPlayers
	a.Players = nil
	a.CurrentLevel = nil
	a.CurrentDifficulty = proto.DifficultyNone
	a.Characteristic = ""
	a.Modifiers = ""
	a.SessionStartedAt = time.Time{}
	a.ManagerID = ""
	a.LastPublished = nil
}

// CurrentPlayerCount counts seated, non-kicked players. An empty roster still
// reports 1 so a freshly created lobby shows plausible occupancy.
func (a *Activity) CurrentPlayerCount() int {
	if len(a.Players) == 0 {
		return 1
	}
	n := 0
	for _, p := range a.Players {
		if p.SortIndex >= 0 && !p.IsKicked {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

// IsInMultiplayer reports whether a session is live (connected, in a lobby,
// and not in the error state).
func (a *Activity) IsInMultiplayer() bool {
	return a.ConnectionType != proto.ConnectionNone &&
		a.LobbyState != proto.LobbyNone &&
		a.LobbyState != proto.LobbyError
}

func (a *Activity) IsInGameplay() bool { return a.LobbyState == proto.LobbyGameRunning }

func (a *Activity) IsHost() bool { return a.ConnectionType == proto.ConnectionPartyHost }

func (a *Activity) IsQuickPlay() bool { return a.ConnectionType == proto.ConnectionQuickPlay }

// IsModded reports whether the host or party leader runs a modded client.
func (a *Activity) IsModded() bool {
	for _, p := range []*Player{a.HostPlayer(), a.PartyLeader()} {
		if p != nil && (p.HasState(StateModded) || p.HasState(StateCustomSongs)) {
			return true
		}
	}
	return false
}

// IsAnnounced reports whether the host or party leader advertises an active
// lobby announcement.
func (a *Activity) IsAnnounced() bool {
	for _, p := range []*Player{a.HostPlayer(), a.PartyLeader()} {
		if p != nil && p.HasState(StateLobbyAnnounce) {
			return true
		}
	}
	return false
}

// HostPlayer returns the first player flagged as connection owner, or nil.
func (a *Activity) HostPlayer() *Player {
	for i := range a.Players {
		if a.Players[i].IsConnectionOwner {
			return &a.Players[i]
		}
	}
	return nil
}

// PartyLeader returns the player currently holding the manager role, or nil.
func (a *Activity) PartyLeader() *Player {
	if a.ManagerID == "" {
		return nil
	}
	for i := range a.Players {
		if a.Players[i].UserID == a.ManagerID {
			return &a.Players[i]
		}
	}
	return nil
}

// LocalPlayer returns the player flagged as ourselves, or nil.
func (a *Activity) LocalPlayer() *Player {
	for i := range a.Players {
		if a.Players[i].IsMe {
			return &a.Players[i]
		}
	}
	return nil
}

// WeArePartyLeader reports whether the local player controls the party.
func (a *Activity) WeArePartyLeader() bool {
	if a.IsHost() {
		return true
	}
	lp := a.LocalPlayer()
	return lp != nil && lp.UserID == a.ManagerID
}

// DetermineDifficulty resolves the effective lobby difficulty: the explicit
// selection when present, otherwise the selection-mask decode.
func (a *Activity) DetermineDifficulty() proto.Difficulty {
	if a.CurrentDifficulty != proto.DifficultyNone {
		return a.CurrentDifficulty
	}
	return proto.DifficultyFromMask(a.SelectionMask)
}

// AddPlayer appends a player unless the roster is uninitialized or already
// contains that user id. Returns true when the roster changed.
func (a *Activity) AddPlayer(p Player) bool {
	if a.Players == nil {
		return false
	}
	for _, existing := range a.Players {
		if existing.UserID == p.UserID {
			return false
		}
	}
	a.Players = append(a.Players, p)
	return true
}

// RemovePlayer drops the player with the given user id. Returns true when the
// roster changed.
func (a *Activity) RemovePlayer(userID string) bool {
	for i := range a.Players {
		if a.Players[i].UserID == userID {
			a.Players = append(a.Players[:i], a.Players[i+1:]...)
			return true
		}
	}
	return false
}
