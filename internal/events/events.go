// Package events carries the engine-bridge lifecycle signals into the core.
package events

import (
	"github.com/beatnet/serverbrowser/internal/proto"
	"github.com/beatnet/serverbrowser/internal/session"
)

// Inbound signals. Each carries exactly the payload the core consumes; the
// bridge decodes engine frames into these.

type OnlineMenuOpened struct{}

type OnlineMenuClosed struct{}

type MasterServerChanged struct {
	Endpoint proto.Endpoint
}

type ConnectionTypeChanged struct {
	ConnectionType string
}

type ServerCodeChanged struct {
	ServerCode string
}

type LobbyStateChanged struct {
	LobbyState string
}

// BeforeConnect fires when the client starts connecting to a game server.
type BeforeConnect struct {
	ServerCode        string
	HostUserID        string
	HostSecret        string
	RemoteEndpoint    string
	IsDedicatedServer bool
	SelectionMask     uint32
	MaxPlayers        int
	ManagerID         string
}

type SessionConnected struct {
	MaxPlayers      int
	ConnectionOwner session.Player
	LocalPlayer     session.Player
}

type SessionDisconnected struct {
	Reason string
}

type PlayerConnected struct {
	Player session.Player
}

type PlayerDisconnected struct {
	Player session.Player
}

type StartingLevel struct {
	Level          session.Level
	Difficulty     proto.Difficulty
	Characteristic string
	Modifiers      string
}

type PartyOwnerChanged struct {
	UserID string
}
