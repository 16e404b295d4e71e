package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/beatnet/serverbrowser/internal/events"
	"github.com/beatnet/serverbrowser/internal/proto"
	"github.com/beatnet/serverbrowser/internal/session"
)

// Frame is the envelope the game client sends per lifecycle signal.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Event names accepted on the wire.
const (
	EvOnlineMenuOpened      = "online_menu_opened"
	EvOnlineMenuClosed      = "online_menu_closed"
	EvMasterServerChanged   = "master_server_changed"
	EvConnectionTypeChanged = "connection_type_changed"
	EvServerCodeChanged     = "server_code_changed"
	EvLobbyStateChanged     = "lobby_state_changed"
	EvBeforeConnect         = "before_connect"
	EvSessionConnected      = "session_connected"
	EvSessionDisconnected   = "session_disconnected"
	EvPlayerConnected       = "player_connected"
	EvPlayerDisconnected    = "player_disconnected"
	EvStartingLevel         = "starting_level"
	EvPartyOwnerChanged     = "party_owner_changed"
)

// wirePlayer is a roster participant as serialized by the game client.
type wirePlayer struct {
	UserID            string   `json:"userId"`
	UserName          string   `json:"userName"`
	IsConnectionOwner bool     `json:"isConnectionOwner"`
	IsMe              bool     `json:"isMe"`
	IsKicked          bool     `json:"isKicked"`
	SortIndex         int      `json:"sortIndex"`
	Latency           float64  `json:"latency"`
	States            []string `json:"states"`
}

func (w wirePlayer) toPlayer() session.Player {
	states := make(map[string]bool, len(w.States))
	for _, s := range w.States {
		states[s] = true
	}
	return session.Player{
		UserID:            w.UserID,
		UserName:          w.UserName,
		IsConnectionOwner: w.IsConnectionOwner,
		IsMe:              w.IsMe,
		IsKicked:          w.IsKicked,
		SortIndex:         w.SortIndex,
		Latency:           w.Latency,
		States:            states,
	}
}

// DecodeFrame turns one wire frame into its typed bus event.
func DecodeFrame(data []byte) (any, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch f.Event {
	case EvOnlineMenuOpened:
		return events.OnlineMenuOpened{}, nil

	case EvOnlineMenuClosed:
		return events.OnlineMenuClosed{}, nil

	case EvMasterServerChanged:
		var d proto.Endpoint
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return events.MasterServerChanged{Endpoint: d}, nil

	case EvConnectionTypeChanged:
		var d struct {
			ConnectionType string `json:"connectionType"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return events.ConnectionTypeChanged{ConnectionType: d.ConnectionType}, nil

	case EvServerCodeChanged:
		var d struct {
			ServerCode string `json:"serverCode"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return events.ServerCodeChanged{ServerCode: d.ServerCode}, nil

	case EvLobbyStateChanged:
		var d struct {
			LobbyState string `json:"lobbyState"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return events.LobbyStateChanged{LobbyState: d.LobbyState}, nil

	case EvBeforeConnect:
		var d struct {
			ServerCode        string `json:"serverCode"`
			HostUserID        string `json:"hostUserId"`
			HostSecret        string `json:"hostSecret"`
			RemoteEndpoint    string `json:"remoteEndpoint"`
			IsDedicatedServer bool   `json:"isDedicatedServer"`
			SelectionMask     uint32 `json:"selectionMask"`
			MaxPlayers        int    `json:"maxPlayers"`
			ManagerID         string `json:"managerId"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return events.BeforeConnect{
			ServerCode:        d.ServerCode,
			HostUserID:        d.HostUserID,
			HostSecret:        d.HostSecret,
			RemoteEndpoint:    d.RemoteEndpoint,
			IsDedicatedServer: d.IsDedicatedServer,
			SelectionMask:     d.SelectionMask,
			MaxPlayers:        d.MaxPlayers,
			ManagerID:         d.ManagerID,
		}, nil

	case EvSessionConnected:
		var d struct {
			MaxPlayers      int        `json:"maxPlayers"`
			ConnectionOwner wirePlayer `json:"connectionOwner"`
			LocalPlayer     wirePlayer `json:"localPlayer"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return events.SessionConnected{
			MaxPlayers:      d.MaxPlayers,
			ConnectionOwner: d.ConnectionOwner.toPlayer(),
			LocalPlayer:     d.LocalPlayer.toPlayer(),
		}, nil

	case EvSessionDisconnected:
		var d struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return events.SessionDisconnected{Reason: d.Reason}, nil

	case EvPlayerConnected, EvPlayerDisconnected:
		var d wirePlayer
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		if f.Event == EvPlayerConnected {
			return events.PlayerConnected{Player: d.toPlayer()}, nil
		}
		return events.PlayerDisconnected{Player: d.toPlayer()}, nil

	case EvStartingLevel:
		var d struct {
			LevelID        string `json:"levelId"`
			SongName       string `json:"songName"`
			SongAuthor     string `json:"songAuthor"`
			Difficulty     int    `json:"difficulty"`
			Characteristic string `json:"characteristic"`
			Modifiers      string `json:"modifiers"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return events.StartingLevel{
			Level: session.Level{
				LevelID:    d.LevelID,
				SongName:   d.SongName,
				SongAuthor: d.SongAuthor,
			},
			Difficulty:     proto.Difficulty(d.Difficulty),
			Characteristic: d.Characteristic,
			Modifiers:      d.Modifiers,
		}, nil

	case EvPartyOwnerChanged:
		var d struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return events.PartyOwnerChanged{UserID: d.UserID}, nil

	default:
		return nil, fmt.Errorf("unknown event %q", f.Event)
	}
}
