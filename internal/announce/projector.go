package announce

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/beatnet/serverbrowser/internal/config"
	"github.com/beatnet/serverbrowser/internal/proto"
	"github.com/beatnet/serverbrowser/internal/session"
)

// ServerTypeRule classifies a session against one known backend. Rules are
// evaluated in order; the first match decides. New backend partners slot in
// as additional rules without touching the projector.
type ServerTypeRule struct {
	Name string
	// Match reports whether this rule applies to the session.
	Match func(a *session.Activity) bool
	// QuickPlay and Default are the classifications for quick-play and
	// player-hosted variants respectively.
	QuickPlay string
	Default   string
}

// DefaultServerTypeRules is the stock decision table: alternate backends are
// recognized by master-server hostname or host-bot username, then the
// official dedicated flag decides between the vanilla variants.
func DefaultServerTypeRules() []ServerTypeRule {
	return []ServerTypeRule{
		{
			Name: "beattogether",
			Match: func(a *session.Activity) bool {
				return a.IsDedicatedServer && strings.Contains(a.MasterServer.Host, "beattogether")
			},
			QuickPlay: proto.ServerTypeBeatTogetherQuickplay,
			Default:   proto.ServerTypeBeatTogetherDedicated,
		},
		{
			Name: "beatdedi",
			Match: func(a *session.Activity) bool {
				host := a.HostPlayer()
				return host != nil && strings.HasPrefix(host.UserName, "BeatDedi/")
			},
			QuickPlay: proto.ServerTypeBeatDediQuickplay,
			Default:   proto.ServerTypeBeatDediCustom,
		},
		{
			Name: "vanilla-dedicated",
			Match: func(a *session.Activity) bool {
				return a.IsDedicatedServer
			},
			QuickPlay: proto.ServerTypeVanillaQuickplay,
			Default:   proto.ServerTypeVanillaDedicated,
		},
	}
}

// Projector derives the wire-format announce payload from the live snapshot.
type Projector struct {
	Rules  []ServerTypeRule
	Client config.Client
}

func NewProjector(client config.Client) *Projector {
	return &Projector{
		Rules:  DefaultServerTypeRules(),
		Client: client,
	}
}

// ServerType classifies the session. The player-host fallback should never
// be reached on current game versions; it is logged as anomalous.
func (p *Projector) ServerType(a *session.Activity) string {
	for _, rule := range p.Rules {
		if rule.Match(a) {
			if a.IsQuickPlay() {
				return rule.QuickPlay
			}
			return rule.Default
		}
	}
	log.Warn().Str("serverCode", a.ServerCode).Msg("projector: no server type rule matched, falling back to player_host")
	return proto.ServerTypePlayerHost
}

// Build projects an eligible snapshot into a directory listing. The caller
// must have confirmed eligibility; a missing server code or host player here
// is an invariant violation and returns an error.
func (p *Projector) Build(a *session.Activity, prefs config.Preferences) (proto.DirectoryListing, error) {
	if a.ServerCode == "" {
		return proto.DirectoryListing{}, errors.New("project listing: no server code")
	}
	host := a.HostPlayer()
	if host == nil {
		return proto.DirectoryListing{}, errors.New("project listing: no host player")
	}

	listing := proto.DirectoryListing{
		ServerCode:       a.ServerCode,
		GameName:         gameName(a, prefs, host),
		OwnerID:          host.UserID,
		OwnerName:        host.UserName,
		PlayerCount:      a.CurrentPlayerCount(),
		PlayerLimit:      a.MaxPlayers,
		IsModded:         a.IsModded(),
		LobbyState:       a.LobbyState,
		Difficulty:       a.DetermineDifficulty().String(),
		Platform:         p.Client.Platform,
		MasterServerHost: a.MasterServer.Host,
		MasterServerPort: a.MasterServer.Port,
		ModVersion:       p.Client.ModVersion,
		ServerType:       p.ServerType(a),
		HostSecret:       a.HostSecret,
		Endpoint:         a.Endpoint,
		ManagerID:        a.ManagerID,
		Players:          rosterFor(a),
	}

	if a.CurrentLevel != nil {
		listing.LevelID = a.CurrentLevel.LevelID
		listing.SongName = a.CurrentLevel.SongName
		listing.SongAuthor = a.CurrentLevel.SongAuthor
	}

	return listing, nil
}

// rosterFor emits one entry per player, in roster order. The announcing
// client marks itself, which is not necessarily the host.
func rosterFor(a *session.Activity) []proto.ListingPlayer {
	players := make([]proto.ListingPlayer, 0, len(a.Players))
	for _, p := range a.Players {
		players = append(players, proto.ListingPlayer{
			SortIndex:   p.SortIndex,
			UserID:      p.UserID,
			UserName:    p.UserName,
			IsHost:      p.IsConnectionOwner,
			IsAnnouncer: p.IsMe,
			Latency:     p.Latency,
		})
	}
	return players
}

func gameName(a *session.Activity, prefs config.Preferences, host *session.Player) string {
	if name := strings.TrimSpace(prefs.CustomGameName); name != "" {
		return name
	}
	if a.Name != "" {
		return a.Name
	}
	return fmt.Sprintf("%s's game", host.UserName)
}
