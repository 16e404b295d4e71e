package proto

// Connection roles for the local player within a multiplayer session.
const (
	ConnectionNone        = "none"
	ConnectionPartyHost   = "party_host"
	ConnectionPartyClient = "party_client"
	ConnectionQuickPlay   = "quick_play"
)

// Lobby states as reported by the game client.
const (
	LobbyNone         = "none"
	LobbySetup        = "lobby_setup"
	LobbyCountdown    = "lobby_countdown"
	LobbyGameStarting = "game_starting"
	LobbyGameRunning  = "game_running"
	LobbyError        = "error"
)

// Server type classifications sent with an announce.
const (
	ServerTypeBeatTogetherQuickplay = "beattogether_quickplay"
	ServerTypeBeatTogetherDedicated = "beattogether_dedicated"
	ServerTypeBeatDediQuickplay     = "beatdedi_quickplay"
	ServerTypeBeatDediCustom        = "beatdedi_custom"
	ServerTypeVanillaQuickplay      = "vanilla_quickplay"
	ServerTypeVanillaDedicated      = "vanilla_dedicated"
	ServerTypePlayerHost            = "player_host"
)

// Difficulty is the song difficulty ladder. The zero value means "not chosen".
type Difficulty int

const (
	DifficultyNone Difficulty = iota
	DifficultyEasy
	DifficultyNormal
	DifficultyHard
	DifficultyExpert
	DifficultyExpertPlus
)

var difficultyNames = map[Difficulty]string{
	DifficultyNone:       "",
	DifficultyEasy:       "Easy",
	DifficultyNormal:     "Normal",
	DifficultyHard:       "Hard",
	DifficultyExpert:     "Expert",
	DifficultyExpertPlus: "Expert+",
}

func (d Difficulty) String() string { return difficultyNames[d] }

// DifficultyFromMask decodes a difficulty-selection bitmask (bit n set means
// difficulty n+1 is allowed) into the highest selected difficulty.
// Returns DifficultyNone for an empty mask.
func DifficultyFromMask(mask uint32) Difficulty {
	best := DifficultyNone
	for d := DifficultyEasy; d <= DifficultyExpertPlus; d++ {
		if mask&(1<<uint(d-1)) != 0 {
			best = d
		}
	}
	return best
}

// Endpoint is a host:port pair for a master server or game server.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (e Endpoint) IsZero() bool { return e.Host == "" && e.Port == 0 }

// ListingPlayer is one roster entry inside a directory listing.
type ListingPlayer struct {
	SortIndex   int     `json:"sortIndex"`
	UserID      string  `json:"userId"`
	UserName    string  `json:"userName"`
	IsHost      bool    `json:"isHost"`
	IsAnnouncer bool    `json:"isAnnouncer"`
	Latency     float64 `json:"latency"`
}

// DirectoryListing is the announce payload sent to the directory, and the
// record handed back to observers after a successful announce (with Key set).
type DirectoryListing struct {
	Key              string          `json:"key,omitempty"` // assigned by the directory
	ServerCode       string          `json:"serverCode"`
	GameName         string          `json:"gameName"`
	OwnerID          string          `json:"ownerId"`
	OwnerName        string          `json:"ownerName"`
	PlayerCount      int             `json:"playerCount"`
	PlayerLimit      int             `json:"playerLimit"`
	IsModded         bool            `json:"isModded"`
	LobbyState       string          `json:"lobbyState"`
	LevelID          string          `json:"levelId,omitempty"`
	SongName         string          `json:"songName,omitempty"`
	SongAuthor       string          `json:"songAuthor,omitempty"`
	Difficulty       string          `json:"difficulty,omitempty"`
	Platform         string          `json:"platform"`
	MasterServerHost string          `json:"masterServerHost,omitempty"`
	MasterServerPort int             `json:"masterServerPort,omitempty"`
	ModVersion       string          `json:"modVersion,omitempty"`
	ServerType       string          `json:"serverType"`
	HostSecret       string          `json:"hostSecret,omitempty"`
	Endpoint         string          `json:"endpoint,omitempty"`
	ManagerID        string          `json:"managerId,omitempty"`
	Players          []ListingPlayer `json:"players"`
}

// AnnounceResponse is the directory's reply to an announce.
type AnnounceResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message,omitempty"`
}

// UnannounceRequest identifies a previously announced lobby for removal.
type UnannounceRequest struct {
	ServerCode string `json:"serverCode"`
	OwnerID    string `json:"ownerId"`
	HostSecret string `json:"hostSecret,omitempty"`
}

// UnannounceResponse reports whether the directory entry is confirmed gone.
type UnannounceResponse struct {
	Success bool `json:"success"`
	Removed bool `json:"removed"`
}

// BrowseResult is one page of public lobbies from the directory.
type BrowseResult struct {
	Count   int                `json:"count"`
	Offset  int                `json:"offset"`
	Lobbies []DirectoryListing `json:"lobbies"`
}
