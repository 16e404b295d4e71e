// Package announce decides when the local lobby is advertised to the server
// browser and drives the announce/un-announce protocol against it.
package announce

import (
	"github.com/beatnet/serverbrowser/internal/config"
	"github.com/beatnet/serverbrowser/internal/proto"
	"github.com/beatnet/serverbrowser/internal/session"
)

// Verdict is the outcome of an eligibility evaluation.
type Verdict int

const (
	// Ineligible: the session cannot be announced in its current shape.
	Ineligible Verdict = iota
	// Disabled: announcing is possible but switched off by the user.
	Disabled
	// Eligible: the session should be announced.
	Eligible
)

// Decision pairs a verdict with its user-facing reason.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// Evaluate decides from scratch whether the current session should be
// announced. It is a pure function of the snapshot and preferences: rules are
// checked in order and the first failing rule wins.
func Evaluate(a *session.Activity, prefs config.Preferences) Decision {
	if a.ConnectionType == proto.ConnectionNone || a.ConnectionType == proto.ConnectionPartyClient {
		return Decision{Ineligible, "Can't announce: you have to be the host, or be in a Quick Play game"}
	}

	if a.ServerCode == "" || a.HostPlayer() == nil {
		return Decision{Ineligible, "Can't announce: no server code or host player yet"}
	}

	if a.IsQuickPlay() {
		if !prefs.ShareQuickPlayGames {
			return Decision{Disabled, "Flip the switch to share Quick Play games"}
		}
	} else if !prefs.AnnounceToggle {
		return Decision{Disabled, "Flip the switch to announce this game"}
	}

	return Decision{Eligible, "OK"}
}
