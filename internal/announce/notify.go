package announce

import (
	"sync"

	"github.com/beatnet/serverbrowser/internal/proto"
	"github.com/beatnet/serverbrowser/internal/session"
)

// Notice kinds delivered to observers.
const (
	NoticeActivity = "activity" // the snapshot changed
	NoticeStatus   = "status"   // the announce status text / error flag changed
	NoticeListing  = "listing"  // the directory acknowledged a listing (Key set)
)

// Notice is one observer notification. Snapshot is a copy; observers must
// treat it as read-only.
type Notice struct {
	Kind     string
	Status   string
	Errored  bool
	Snapshot *session.Activity
	Listing  *proto.DirectoryListing
}

// Notifier fans notices out to subscriber channels. Sends never block: a
// slow observer misses intermediate notices rather than stalling the core.
type Notifier struct {
	mu   sync.Mutex
	subs []chan Notice
}

func NewNotifier() *Notifier { return &Notifier{} }

func (n *Notifier) Subscribe() chan Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan Notice, 16)
	n.subs = append(n.subs, ch)
	return ch
}

func (n *Notifier) Unsubscribe(ch chan Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, sub := range n.subs {
		if sub == ch {
			close(sub)
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

func (n *Notifier) publish(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- notice:
		default:
		}
	}
}
