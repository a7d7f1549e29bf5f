package session

import (
	"sync"

	"github.com/benvon/embody/internal/models"
)

// State is the gate's authentication state
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// Snapshot is the gate state at one point in time
type Snapshot struct {
	State    State            `json:"state"`
	Identity *models.Identity `json:"identity,omitempty"`
	Reason   EventKind        `json:"reason,omitempty"`
}

// Gate is the two-state session machine for one client. It follows provider
// notifications between Open and Close.
type Gate struct {
	notifier Notifier

	mu          sync.Mutex
	state       State
	session     *Session
	uid         string
	unsubscribe func()
	updates     chan Snapshot
	closed      bool
}

// NewGate creates an unauthenticated gate
func NewGate(notifier Notifier) *Gate {
	return &Gate{
		notifier: notifier,
		state:    StateUnauthenticated,
		updates:  make(chan Snapshot, 8),
	}
}

// Open subscribes to session changes, resuming sess when it is non-nil
func (g *Gate) Open(sess *Session) Snapshot {
	unsubscribe := g.notifier.OnSessionChange(g.handle)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.unsubscribe = unsubscribe
	if sess != nil {
		g.authenticate(sess)
	}
	return g.snapshot("")
}

// Current returns the present state
func (g *Gate) Current() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot("")
}

// Updates delivers every transition after Open. It is closed by Close.
func (g *Gate) Updates() <-chan Snapshot {
	return g.updates
}

// Close unsubscribes from the provider. Further events are ignored.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	unsubscribe := g.unsubscribe
	close(g.updates)
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (g *Gate) handle(ev Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}

	switch {
	case ev.Ends() && g.session != nil && ev.SessionID == g.session.ID:
		g.state = StateUnauthenticated
		g.session = nil
		g.emit(g.snapshot(ev.Kind))
	case ev.Kind == EventSignedIn && g.state == StateUnauthenticated && g.uid != "" && ev.Identity.UID == g.uid:
		g.authenticate(&Session{ID: ev.SessionID, Identity: ev.Identity})
		g.emit(g.snapshot(ev.Kind))
	}
}

func (g *Gate) authenticate(sess *Session) {
	g.state = StateAuthenticated
	g.session = sess
	g.uid = sess.Identity.UID
}

func (g *Gate) snapshot(reason EventKind) Snapshot {
	s := Snapshot{State: g.state, Reason: reason}
	if g.session != nil {
		identity := g.session.Identity
		s.Identity = &identity
	}
	return s
}

// emit never blocks the provider; a slow reader loses the oldest update.
func (g *Gate) emit(s Snapshot) {
	select {
	case g.updates <- s:
		return
	default:
	}
	select {
	case <-g.updates:
	default:
	}
	select {
	case g.updates <- s:
	default:
	}
}
