package game

import (
	"encoding/json"
	"time"

	"tinytactics/internal/logging"
	"tinytactics/internal/session"
)

// Session returns the session the game wraps.
func (g *Game) Session() *session.Session { return g.s }

// Done is closed when the hub drops the game.
func (g *Game) Done() <-chan struct{} { return g.done }

func (g *Game) Touch() {
	g.Mu.Lock()
	g.LastSeen = g.now()
	g.Mu.Unlock()
}

// Present implements session.Presenter by streaming the snapshot to every
// watcher.
func (g *Game) Present(snap session.Snapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		logging.Debugf("marshal snapshot %s: %v", snap.ID, err)
		return
	}
	g.Broadcast(b)
}

// Broadcast sends msg to the watchers. Slow watchers miss the message
// rather than block the session.
func (g *Game) Broadcast(msg []byte) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for ch := range g.Watchers {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (g *Game) AddWatcher(ch chan []byte) {
	g.Mu.Lock()
	g.Watchers[ch] = struct{}{}
	g.Mu.Unlock()
}

func (g *Game) RemoveWatcher(ch chan []byte) {
	g.Mu.Lock()
	delete(g.Watchers, ch)
	g.Mu.Unlock()
}

// WatcherCount returns the number of attached streams.
func (g *Game) WatcherCount() int {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return len(g.Watchers)
}

// idle reports whether nobody watched or touched the game for ttl.
func (g *Game) idle(ttl time.Duration) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return len(g.Watchers) == 0 && g.now().Sub(g.LastSeen) > ttl
}
