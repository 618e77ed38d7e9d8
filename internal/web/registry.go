package web

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapconsole/internal/console"
)

const (
	sessionName  = "leapconsole-web"
	sessionIDKey = "id"
)

// browserSession is the console state owned by one browser.
type browserSession struct {
	id  string
	con *console.Console

	mu       sync.Mutex
	lastSeen time.Time
	// resetURL is the launch URL without its code, pending until the
	// update stream has told the browser to replace its location.
	resetURL string
}

func (b *browserSession) touch(now time.Time) {
	b.mu.Lock()
	b.lastSeen = now
	b.mu.Unlock()
}

func (b *browserSession) setResetURL(u string) {
	b.mu.Lock()
	b.resetURL = u
	b.mu.Unlock()
}

// takeResetURL returns the pending reset URL once.
func (b *browserSession) takeResetURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.resetURL
	b.resetURL = ""
	return u
}

// registry maps session ids to their consoles.
type registry struct {
	newConsole func() (*console.Console, error)
	idle       time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*browserSession
}

func newRegistry(newConsole func() (*console.Console, error), idle time.Duration) *registry {
	return &registry{
		newConsole: newConsole,
		idle:       idle,
		now:        time.Now,
		sessions:   make(map[string]*browserSession),
	}
}

func (g *registry) get(id string) (*browserSession, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.sessions[id]
	if ok {
		b.touch(g.now())
	}
	return b, ok
}

func (g *registry) create() (*browserSession, error) {
	if g.newConsole == nil {
		return nil, errors.New("no console factory configured")
	}
	con, err := g.newConsole()
	if err != nil {
		return nil, err
	}
	b := &browserSession{id: uuid.NewString(), con: con, lastSeen: g.now()}

	g.mu.Lock()
	g.sessions[b.id] = b
	g.mu.Unlock()
	return b, nil
}

func (g *registry) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// dropIdle removes sessions last seen before now minus the idle timeout.
func (g *registry) dropIdle(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for id, b := range g.sessions {
		b.mu.Lock()
		stale := now.Sub(b.lastSeen) > g.idle
		b.mu.Unlock()
		if stale {
			delete(g.sessions, id)
			n++
		}
	}
	return n
}

// session returns the browser session for r, creating it and setting the
// cookie when create is true.
func (s *Server) session(w http.ResponseWriter, r *http.Request, create bool) (*browserSession, error) {
	sess, err := s.sessionStore.Get(r, sessionName)
	if err != nil && !create {
		return nil, err
	}
	if id, ok := sess.Values[sessionIDKey].(string); ok {
		if b, ok := s.consoles.get(id); ok {
			return b, nil
		}
	}
	if !create {
		return nil, errNoSession
	}

	b, err := s.consoles.create()
	if err != nil {
		return nil, err
	}
	sess.Values[sessionIDKey] = b.id
	if err := sess.Save(r, w); err != nil {
		return nil, err
	}
	s.logger.Debug("browser session started", "session", b.id)
	return b, nil
}

var errNoSession = errors.New("no console session; reload the page")
