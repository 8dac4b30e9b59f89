// Package state holds the in-memory representation of a running match:
// the player roster, each player's authoritative replicated state, the
// host designation, and the character-to-connection index used by
// dispatch.
package state

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// ErrNotConnected is the routing error for a character with no
	// resolvable live connection. It can legitimately happen mid-sweep
	// when a target disconnects; callers usually skip the recipient.
	ErrNotConnected = errors.New("state: character has no connected client")

	// ErrGameEnded turns in-flight sends against a torn-down match into
	// reported errors instead of calls into destroyed state.
	ErrGameEnded = errors.New("state: game has ended")
)

// Game is one running match.
type Game struct {
	code string

	mu      sync.RWMutex
	host    *Player
	players []*Player
	conns   map[uint32]ConnID // character NetId -> owning connection

	nextNetID atomic.Uint32

	endOnce sync.Once
	done    chan struct{}
}

func NewGame(code string) *Game {
	return &Game{
		code:  code,
		conns: make(map[uint32]ConnID),
		done:  make(chan struct{}),
	}
}

func (g *Game) Code() string { return g.code }

// End marks the match torn down. Idempotent; every subsequent routed
// send fails with ErrGameEnded.
func (g *Game) End() {
	g.endOnce.Do(func() { close(g.done) })
}

func (g *Game) Ended() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Done is closed when the match ends; settle delays select against it.
func (g *Game) Done() <-chan struct{} { return g.done }

// AllocateNetID hands out the next per-match network identifier. Part
// of the spawn sequence, not the synchronization core.
func (g *Game) AllocateNetID() uint32 {
	return g.nextNetID.Add(1)
}

// AddPlayer appends the player to the roster. The first player added
// becomes the host unless one was designated already.
func (g *Game) AddPlayer(p *Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.players = append(g.players, p)
	if g.host == nil {
		g.host = p
	}
	if c := p.Character(); c != nil {
		g.conns[c.NetID()] = p.Owner()
	}
}

// RemovePlayer drops the player owned by the given connection and
// unbinds its character from the connection index. If the host leaves,
// the next roster entry inherits the designation.
func (g *Game) RemovePlayer(owner ConnID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, p := range g.players {
		if p.Owner() != owner {
			continue
		}
		if c := p.Character(); c != nil {
			delete(g.conns, c.NetID())
		}
		g.players = append(g.players[:i], g.players[i+1:]...)
		if g.host == p {
			g.host = nil
			if len(g.players) > 0 {
				g.host = g.players[0]
			}
		}
		return
	}
}

// BindCharacter spawns a character for the player and records it in the
// connection index so dispatch stays O(1).
func (g *Game) BindCharacter(p *Player, c *Character) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p.setCharacter(c)
	g.conns[c.NetID()] = p.Owner()
}

func (g *Game) SetHost(p *Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.host = p
}

func (g *Game) Host() *Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.host
}

// IsHostCharacter reports whether c is the host player's character.
func (g *Game) IsHostCharacter(c *Character) bool {
	if c == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.host != nil && g.host.Character() == c
}

// HostConn returns the host's connection, or false if no host (or an
// unspawned host) exists.
func (g *Game) HostConn() (ConnID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.host == nil {
		return uuid.Nil, false
	}
	return g.host.Owner(), true
}

// Players returns a point-in-time copy of the roster.
func (g *Game) Players() []*Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Player, len(g.players))
	copy(out, g.players)
	return out
}

// Characters returns the spawned characters in roster order. The slice
// is a snapshot; entries may disconnect while a sweep walks it.
func (g *Game) Characters() []*Character {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Character, 0, len(g.players))
	for _, p := range g.players {
		if c := p.Character(); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// ConnectionFor resolves the connection that owns the given character.
func (g *Game) ConnectionFor(c *Character) (ConnID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.conns[c.NetID()]
	if !ok {
		return uuid.Nil, ErrNotConnected
	}
	return id, nil
}
