package state

import (
	"sync"

	"github.com/google/uuid"
)

// ConnID identifies a connected client session.
type ConnID = uuid.UUID

// Player is a connected participant. A player without a character is a
// spectator or has not spawned yet.
type Player struct {
	owner ConnID

	mu        sync.RWMutex
	character *Character
}

func NewPlayer(owner ConnID) *Player {
	return &Player{owner: owner}
}

// Owner is the stable client identifier of the connection that owns
// this player. Immutable after construction.
func (p *Player) Owner() ConnID { return p.owner }

// Character returns the in-world actor bound to this player, or nil.
func (p *Player) Character() *Character {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.character
}

func (p *Player) setCharacter(c *Character) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.character = c
}

// Character is the in-world actor bound to a player. Its NetId is
// assigned once at spawn and immutable thereafter.
type Character struct {
	netID uint32
	info  *PlayerInfo

	// syncMu serializes mutate+frame+send for this character so two
	// concurrent role assignments cannot interleave their envelope
	// writes.
	syncMu sync.Mutex
}

func NewCharacter(netID uint32, info *PlayerInfo) *Character {
	return &Character{netID: netID, info: info}
}

func (c *Character) NetID() uint32     { return c.netID }
func (c *Character) Info() *PlayerInfo { return c.info }

// SyncLock claims this character for one synchronization operation.
func (c *Character) SyncLock()   { c.syncMu.Lock() }
func (c *Character) SyncUnlock() { c.syncMu.Unlock() }
