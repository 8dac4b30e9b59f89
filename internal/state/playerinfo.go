package state

import (
	"sync"

	"github.com/desyncd/crew-sync-backend/internal/wire"
	"github.com/desyncd/crew-sync-backend/pkg/protocol"
)

// Outfit is the cosmetic state a client renders for a character.
type Outfit struct {
	Name  string
	Color protocol.Color
	Hat   string
	Pet   string
	Skin  string
}

// PlayerInfo is the replicated record a client renders for a character:
// authoritative role, alive/dead flag, disconnected flag, last death
// reason and outfit. All reads and writes go through mutex-guarded
// accessors because independent synchronization operations share it.
type PlayerInfo struct {
	netID uint32

	mu              sync.Mutex
	role            protocol.RoleType
	dead            bool
	disconnected    bool
	lastDeathReason protocol.DeathReason
	protectedBy     uint32 // NetId of the guardian's character, 0 = unprotected
	outfit          Outfit
}

func NewPlayerInfo(netID uint32, outfit Outfit) *PlayerInfo {
	return &PlayerInfo{
		netID:           netID,
		role:            protocol.RoleCrewmate,
		lastDeathReason: protocol.DeathReasonNone,
		outfit:          outfit,
	}
}

// NetID is the info object's own network identifier, distinct from the
// owning character's.
func (pi *PlayerInfo) NetID() uint32 { return pi.netID }

// Role returns the authoritative role. Per-recipient displayed roles
// never live here; only a true role change mutates it.
func (pi *PlayerInfo) Role() protocol.RoleType {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.role
}

func (pi *PlayerInfo) SetRole(role protocol.RoleType) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.role = role
}

func (pi *PlayerInfo) IsDead() bool {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.dead
}

func (pi *PlayerInfo) Disconnected() bool {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.disconnected
}

func (pi *PlayerInfo) LastDeathReason() protocol.DeathReason {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.lastDeathReason
}

// Die marks the character dead with the given reason and clears any
// active protection.
func (pi *PlayerInfo) Die(reason protocol.DeathReason) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.dead = true
	pi.lastDeathReason = reason
	pi.protectedBy = 0
}

// SetProtected records the guardian currently shielding this character.
func (pi *PlayerInfo) SetProtected(guardianNetID uint32) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.protectedBy = guardianNetID
}

func (pi *PlayerInfo) IsProtected() bool {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.protectedBy != 0
}

func (pi *PlayerInfo) Outfit() Outfit {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.outfit
}

func (pi *PlayerInfo) SetName(name string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.outfit.Name = name
}

func (pi *PlayerInfo) SetColor(color protocol.Color) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.outfit.Color = color
}

func (pi *PlayerInfo) SetHat(hatID string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.outfit.Hat = hatID
}

func (pi *PlayerInfo) SetPet(petID string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.outfit.Pet = petID
}

func (pi *PlayerInfo) SetSkin(skinID string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.outfit.Skin = skinID
}

// WithDisconnected forces the disconnected flag true, runs fn, and
// restores the prior value on every exit path, send failures included.
// Forcing the flag around a full-snapshot send makes the client treat
// the next role RPC as an introduction instead of an animated change.
func (pi *PlayerInfo) WithDisconnected(fn func() error) error {
	pi.mu.Lock()
	prev := pi.disconnected
	pi.disconnected = true
	pi.mu.Unlock()

	defer func() {
		pi.mu.Lock()
		pi.disconnected = prev
		pi.mu.Unlock()
	}()

	return fn()
}

// Flag bits of the serialized record.
const (
	infoFlagDisconnected byte = 1 << 0
	infoFlagDead         byte = 1 << 2
)

// Serialize writes the full replicated record into the open frame. The
// caller writes the packed NetId prefix; the record itself is outfit,
// flags, role, and the death reason when dead.
func (pi *PlayerInfo) Serialize(w *wire.Writer) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	w.WriteString(pi.outfit.Name)
	w.WriteUint8(byte(pi.outfit.Color))
	w.WriteString(pi.outfit.Hat)
	w.WriteString(pi.outfit.Pet)
	w.WriteString(pi.outfit.Skin)

	var flags byte
	if pi.disconnected {
		flags |= infoFlagDisconnected
	}
	if pi.dead {
		flags |= infoFlagDead
	}
	w.WriteUint8(flags)

	w.WriteUint8(byte(pi.role))
	if pi.dead {
		w.WriteUint8(byte(pi.lastDeathReason))
	}
}
