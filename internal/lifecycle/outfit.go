package lifecycle

import (
	"context"

	"github.com/desyncd/crew-sync-backend/internal/rpc"
	"github.com/desyncd/crew-sync-backend/internal/state"
	"github.com/desyncd/crew-sync-backend/internal/wire"
	"github.com/desyncd/crew-sync-backend/pkg/protocol"
)

// Cosmetic and chat RPCs. They ride the same envelopes as the lifecycle
// transitions but carry no preconditions: mutate the outfit, then
// announce.

func (t *Transitions) SetName(ctx context.Context, g *state.Game, subject *state.Character, name string) error {
	subject.SyncLock()
	subject.Info().SetName(name)
	buf := callBuffer(subject.NetID(), protocol.RPCSetName, func(w *wire.Writer) {
		rpc.SerializeSetName(w, name)
	})
	subject.SyncUnlock()
	return t.router.Broadcast(ctx, g, buf)
}

func (t *Transitions) SetColor(ctx context.Context, g *state.Game, subject *state.Character, color protocol.Color) error {
	subject.SyncLock()
	subject.Info().SetColor(color)
	buf := callBuffer(subject.NetID(), protocol.RPCSetColor, func(w *wire.Writer) {
		rpc.SerializeSetColor(w, subject.Info().NetID(), color)
	})
	subject.SyncUnlock()
	return t.router.Broadcast(ctx, g, buf)
}

func (t *Transitions) SetHat(ctx context.Context, g *state.Game, subject *state.Character, hatID string) error {
	subject.SyncLock()
	subject.Info().SetHat(hatID)
	buf := callBuffer(subject.NetID(), protocol.RPCSetHat, func(w *wire.Writer) {
		rpc.SerializeSetHat(w, hatID)
	})
	subject.SyncUnlock()
	return t.router.Broadcast(ctx, g, buf)
}

func (t *Transitions) SetSkin(ctx context.Context, g *state.Game, subject *state.Character, skinID string) error {
	subject.SyncLock()
	subject.Info().SetSkin(skinID)
	buf := callBuffer(subject.NetID(), protocol.RPCSetSkin, func(w *wire.Writer) {
		rpc.SerializeSetSkin(w, skinID)
	})
	subject.SyncUnlock()
	return t.router.Broadcast(ctx, g, buf)
}

func (t *Transitions) SetPet(ctx context.Context, g *state.Game, subject *state.Character, petID string) error {
	subject.SyncLock()
	subject.Info().SetPet(petID)
	buf := callBuffer(subject.NetID(), protocol.RPCSetPet, func(w *wire.Writer) {
		rpc.SerializeSetPet(w, petID)
	})
	subject.SyncUnlock()
	return t.router.Broadcast(ctx, g, buf)
}

// SendChat broadcasts a chat line spoken by the subject.
func (t *Transitions) SendChat(ctx context.Context, g *state.Game, subject *state.Character, text string) error {
	buf := callBuffer(subject.NetID(), protocol.RPCSendChat, func(w *wire.Writer) {
		rpc.SerializeSendChat(w, text)
	})
	return t.router.Broadcast(ctx, g, buf)
}

// SendChatTo whispers a chat line to a single recipient; nil means the
// subject itself.
func (t *Transitions) SendChatTo(ctx context.Context, g *state.Game, subject *state.Character, text string, target *state.Character) error {
	if target == nil {
		target = subject
	}
	buf := callBuffer(subject.NetID(), protocol.RPCSendChat, func(w *wire.Writer) {
		rpc.SerializeSendChat(w, text)
	})
	return t.router.ToCharacter(ctx, g, target, buf)
}
