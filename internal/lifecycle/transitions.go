// Package lifecycle implements the murder, protect, and exile
// transitions: validate preconditions against the state model, mutate
// state, emit the matching RPC, and notify observers, strictly in that
// order.
package lifecycle

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/desyncd/crew-sync-backend/internal/dispatch"
	"github.com/desyncd/crew-sync-backend/internal/rpc"
	"github.com/desyncd/crew-sync-backend/internal/state"
	"github.com/desyncd/crew-sync-backend/internal/wire"
	"github.com/desyncd/crew-sync-backend/pkg/protocol"
)

// Protocol violations: the transition is rejected before any state
// mutation or network write.
var (
	ErrNotImpostor     = errors.New("lifecycle: murderer is not an impostor")
	ErrActorDead       = errors.New("lifecycle: murderer is not alive")
	ErrTargetDead      = errors.New("lifecycle: target is not alive")
	ErrProtectGuardian = errors.New("lifecycle: cannot protect another guardian angel")
	ErrAlreadyDead     = errors.New("lifecycle: player is already dead")
)

// Observer is notified after a transition has been applied and its RPC
// sent. This is the fire-and-forget event-publication hook; observer
// errors cannot undo a transition.
type Observer interface {
	OnMurder(g *state.Game, actor, target *state.Character, result protocol.MurderResult)
	OnExile(g *state.Game, subject *state.Character)
}

// Transitions applies lifecycle state changes for a game.
type Transitions struct {
	router    *dispatch.Router
	log       *zap.Logger
	observers []Observer
}

func NewTransitions(router *dispatch.Router, log *zap.Logger, observers ...Observer) *Transitions {
	return &Transitions{router: router, log: log, observers: observers}
}

// callBuffer frames a single RPC inside a game-data envelope.
func callBuffer(netID uint32, call protocol.RPCCall, payload func(w *wire.Writer)) []byte {
	w := wire.Acquire()
	w.StartMessage(protocol.TagGameData)
	rpc.StartCall(w, netID, call)
	if payload != nil {
		payload(w)
	}
	w.EndMessage()
	w.EndMessage()
	buf := w.Copy()
	w.Release()
	return buf
}

// Murder validates that the actor may kill the target, marks the target
// dead (unless the result flags the attempt as failed), and always
// emits the murder RPC so clients can animate even a failed attempt.
// The dead flag is set before the RPC goes out, so any replica that has
// observed the RPC observes the post-murder state.
func (t *Transitions) Murder(ctx context.Context, g *state.Game, actor, target *state.Character, result protocol.MurderResult) error {
	if !actor.Info().Role().IsImpostor() {
		return ErrNotImpostor
	}
	if actor.Info().IsDead() {
		return ErrActorDead
	}
	if target.Info().IsDead() {
		return ErrTargetDead
	}

	target.SyncLock()
	if !result.IsFailed() {
		target.Info().Die(protocol.DeathReasonKill)
	}
	buf := callBuffer(actor.NetID(), protocol.RPCMurderPlayer, func(w *wire.Writer) {
		rpc.SerializeMurderPlayer(w, target.NetID(), result)
	})
	target.SyncUnlock()

	if err := t.router.Broadcast(ctx, g, buf); err != nil {
		return err
	}

	t.log.Info("murder",
		zap.String("game", g.Code()),
		zap.Uint32("actor", actor.NetID()),
		zap.Uint32("target", target.NetID()),
		zap.Bool("failed", result.IsFailed()))
	for _, o := range t.observers {
		o.OnMurder(g, actor, target, result)
	}
	return nil
}

// Protect shields the target with the actor's guardian protection. A
// guardian angel cannot protect another guardian angel.
func (t *Transitions) Protect(ctx context.Context, g *state.Game, actor, target *state.Character) error {
	if target.Info().Role() == protocol.RoleGuardianAngel {
		return ErrProtectGuardian
	}

	target.SyncLock()
	target.Info().SetProtected(actor.NetID())
	color := actor.Info().Outfit().Color
	buf := callBuffer(actor.NetID(), protocol.RPCProtectPlayer, func(w *wire.Writer) {
		rpc.SerializeProtectPlayer(w, target.NetID(), color)
	})
	target.SyncUnlock()

	return t.router.Broadcast(ctx, g, buf)
}

// Exile marks the subject dead by vote and announces it. Double exile
// is a protocol violation.
func (t *Transitions) Exile(ctx context.Context, g *state.Game, subject *state.Character) error {
	if subject.Info().IsDead() {
		return ErrAlreadyDead
	}

	subject.SyncLock()
	subject.Info().Die(protocol.DeathReasonExile)
	buf := callBuffer(subject.NetID(), protocol.RPCExiled, rpc.SerializeExiled)
	subject.SyncUnlock()

	if err := t.router.Broadcast(ctx, g, buf); err != nil {
		return err
	}

	t.log.Info("exile",
		zap.String("game", g.Code()),
		zap.Uint32("subject", subject.NetID()))
	for _, o := range t.observers {
		o.OnExile(g, subject)
	}
	return nil
}

// StartVanish begins the vanish animation for the subject.
func (t *Transitions) StartVanish(ctx context.Context, g *state.Game, subject *state.Character) error {
	buf := callBuffer(subject.NetID(), protocol.RPCStartVanish, rpc.SerializeStartVanish)
	return t.router.Broadcast(ctx, g, buf)
}

// StartAppear ends a vanish, optionally animated.
func (t *Transitions) StartAppear(ctx context.Context, g *state.Game, subject *state.Character, shouldAnimate bool) error {
	buf := callBuffer(subject.NetID(), protocol.RPCStartAppear, func(w *wire.Writer) {
		rpc.SerializeStartAppear(w, shouldAnimate)
	})
	return t.router.Broadcast(ctx, g, buf)
}
