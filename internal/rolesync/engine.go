// Package rolesync is the policy layer that turns a role-change event
// into correctly ordered, correctly addressed game-data messages: a
// truthful broadcast, a single targeted send, or a desynchronized
// per-recipient sweep in which different clients are deliberately told
// different roles for the same character.
package rolesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/desyncd/crew-sync-backend/internal/dispatch"
	"github.com/desyncd/crew-sync-backend/internal/rpc"
	"github.com/desyncd/crew-sync-backend/internal/state"
	"github.com/desyncd/crew-sync-backend/internal/wire"
	"github.com/desyncd/crew-sync-backend/pkg/protocol"
)

// ErrorSink receives failures from fire-and-forget sends so they stay
// observable without blocking the caller. When nil, failures go to the
// engine's logger.
type ErrorSink func(error)

// Engine issues role synchronization messages for a game. It is
// stateless with respect to any particular match; all match state lives
// in the *state.Game passed to each operation.
type Engine struct {
	cfg    Config
	router *dispatch.Router
	log    *zap.Logger

	// Sink, when set, receives errors from spawned sends. Tests inject
	// one to assert on fire-and-forget failures.
	Sink ErrorSink
}

func NewEngine(cfg Config, router *dispatch.Router, log *zap.Logger) *Engine {
	return &Engine{cfg: cfg, router: router, log: log}
}

func (e *Engine) report(err error) {
	if err == nil {
		return
	}
	if e.Sink != nil {
		e.Sink(err)
		return
	}
	e.log.Error("background send failed", zap.Error(err))
}

// roleBuffer frames one complete game-data envelope for subject: an
// optional full PlayerInfo snapshot (introduction) followed by the
// SetRole RPC. Callers doing an introduction must invoke this while the
// subject's disconnected flag is forced true so the snapshot carries it.
func roleBuffer(subject *state.Character, role protocol.RoleType, isIntro bool) []byte {
	w := wire.Acquire()
	w.StartMessage(protocol.TagGameData)

	if isIntro {
		info := subject.Info()
		w.StartMessage(protocol.TagData)
		w.WritePacked(info.NetID())
		info.Serialize(w)
		w.EndMessage()
	}

	rpc.StartCall(w, subject.NetID(), protocol.RPCSetRole)
	rpc.SerializeSetRole(w, role, true)
	w.EndMessage()

	w.EndMessage()
	buf := w.Copy()
	w.Release()
	return buf
}

// SetRole is the authoritative, global role change: it updates the
// subject's stored role and announces it to everyone except the host,
// who learns roles through its own authoritative path.
func (e *Engine) SetRole(ctx context.Context, g *state.Game, subject *state.Character, role protocol.RoleType, isIntro bool) error {
	subject.SyncLock()
	defer subject.SyncUnlock()

	subject.Info().SetRole(role)

	hostConn := uuid.Nil
	if conn, ok := g.HostConn(); ok {
		hostConn = conn
	}

	send := func() error {
		return e.router.BroadcastExcept(ctx, g, roleBuffer(subject, role, isIntro), hostConn)
	}
	if isIntro {
		return subject.Info().WithDisconnected(send)
	}
	return send()
}

// SetRoleFor tells a single recipient a role fact about subject without
// disturbing what everyone else sees. The subject's authoritative role
// is not touched. When target is the host's character this is a no-op:
// the host's view is never overridden.
func (e *Engine) SetRoleFor(ctx context.Context, g *state.Game, subject *state.Character, role protocol.RoleType, target *state.Character, isIntro bool) error {
	if target == nil {
		target = subject
	}
	if g.IsHostCharacter(target) {
		return nil
	}

	subject.SyncLock()
	defer subject.SyncUnlock()

	send := func() error {
		return e.router.ToCharacter(ctx, g, target, roleBuffer(subject, role, isIntro))
	}
	if isIntro {
		return subject.Info().WithDisconnected(send)
	}
	return send()
}

// SetRoleForDesync sends every character outside the exclusion set an
// independently addressed role message for subject. Recipients on the
// impostor team alongside an impostor subject are shown the subject's
// true live-or-ghost impostor status so the team keeps mutual
// visibility; everyone else is shown the supplied cover role. The
// subject is always excluded; nil exclusion entries default to the
// subject. A single recipient's failure never aborts the sweep.
//
// The subject and the host are always excluded: both see the truthful
// assignment through the normal path, never the overlay.
func (e *Engine) SetRoleForDesync(ctx context.Context, g *state.Game, subject *state.Character, role protocol.RoleType, excluded []*state.Character, isIntro bool) error {
	exclude := map[*state.Character]struct{}{subject: {}}
	if h := g.Host(); h != nil && h.Character() != nil {
		exclude[h.Character()] = struct{}{}
	}
	for _, c := range excluded {
		if c == nil {
			c = subject
		}
		exclude[c] = struct{}{}
	}

	subject.SyncLock()
	defer subject.SyncUnlock()

	info := subject.Info()
	report := e.router.Sweep(ctx, g, exclude, func(recipient *state.Character) error {
		displayed := role
		if recipient.Info().Role().IsImpostor() && info.Role().IsImpostor() {
			if info.IsDead() {
				displayed = protocol.RoleImpostorGhost
			} else {
				displayed = protocol.RoleImpostor
			}
		}

		send := func() error {
			return e.router.ToCharacter(ctx, g, recipient, roleBuffer(subject, displayed, isIntro))
		}
		if isIntro {
			return info.WithDisconnected(send)
		}
		return send()
	})

	if len(report.Skipped) > 0 {
		e.log.Info("desync sweep skipped disconnected recipients",
			zap.String("game", g.Code()),
			zap.Uint32("subject", subject.NetID()),
			zap.Uint32s("skipped", report.Skipped))
	}
	return report.Err
}

// AssignRoles applies the game-start burst across the roster: each
// player gets a truthful targeted introduction of its own role while
// everyone else is desynced to a Crewmate cover, host excluded. The
// per-player sends are spawned concurrently and a settle delay keeps
// the burst from saturating the outbound link.
func (e *Engine) AssignRoles(ctx context.Context, g *state.Game) error {
	for _, c := range g.Characters() {
		c := c
		role := c.Info().Role()
		go func() { e.report(e.SetRoleFor(ctx, g, c, role, c, true)) }()
		go func() { e.report(e.SetRoleForDesync(ctx, g, c, protocol.RoleCrewmate, nil, true)) }()
	}

	return e.settle(ctx, g, e.cfg.AssignSettle)
}

// ResyncRoles re-broadcasts every character's authoritative role, with
// a settle delay between players. Used on recovery when replicas may
// have diverged beyond repair.
func (e *Engine) ResyncRoles(ctx context.Context, g *state.Game) error {
	var errs error
	for _, c := range g.Characters() {
		if err := e.SetRole(ctx, g, c, c.Info().Role(), false); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("resync %d: %w", c.NetID(), err))
		}
		if err := e.settle(ctx, g, e.cfg.ResyncSettle); err != nil {
			return multierr.Append(errs, err)
		}
	}
	return errs
}

// SyncData pushes every character's full PlayerInfo snapshot to
// everyone except the host. Used for late joins and recovery resync.
func (e *Engine) SyncData(ctx context.Context, g *state.Game) error {
	hostConn := uuid.Nil
	if conn, ok := g.HostConn(); ok {
		hostConn = conn
	}

	var errs error
	for _, c := range g.Characters() {
		w := wire.Acquire()
		w.StartMessage(protocol.TagGameData)
		w.StartMessage(protocol.TagData)
		w.WritePacked(c.Info().NetID())
		c.Info().Serialize(w)
		w.EndMessage()
		w.EndMessage()
		buf := w.Copy()
		w.Release()

		if err := e.router.BroadcastExcept(ctx, g, buf, hostConn); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sync data %d: %w", c.NetID(), err))
		}
	}
	return errs
}

// MigrateHost replays every character's authoritative role to a newly
// designated host so its replica starts from the truth. This rides the
// targeted route directly: the host-override guard in SetRoleFor exists
// to protect the host from overlays, not from truthful state.
func (e *Engine) MigrateHost(ctx context.Context, g *state.Game) error {
	host := g.Host()
	if host == nil || host.Character() == nil {
		return nil
	}
	hostChar := host.Character()

	var errs error
	for _, c := range g.Characters() {
		c.SyncLock()
		buf := roleBuffer(c, c.Info().Role(), false)
		err := e.router.ToCharacter(ctx, g, hostChar, buf)
		c.SyncUnlock()
		if err != nil {
			if errors.Is(err, state.ErrNotConnected) {
				// The new host itself is gone; nothing left to replay.
				return errs
			}
			errs = multierr.Append(errs, fmt.Errorf("migrate host, role of %d: %w", c.NetID(), err))
		}
	}
	return errs
}

// settle waits out a timing delay, giving up early on caller
// cancellation or match teardown.
func (e *Engine) settle(ctx context.Context, g *state.Game, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-g.Done():
		return state.ErrGameEnded
	}
}
