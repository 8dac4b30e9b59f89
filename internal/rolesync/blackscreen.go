package rolesync

import (
	"context"

	"go.uber.org/zap"

	"github.com/desyncd/crew-sync-backend/internal/state"
	"github.com/desyncd/crew-sync-backend/pkg/protocol"
)

// FixBlackScreen compensates for a client-side rendering bug: after a
// role reveal, a non-impostor client whose camera lost its render
// target hangs on a black screen. After a settle delay each living
// non-impostor is shown some living stand-in as an Impostor, targeted
// at that player alone, so its camera has something to latch onto; a
// second delay later the stand-in's displayed role is reverted to
// Crewmate or CrewmateGhost depending on whether the stand-in has since
// died. Stand-in assignments are independent and fire-and-forget;
// failing to find one for a player skips that player.
func (e *Engine) FixBlackScreen(ctx context.Context, g *state.Game, exiled *state.Character) error {
	if !needsMitigation(g) {
		return nil
	}

	if err := e.settle(ctx, g, e.cfg.BlackScreenSettle); err != nil {
		return err
	}

	var hostChar *state.Character
	if h := g.Host(); h != nil {
		hostChar = h.Character()
	}

	standIns := make(map[*state.Character]*state.Character)
	for _, c := range g.Characters() {
		info := c.Info()
		if info.Role().IsImpostor() || info.IsDead() || info.Disconnected() {
			continue
		}
		if c == hostChar || c == exiled {
			continue
		}

		standIn := findStandIn(g, c, exiled)
		if standIn == nil {
			continue
		}
		c, standIn := c, standIn
		go func() { e.report(e.SetRoleFor(ctx, g, standIn, protocol.RoleImpostor, c, false)) }()
		standIns[c] = standIn
	}

	if len(standIns) == 0 {
		return nil
	}
	e.log.Debug("black screen mitigation armed",
		zap.String("game", g.Code()),
		zap.Int("players", len(standIns)))

	if err := e.settle(ctx, g, e.cfg.BlackScreenRevert); err != nil {
		return err
	}

	for player, standIn := range standIns {
		revert := protocol.RoleCrewmate
		if standIn.Info().IsDead() {
			revert = protocol.RoleCrewmateGhost
		}
		player, standIn := player, standIn
		go func() { e.report(e.SetRoleFor(ctx, g, standIn, revert, player, false)) }()
	}
	return nil
}

// needsMitigation reports whether living crew still outnumber living
// impostors; past that point the reveal cannot strand a camera.
func needsMitigation(g *state.Game) bool {
	var crew, impostors int
	for _, c := range g.Characters() {
		info := c.Info()
		if info.IsDead() || info.Disconnected() {
			continue
		}
		if info.Role().IsImpostor() {
			impostors++
		} else {
			crew++
		}
	}
	return crew > impostors
}

// findStandIn picks a living, connected character other than the player
// itself and the just-exiled character.
func findStandIn(g *state.Game, player, exiled *state.Character) *state.Character {
	for _, c := range g.Characters() {
		if c == player || c == exiled {
			continue
		}
		info := c.Info()
		if info.IsDead() || info.Disconnected() {
			continue
		}
		return c
	}
	return nil
}
