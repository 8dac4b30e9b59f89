package rolesync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desyncd/crew-sync-backend/pkg/protocol"
)

// The black-screen scenarios run with a single impostor so living crew
// outnumber the impostor team and mitigation is armed.
func newBlackScreenFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.b.Info().SetRole(protocol.RoleCrewmate)
	return f
}

func TestFixBlackScreenGrantsAndRevertsStandIns(t *testing.T) {
	f := newBlackScreenFixture(t)

	require.NoError(t, f.eng.FixBlackScreen(context.Background(), f.g, nil))

	// B and C are the living non-impostors besides the host; each gets
	// a stand-in impostor and later the revert. The impostor A and the
	// host are never fix targets.
	require.Eventually(t, func() bool {
		return len(f.sender.sentTo(f.conns[f.b])) == 2 &&
			len(f.sender.sentTo(f.conns[f.c])) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Empty(t, f.sender.sentTo(f.conns[f.a]))
	assert.Empty(t, f.sender.sentTo(f.conns[f.host]))

	toC := f.sender.sentTo(f.conns[f.c])
	standInNetID, role, _ := parseSetRole(t, toC[0].buf)
	assert.Equal(t, protocol.RoleImpostor, role)
	assert.NotEqual(t, f.c.NetID(), standInNetID, "stand-in is never the player itself")

	revertNetID, role, _ := parseSetRole(t, toC[1].buf)
	assert.Equal(t, standInNetID, revertNetID)
	assert.Equal(t, protocol.RoleCrewmate, role)
}

func TestFixBlackScreenRevertsToGhostForDeadStandIn(t *testing.T) {
	f := newBlackScreenFixture(t)

	// Delay the revert long enough to kill the stand-in in between.
	cfg := testConfig()
	cfg.BlackScreenRevert = 50 * time.Millisecond
	f.eng.cfg = cfg

	done := make(chan error, 1)
	go func() { done <- f.eng.FixBlackScreen(context.Background(), f.g, nil) }()

	// The stand-in for every fix target is the first living character
	// that is not the target itself: the host.
	require.Eventually(t, func() bool {
		return len(f.sender.sentTo(f.conns[f.c])) == 1
	}, time.Second, time.Millisecond)
	f.host.Info().Die(protocol.DeathReasonKill)

	require.NoError(t, <-done)
	require.Eventually(t, func() bool {
		return len(f.sender.sentTo(f.conns[f.c])) == 2
	}, time.Second, time.Millisecond)

	toC := f.sender.sentTo(f.conns[f.c])
	_, role, _ := parseSetRole(t, toC[1].buf)
	assert.Equal(t, protocol.RoleCrewmateGhost, role)
}

func TestFixBlackScreenSkipsWhenImpostorsDominate(t *testing.T) {
	// Two impostors and two crew in the base fixture: crew do not
	// outnumber the impostor team, so mitigation never arms.
	f := newFixture(t)

	require.NoError(t, f.eng.FixBlackScreen(context.Background(), f.g, nil))
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, f.sender.all())
}

func TestFixBlackScreenSkipsExiledAsStandIn(t *testing.T) {
	f := newBlackScreenFixture(t)

	// The host was just exiled; stand-in searches must pass over it and
	// settle on the next living character.
	f.host.Info().Die(protocol.DeathReasonExile)

	require.NoError(t, f.eng.FixBlackScreen(context.Background(), f.g, f.host))

	require.Eventually(t, func() bool {
		return len(f.sender.sentTo(f.conns[f.c])) == 2
	}, time.Second, 5*time.Millisecond)

	toC := f.sender.sentTo(f.conns[f.c])
	standInNetID, _, _ := parseSetRole(t, toC[0].buf)
	assert.NotEqual(t, f.host.NetID(), standInNetID)
}
