package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/desyncd/crew-sync-backend/internal/dispatch"
	"github.com/desyncd/crew-sync-backend/internal/state"
	"github.com/desyncd/crew-sync-backend/pkg/protocol"
)

// recordingSender records the target's dead flag at the moment each
// buffer is handed over, so ordering of mutation vs. notification is
// observable.
type recordingSender struct {
	mu     sync.Mutex
	events []string
	sent   [][]byte
	probe  func() string
}

func (s *recordingSender) record(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.probe != nil {
		kind += ":" + s.probe()
	}
	s.events = append(s.events, kind)
}

func (s *recordingSender) SendToAllExcept(_ context.Context, _ string, buf []byte, _ state.ConnID) error {
	s.record("send")
	s.sent = append(s.sent, buf)
	return nil
}

func (s *recordingSender) SendTo(_ context.Context, buf []byte, _ state.ConnID) error {
	s.record("send")
	s.sent = append(s.sent, buf)
	return nil
}

// recordingObserver appends to the same event log as the sender.
type recordingObserver struct {
	s *recordingSender
}

func (o *recordingObserver) OnMurder(_ *state.Game, _, _ *state.Character, _ protocol.MurderResult) {
	o.s.record("observer-murder")
}

func (o *recordingObserver) OnExile(_ *state.Game, _ *state.Character) {
	o.s.record("observer-exile")
}

type fixture struct {
	g             *state.Game
	sender        *recordingSender
	tr            *Transitions
	killer, crew  *state.Character
	guardian, vic *state.Character
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		g:      state.NewGame("TESTGM"),
		sender: &recordingSender{},
	}
	f.tr = NewTransitions(dispatch.NewRouter(f.sender, zap.NewNop()), zap.NewNop(), &recordingObserver{s: f.sender})

	spawn := func(name string, role protocol.RoleType) *state.Character {
		p := state.NewPlayer(uuid.New())
		f.g.AddPlayer(p)
		info := state.NewPlayerInfo(f.g.AllocateNetID(), state.Outfit{Name: name, Color: protocol.ColorLime})
		info.SetRole(role)
		c := state.NewCharacter(f.g.AllocateNetID(), info)
		f.g.BindCharacter(p, c)
		return c
	}

	f.killer = spawn("killer", protocol.RoleImpostor)
	f.crew = spawn("crew", protocol.RoleCrewmate)
	f.guardian = spawn("guardian", protocol.RoleGuardianAngel)
	f.vic = spawn("victim", protocol.RoleCrewmate)
	return f
}

func TestMurderRejectsNonImpostor(t *testing.T) {
	f := newFixture(t)

	err := f.tr.Murder(context.Background(), f.g, f.crew, f.vic, protocol.MurderSucceeded)
	require.ErrorIs(t, err, ErrNotImpostor)
	assert.False(t, f.vic.Info().IsDead(), "rejected murder must not mutate the target")
	assert.Empty(t, f.sender.events, "rejected murder must not emit")
}

func TestMurderRejectsDeadActor(t *testing.T) {
	f := newFixture(t)
	f.killer.Info().Die(protocol.DeathReasonKill)

	err := f.tr.Murder(context.Background(), f.g, f.killer, f.vic, protocol.MurderSucceeded)
	require.ErrorIs(t, err, ErrActorDead)
	assert.False(t, f.vic.Info().IsDead())
}

func TestMurderRejectsDeadTarget(t *testing.T) {
	f := newFixture(t)
	f.vic.Info().Die(protocol.DeathReasonExile)

	err := f.tr.Murder(context.Background(), f.g, f.killer, f.vic, protocol.MurderSucceeded)
	require.ErrorIs(t, err, ErrTargetDead)
}

func TestMurderMutatesBeforeNotifying(t *testing.T) {
	f := newFixture(t)
	f.sender.probe = func() string {
		if f.vic.Info().IsDead() {
			return "dead"
		}
		return "alive"
	}

	require.NoError(t, f.tr.Murder(context.Background(), f.g, f.killer, f.vic, protocol.MurderSucceeded))

	assert.True(t, f.vic.Info().IsDead())
	assert.Equal(t, protocol.DeathReasonKill, f.vic.Info().LastDeathReason())
	// The dead flag is set before the RPC goes out, and observers fire
	// only after the RPC.
	require.Equal(t, []string{"send:dead", "observer-murder:dead"}, f.sender.events)
}

func TestFailedMurderAnimatesWithoutKilling(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.tr.Murder(context.Background(), f.g, f.killer, f.vic, protocol.MurderFailedProtected))

	assert.False(t, f.vic.Info().IsDead(), "failed attempt leaves the target alive")
	require.Equal(t, []string{"send", "observer-murder"}, f.sender.events,
		"the RPC still goes out so clients animate the attempt")
}

func TestProtectRejectsGuardianTarget(t *testing.T) {
	f := newFixture(t)

	err := f.tr.Protect(context.Background(), f.g, f.guardian, f.guardian)
	require.ErrorIs(t, err, ErrProtectGuardian)
	assert.Empty(t, f.sender.events)
}

func TestProtectMarksTargetAndEmits(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.tr.Protect(context.Background(), f.g, f.guardian, f.crew))

	assert.True(t, f.crew.Info().IsProtected())
	require.Len(t, f.sender.sent, 1)
}

func TestExileRejectsDead(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.tr.Exile(context.Background(), f.g, f.crew))
	err := f.tr.Exile(context.Background(), f.g, f.crew)
	require.ErrorIs(t, err, ErrAlreadyDead)

	assert.Equal(t, protocol.DeathReasonExile, f.crew.Info().LastDeathReason())
	// Exactly one exile made it through: one send, one notification.
	require.Equal(t, []string{"send", "observer-exile"}, f.sender.events)
}

func TestExileMutatesBeforeNotifying(t *testing.T) {
	f := newFixture(t)
	f.sender.probe = func() string {
		if f.crew.Info().IsDead() {
			return "dead"
		}
		return "alive"
	}

	require.NoError(t, f.tr.Exile(context.Background(), f.g, f.crew))
	require.Equal(t, []string{"send:dead", "observer-exile:dead"}, f.sender.events)
}

func TestVanishAndAppear(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.tr.StartVanish(context.Background(), f.g, f.killer))
	require.NoError(t, f.tr.StartAppear(context.Background(), f.g, f.killer, true))
	require.Len(t, f.sender.sent, 2)

	// StartAppear carries a single boolean after the call code.
	appear := f.sender.sent[1]
	assert.Equal(t, byte(protocol.RPCStartAppear), appear[len(appear)-2])
	assert.Equal(t, byte(1), appear[len(appear)-1])
}

func TestOutfitMutatesThenAnnounces(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.tr.SetName(context.Background(), f.g, f.crew, "scarlet"))
	require.NoError(t, f.tr.SetColor(context.Background(), f.g, f.crew, protocol.ColorPurple))

	outfit := f.crew.Info().Outfit()
	assert.Equal(t, "scarlet", outfit.Name)
	assert.Equal(t, protocol.ColorPurple, outfit.Color)
	require.Len(t, f.sender.sent, 2)
}

func TestSendChatToDefaultsToSubject(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.tr.SendChatTo(context.Background(), f.g, f.crew, "psst", nil))
	require.Equal(t, []string{"send"}, f.sender.events)
}
