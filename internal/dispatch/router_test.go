package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/desyncd/crew-sync-backend/internal/state"
)

type sentMsg struct {
	buf    []byte
	to     state.ConnID
	except state.ConnID
	game   string
	mode   string
}

// fakeSender records every delivery and can be told to fail.
type fakeSender struct {
	sent []sentMsg
	fail error
}

func (f *fakeSender) SendToAllExcept(_ context.Context, game string, buf []byte, except state.ConnID) error {
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentMsg{buf: buf, except: except, game: game, mode: "broadcast"})
	return nil
}

func (f *fakeSender) SendTo(_ context.Context, buf []byte, to state.ConnID) error {
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentMsg{buf: buf, to: to, mode: "targeted"})
	return nil
}

func spawn(t *testing.T, g *state.Game) (*state.Player, *state.Character) {
	t.Helper()
	p := state.NewPlayer(uuid.New())
	g.AddPlayer(p)
	c := state.NewCharacter(g.AllocateNetID(), state.NewPlayerInfo(g.AllocateNetID(), state.Outfit{}))
	g.BindCharacter(p, c)
	return p, c
}

func TestBroadcastExcept(t *testing.T) {
	g := state.NewGame("ABCDEF")
	sender := &fakeSender{}
	r := NewRouter(sender, zap.NewNop())

	except := uuid.New()
	require.NoError(t, r.BroadcastExcept(context.Background(), g, []byte{1}, except))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, except, sender.sent[0].except)
	assert.Equal(t, g.Code(), sender.sent[0].game,
		"a broadcast must be addressed to its own game's delivery group")
}

func TestEndedGameRefusesSends(t *testing.T) {
	g := state.NewGame("ABCDEF")
	_, c := spawn(t, g)
	g.End()

	sender := &fakeSender{}
	r := NewRouter(sender, zap.NewNop())

	require.ErrorIs(t, r.Broadcast(context.Background(), g, []byte{1}), state.ErrGameEnded)
	require.ErrorIs(t, r.ToCharacter(context.Background(), g, c, []byte{1}), state.ErrGameEnded)
	report := r.Sweep(context.Background(), g, nil, func(*state.Character) error { return nil })
	require.ErrorIs(t, report.Err, state.ErrGameEnded)
	assert.Empty(t, sender.sent)
}

func TestToCharacterResolvesConnection(t *testing.T) {
	g := state.NewGame("ABCDEF")
	p, c := spawn(t, g)

	sender := &fakeSender{}
	r := NewRouter(sender, zap.NewNop())

	require.NoError(t, r.ToCharacter(context.Background(), g, c, []byte{1}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, p.Owner(), sender.sent[0].to)
}

func TestToCharacterUnresolvable(t *testing.T) {
	g := state.NewGame("ABCDEF")
	p, c := spawn(t, g)
	g.RemovePlayer(p.Owner())

	r := NewRouter(&fakeSender{}, zap.NewNop())
	err := r.ToCharacter(context.Background(), g, c, []byte{1})
	require.ErrorIs(t, err, state.ErrNotConnected)
}

func TestSweepSkipsDisconnectedAndContinues(t *testing.T) {
	g := state.NewGame("ABCDEF")
	_, c1 := spawn(t, g)
	p2, c2 := spawn(t, g)
	_, c3 := spawn(t, g)

	sender := &fakeSender{}
	r := NewRouter(sender, zap.NewNop())

	var visited []*state.Character
	report := r.Sweep(context.Background(), g, nil, func(rec *state.Character) error {
		if rec == c1 {
			// c2's client disconnects while the sweep is in flight; the
			// roster snapshot taken at sweep start still lists it.
			g.RemovePlayer(p2.Owner())
		}
		visited = append(visited, rec)
		return r.ToCharacter(context.Background(), g, rec, []byte{1})
	})

	require.NoError(t, report.Err)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, []uint32{c2.NetID()}, report.Skipped)
	assert.Contains(t, visited, c3, "later recipients still reached")
}

func TestSweepCollectsFailuresWithoutAborting(t *testing.T) {
	g := state.NewGame("ABCDEF")
	spawn(t, g)
	spawn(t, g)
	spawn(t, g)

	r := NewRouter(&fakeSender{}, zap.NewNop())

	calls := 0
	boom := errors.New("boom")
	report := r.Sweep(context.Background(), g, nil, func(*state.Character) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})

	assert.Equal(t, 3, calls, "a recipient failure must not short-circuit the sweep")
	assert.Equal(t, 2, report.Sent)
	require.ErrorIs(t, report.Err, boom)
}

func TestSweepHonorsExclusionSet(t *testing.T) {
	g := state.NewGame("ABCDEF")
	_, c1 := spawn(t, g)
	_, c2 := spawn(t, g)
	_, c3 := spawn(t, g)

	r := NewRouter(&fakeSender{}, zap.NewNop())

	var visited []*state.Character
	report := r.Sweep(context.Background(), g,
		map[*state.Character]struct{}{c1: {}, c3: {}},
		func(rec *state.Character) error {
			visited = append(visited, rec)
			return nil
		})

	require.NoError(t, report.Err)
	require.Equal(t, []*state.Character{c2}, visited)
	assert.Equal(t, 1, report.Sent)
}
