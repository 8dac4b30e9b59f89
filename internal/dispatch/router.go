// Package dispatch resolves "send to whom": broadcast-except, targeted,
// and the per-recipient desynchronized sweep. It owns recipient
// resolution and per-recipient failure policy; building the payload
// bytes is the caller's job.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/desyncd/crew-sync-backend/internal/metrics"
	"github.com/desyncd/crew-sync-backend/internal/state"
)

// Sender is the delivery primitive consumed from the transport layer.
// Both calls are asynchronous at the transport level and may fail with
// a delivery error the router treats as non-fatal per recipient.
type Sender interface {
	// SendToAllExcept delivers buf to every client in the named game's
	// delivery group except the given connection; the zero ConnID
	// excludes nobody.
	SendToAllExcept(ctx context.Context, game string, buf []byte, except state.ConnID) error

	// SendTo delivers buf to exactly one connection.
	SendTo(ctx context.Context, buf []byte, to state.ConnID) error
}

// Router converts character references into addressed transport sends.
type Router struct {
	sender Sender
	log    *zap.Logger
}

func NewRouter(sender Sender, log *zap.Logger) *Router {
	return &Router{sender: sender, log: log}
}

// Broadcast delivers buf to every client in the game.
func (r *Router) Broadcast(ctx context.Context, g *state.Game, buf []byte) error {
	return r.BroadcastExcept(ctx, g, buf, uuid.Nil)
}

// BroadcastExcept delivers buf to every client in the game except one.
// The send is scoped to the game's delivery group; clients of other
// matches never see it.
func (r *Router) BroadcastExcept(ctx context.Context, g *state.Game, buf []byte, except state.ConnID) error {
	if g.Ended() {
		return state.ErrGameEnded
	}
	if err := r.sender.SendToAllExcept(ctx, g.Code(), buf, except); err != nil {
		metrics.DeliveryFailures.Inc()
		return fmt.Errorf("broadcast in game %s: %w", g.Code(), err)
	}
	metrics.MessagesSent.WithLabelValues(metrics.ModeBroadcast).Inc()
	return nil
}

// ToCharacter resolves the target's connection and delivers buf to it
// alone. Resolution failure surfaces state.ErrNotConnected.
func (r *Router) ToCharacter(ctx context.Context, g *state.Game, target *state.Character, buf []byte) error {
	if g.Ended() {
		return state.ErrGameEnded
	}
	conn, err := g.ConnectionFor(target)
	if err != nil {
		return fmt.Errorf("resolve character %d: %w", target.NetID(), err)
	}
	if err := r.sender.SendTo(ctx, buf, conn); err != nil {
		metrics.DeliveryFailures.Inc()
		return fmt.Errorf("send to character %d: %w", target.NetID(), err)
	}
	metrics.MessagesSent.WithLabelValues(metrics.ModeTargeted).Inc()
	return nil
}

// SweepReport summarizes a desynchronized sweep: how many recipients
// were reached, which were skipped over routing, and the combined
// per-recipient failures.
type SweepReport struct {
	Sent    int
	Skipped []uint32 // character NetIds with no live connection
	Err     error
}

// Sweep visits every spawned character not present in the exclusion
// set. visit builds and sends the recipient-specific payload; a routing
// failure inside it skips that recipient, any other failure is recorded
// and the sweep continues; one bad recipient never aborts the sweep.
func (r *Router) Sweep(ctx context.Context, g *state.Game, exclude map[*state.Character]struct{}, visit func(recipient *state.Character) error) SweepReport {
	var report SweepReport
	if g.Ended() {
		report.Err = state.ErrGameEnded
		return report
	}

	for _, recipient := range g.Characters() {
		if _, skip := exclude[recipient]; skip {
			continue
		}
		err := visit(recipient)
		if err == nil {
			report.Sent++
			continue
		}
		if errors.Is(err, state.ErrNotConnected) {
			// Disconnect race; the roster snapshot is stale for this
			// recipient.
			metrics.RoutingSkips.Inc()
			report.Skipped = append(report.Skipped, recipient.NetID())
			r.log.Debug("sweep recipient skipped",
				zap.String("game", g.Code()),
				zap.Uint32("net_id", recipient.NetID()))
			continue
		}
		report.Err = multierr.Append(report.Err, fmt.Errorf("sweep recipient %d: %w", recipient.NetID(), err))
	}
	return report
}
