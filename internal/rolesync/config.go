package rolesync

import "time"

// Config holds the engine's timing constants. The delays are calibrated
// against client-side animation durations, so they are tunable rather
// than hardcoded; the defaults are the values that shipped.
type Config struct {
	// AssignSettle is the pause after the role-assignment burst at game
	// start.
	AssignSettle time.Duration

	// ResyncSettle is the pause between per-player bursts during a bulk
	// resync, to avoid saturating outbound bandwidth.
	ResyncSettle time.Duration

	// BlackScreenSettle is the wait after a role reveal before the
	// black-screen mitigation hands out stand-in impostors.
	BlackScreenSettle time.Duration

	// BlackScreenRevert is the wait before stand-in roles are reverted.
	BlackScreenRevert time.Duration
}

func DefaultConfig() Config {
	return Config{
		AssignSettle:      200 * time.Millisecond,
		ResyncSettle:      100 * time.Millisecond,
		BlackScreenSettle: 8500 * time.Millisecond,
		BlackScreenRevert: 4500 * time.Millisecond,
	}
}
