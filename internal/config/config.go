// Package config reads the server configuration from the environment.
// cmd/server loads a .env file first, so local overrides work without
// exporting anything.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/desyncd/crew-sync-backend/internal/rolesync"
)

type Config struct {
	Addr string
	Sync rolesync.Config
}

func Load() Config {
	sync := rolesync.DefaultConfig()
	sync.AssignSettle = durationMS("CREWSYNC_ASSIGN_SETTLE_MS", sync.AssignSettle)
	sync.ResyncSettle = durationMS("CREWSYNC_RESYNC_SETTLE_MS", sync.ResyncSettle)
	sync.BlackScreenSettle = durationMS("CREWSYNC_BLACKSCREEN_SETTLE_MS", sync.BlackScreenSettle)
	sync.BlackScreenRevert = durationMS("CREWSYNC_BLACKSCREEN_REVERT_MS", sync.BlackScreenRevert)

	addr := os.Getenv("CREWSYNC_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return Config{Addr: addr, Sync: sync}
}

func durationMS(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
