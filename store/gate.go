package store

import (
	"sync"

	"github.com/Retroinn/MotoCrew/config"

	"go.uber.org/atomic"
)

var (
	gateOnce         sync.Once
	remoteConfigured atomic.Bool
)

// IsRemoteConfigured reports whether the hosted backend is usable. It is
// computed once per process from the two backend settings; re-evaluating it
// mid-session would break the one-active-backend assumption every component
// relies on.
func IsRemoteConfigured() bool {
	gateOnce.Do(func() {
		remoteConfigured.Store(gateOpen(config.GetRemoteURL(), config.GetRemoteKey()))
	})
	return remoteConfigured.Load()
}

// gateOpen is the pure gate function: real values for both settings, not the
// shipped placeholders.
func gateOpen(url, key string) bool {
	if url == "" || key == "" {
		return false
	}
	return url != config.RemoteURLPlaceholder && key != config.RemoteKeyPlaceholder
}
