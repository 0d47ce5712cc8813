package instance

import (
	"os"

	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/env"
)

// ID identifies this process in logs. CLIPS_WORKER_ID wins, then the platform
// dyno name, then the hostname, then a fixed fallback derived from the kind.
func ID(kind string) string {
	if id := env.First("", config.EnvPrefix+"_WORKER_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	if kind == "" {
		kind = "worker"
	}
	return kind + "-0"
}
