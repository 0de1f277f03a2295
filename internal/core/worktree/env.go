package worktree

import (
	"os"
	"strings"
)

// EnvAllowForceRemove must be set truthy for force=true removals to be
// permitted at all. This is a deliberately coarse, process-wide gate with no
// per-caller identity.
const EnvAllowForceRemove = "COPPICE_ALLOW_FORCE_REMOVE"

func envFlagEnabled(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func forceRemovalAllowed() bool {
	return envFlagEnabled(EnvAllowForceRemove)
}
