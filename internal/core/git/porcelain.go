package git

import (
	"bytes"
	"strings"
)

// WorktreeListing is one record from `git worktree list --porcelain -z`.
// It mirrors git's own bookkeeping and is re-derived on every listing.
type WorktreeListing struct {
	Path           string
	Head           string
	Branch         string
	GitDir         string
	Bare           bool
	Detached       bool
	Locked         bool
	LockReason     string
	Prunable       bool
	PrunableReason string
	// Extras keeps unrecognized porcelain tokens keyed by their first word,
	// so newer git versions do not break the parser.
	Extras map[string]string
}

// ParsePorcelainZ parses NUL-delimited `git worktree list --porcelain -z`
// output. A `worktree <path>` token starts a new record; empty input yields
// an empty slice. The function is pure.
func ParsePorcelainZ(payload []byte) []WorktreeListing {
	listings := []WorktreeListing{}
	var current *WorktreeListing

	flush := func() {
		if current != nil {
			listings = append(listings, *current)
			current = nil
		}
	}

	for _, token := range bytes.Split(payload, []byte{0}) {
		if len(token) == 0 {
			continue
		}
		line := string(token)

		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &WorktreeListing{Path: strings.TrimPrefix(line, "worktree ")}
		case current == nil:
			// Tokens before the first worktree entry are malformed; skip.
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(line, "branch ")
		case strings.HasPrefix(line, "gitdir "):
			current.GitDir = strings.TrimPrefix(line, "gitdir ")
		case line == "bare":
			current.Bare = true
		case line == "detached":
			current.Detached = true
		case line == "locked":
			current.Locked = true
		case strings.HasPrefix(line, "locked "):
			current.Locked = true
			current.LockReason = strings.TrimPrefix(line, "locked ")
		case line == "prunable":
			current.Prunable = true
		case strings.HasPrefix(line, "prunable "):
			current.Prunable = true
			current.PrunableReason = strings.TrimPrefix(line, "prunable ")
		default:
			if current.Extras == nil {
				current.Extras = make(map[string]string)
			}
			key, value, _ := strings.Cut(line, " ")
			current.Extras[key] = value
		}
	}
	flush()

	return listings
}
