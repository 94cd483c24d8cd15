package registry

import (
	"fmt"
	"strings"
)

// Match selects how a registered prefix is compared with a path.
type Match int

const (
	// MatchPrefix is a literal byte-wise prefix test: "/data" matches "/data2/file".
	MatchPrefix Match = iota
	// MatchSegment only matches the prefix itself or paths below it:
	// "/data" matches "/data" and "/data/file" but not "/data2/file".
	MatchSegment
)

// ParseMatch parses "prefix" or "segment". The empty string is MatchPrefix.
func ParseMatch(s string) (Match, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "prefix":
		return MatchPrefix, nil
	case "segment":
		return MatchSegment, nil
	default:
		return MatchPrefix, fmt.Errorf("invalid match mode %q (allowed: %q, %q)", s, "prefix", "segment")
	}
}

func (m Match) String() string {
	switch m {
	case MatchPrefix:
		return "prefix"
	case MatchSegment:
		return "segment"
	default:
		return fmt.Sprintf("Match(%d)", int(m))
	}
}

func (m Match) matches(prefix, path string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if m != MatchSegment {
		return true
	}
	if len(path) == len(prefix) || strings.HasSuffix(prefix, "/") {
		return true
	}
	return path[len(prefix)] == '/'
}
