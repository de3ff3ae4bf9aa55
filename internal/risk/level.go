package risk

import (
	"fmt"
	"strings"
)

// Level is the heuristic severity assigned to a report.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Rank orders levels by severity. Unknown levels rank lowest.
func (l Level) Rank() int {
	switch l {
	case High:
		return 2
	case Medium:
		return 1
	default:
		return 0
	}
}

func (l Level) Valid() bool {
	return l == Low || l == Medium || l == High
}

// Max returns the more severe of a and b.
func Max(a, b Level) Level {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseLevel accepts the canonical names and the Spanish forms used by the
// mobile client (bajo, medio, alto).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "bajo":
		return Low, nil
	case "medium", "medio":
		return Medium, nil
	case "high", "alto":
		return High, nil
	}
	return "", fmt.Errorf("unknown risk level %q", s)
}
