package models

import "strings"

// Kind selects the metric family a leaderboard is ranked by.
type Kind string

const (
	KindFunder   Kind = "funder"
	KindReviewer Kind = "reviewer"

	DefaultKind = KindFunder
)

var kinds = []Kind{KindFunder, KindReviewer}

func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind reports whether raw names a known kind.
func ParseKind(raw string) (Kind, bool) {
	candidate := Kind(strings.TrimSpace(raw))
	for _, k := range kinds {
		if k == candidate {
			return k, true
		}
	}
	return "", false
}

func NormalizeKind(raw string) Kind {
	if k, ok := ParseKind(raw); ok {
		return k
	}
	return DefaultKind
}

// Metric names the upstream source the amount column is computed from.
func (k Kind) Metric() string {
	switch k {
	case KindReviewer:
		return "review_rsc_earned"
	default:
		return "funding_contributed"
	}
}

func (k Kind) String() string {
	return string(k)
}
