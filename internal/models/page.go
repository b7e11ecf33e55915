package models

import (
	"fmt"
	"math"
	"strconv"
)

const (
	DefaultPageSize = 10

	// MaxPage bounds page numbers taken from untrusted input.
	MaxPage = 1_000_000
)

type PageState struct {
	Kind   Kind   `json:"kind"`
	Period Period `json:"period"`
	Page   int    `json:"page"`
}

// Normalize returns a copy with both tokens defaulted and page clamped to
// [1, MaxPage].
func (s PageState) Normalize() PageState {
	s.Kind = NormalizeKind(string(s.Kind))
	s.Period = NormalizePeriod(string(s.Period))
	switch {
	case s.Page < 1:
		s.Page = 1
	case s.Page > MaxPage:
		s.Page = MaxPage
	}
	return s
}

func (s PageState) Key() string {
	return string(s.Kind) + ":" + string(s.Period) + ":" + strconv.Itoa(s.Page)
}

// SameFilter reports whether both states share kind and period, i.e. whether
// a self-rank fetched for one is valid for the other.
func (s PageState) SameFilter(other PageState) bool {
	return s.Kind == other.Kind && s.Period == other.Period
}

type Page struct {
	Entries     []LeaderboardEntry `json:"entries"`
	TotalPages  int                `json:"total_pages"`
	HasNextPage bool               `json:"has_next_page"`
	HasPrevPage bool               `json:"has_prev_page"`
}

func (p *Page) Empty() bool {
	return p == nil || len(p.Entries) == 0
}

// DisplayRanks computes the rank shown for each entry of the page.
func (p *Page) DisplayRanks(page, pageSize int) []int {
	if p == nil {
		return nil
	}
	start := ListStartRank(page, pageSize)
	ranks := make([]int, len(p.Entries))
	for i := range p.Entries {
		ranks[i] = DisplayRank(p.Entries[i], start, i)
	}
	return ranks
}

// CheckRanks verifies that explicit ranks strictly increase by position.
func (p *Page) CheckRanks() error {
	if p == nil {
		return nil
	}
	last, lastIdx := 0, -1
	for i, e := range p.Entries {
		if e.Rank == nil {
			continue
		}
		if *e.Rank < 1 {
			return fmt.Errorf("entry %d: rank %d is below 1", i, *e.Rank)
		}
		if lastIdx >= 0 && *e.Rank <= last {
			return fmt.Errorf("entry %d: rank %d does not follow rank %d at entry %d", i, *e.Rank, last, lastIdx)
		}
		last, lastIdx = *e.Rank, i
	}
	return nil
}

// ListStartRank is the rank of the first row of a page. It saturates at
// math.MaxInt instead of overflowing.
func ListStartRank(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if page-1 > (math.MaxInt-1)/pageSize {
		return math.MaxInt
	}
	return (page-1)*pageSize + 1
}

// DisplayRank falls back to the row position when upstream omits the rank.
func DisplayRank(entry LeaderboardEntry, listStartRank, index int) int {
	if entry.Rank != nil {
		return *entry.Rank
	}
	if listStartRank > math.MaxInt-index {
		return math.MaxInt
	}
	return listStartRank + index
}
