package services

import (
	"rankview/internal/leaderboard"
	"rankview/internal/models"
)

type SelfStatus string

const (
	SelfAnonymous SelfStatus = "anonymous"
	SelfResolved  SelfStatus = "resolved"
	SelfError     SelfStatus = "error"
)

// LeaderboardView is a ready-to-render page: rows with display ranks and
// highlight flags, plus where the viewer's own banner goes.
type LeaderboardView struct {
	Kind          models.Kind            `json:"kind"`
	Period        models.Period          `json:"period"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
	ListStartRank int                    `json:"list_start_rank"`
	TotalPages    int                    `json:"total_pages"`
	HasNextPage   bool                   `json:"has_next_page"`
	HasPrevPage   bool                   `json:"has_prev_page"`
	Status        leaderboard.Status     `json:"status"`
	Rows          []leaderboard.Row      `json:"rows"`
	Placement     leaderboard.Placement  `json:"placement"`
	Self          *models.SelfRankRecord `json:"self"`
	SelfStatus    SelfStatus             `json:"self_status"`
	Query         string                 `json:"query"`
}

func (v *LeaderboardView) State() models.PageState {
	return models.PageState{Kind: v.Kind, Period: v.Period, Page: v.Page}
}

// AsPage rebuilds the fetched page from the rendered rows.
func (v *LeaderboardView) AsPage() *models.Page {
	entries := make([]models.LeaderboardEntry, len(v.Rows))
	for i, row := range v.Rows {
		entries[i] = row.Entry
	}
	return &models.Page{
		Entries:     entries,
		TotalPages:  v.TotalPages,
		HasNextPage: v.HasNextPage,
		HasPrevPage: v.HasPrevPage,
	}
}
