package leaderboard

import "rankview/internal/models"

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// Terminal reports whether a fetch for the current state has settled.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusEmpty || s == StatusError
}

type SelfStatus string

const (
	SelfIdle     SelfStatus = "idle"
	SelfPending  SelfStatus = "pending"
	SelfResolved SelfStatus = "resolved"
	SelfError    SelfStatus = "error"
)

// listResult maps a fetch outcome onto a terminal status. A nil page with no
// error is treated as an empty result.
func listResult(page *models.Page, err error) (Status, *models.Page) {
	if err != nil {
		return StatusError, nil
	}
	if page == nil {
		page = &models.Page{}
	}
	if page.Empty() {
		return StatusEmpty, page
	}
	return StatusSuccess, page
}

// canPrev and canNext keep navigation inside the bounds reported by the last
// settled page. Loading and error states disable both directions.
func canPrev(status Status, page *models.Page) bool {
	if status != StatusSuccess && status != StatusEmpty {
		return false
	}
	return page != nil && page.HasPrevPage
}

func canNext(status Status, page *models.Page) bool {
	if status != StatusSuccess && status != StatusEmpty {
		return false
	}
	return page != nil && page.HasNextPage
}
