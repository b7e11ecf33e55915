package leaderboard

import "rankview/internal/models"

const viewerSuffix = " (you)"

// Placement says where the viewer's own standing is shown relative to the
// visible page.
type Placement string

const (
	PlacementNone   Placement = "none"
	PlacementInList Placement = "in_list"
	PlacementAbove  Placement = "above"
	PlacementBelow  Placement = "below"
)

// Banner reports whether the placement renders a separate viewer banner.
func (p Placement) Banner() bool {
	return p == PlacementAbove || p == PlacementBelow
}

type Reconciliation struct {
	Placement   Placement              `json:"placement"`
	Self        *models.SelfRankRecord `json:"self,omitempty"`
	ViewerIndex int                    `json:"viewer_index"`
}

func noReconciliation() Reconciliation {
	return Reconciliation{Placement: PlacementNone, ViewerIndex: -1}
}

// Reconcile decides where the viewer appears relative to a page starting at
// listStartRank. Self is set only when a banner is rendered. Empty pages and
// malformed input never produce a banner.
func Reconcile(entries []models.LeaderboardEntry, listStartRank int, self *models.SelfRankRecord) Reconciliation {
	r := noReconciliation()
	if self == nil || len(entries) == 0 || listStartRank < 1 {
		return r
	}
	if self.Rank != nil && *self.Rank < 1 {
		return r
	}

	for i := range entries {
		if IsViewer(entries[i], self) {
			r.Placement = PlacementInList
			r.ViewerIndex = i
			return r
		}
	}

	r.Self = self
	if self.Rank != nil && *self.Rank < listStartRank {
		r.Placement = PlacementAbove
	} else {
		// Unranked viewers and viewers past the page end share the below banner.
		r.Placement = PlacementBelow
	}
	return r
}

// IsViewer is the per-row highlight predicate. It ignores ranks entirely.
func IsViewer(entry models.LeaderboardEntry, self *models.SelfRankRecord) bool {
	if self == nil {
		return false
	}
	return entry.AuthorProfile.SameAuthor(self.AuthorProfile)
}

type Row struct {
	Entry       models.LeaderboardEntry `json:"entry"`
	DisplayRank int                     `json:"display_rank"`
	IsViewer    bool                    `json:"is_viewer"`
	Clickable   bool                    `json:"clickable"`
}

// Label is the name shown for the row, suffixed for the viewer's own row.
func (r Row) Label() string {
	if r.IsViewer {
		return r.Entry.AuthorProfile.FullName + viewerSuffix
	}
	return r.Entry.AuthorProfile.FullName
}

// BuildRows derives display ranks and highlight flags for a fetched page.
// Nothing here is cached: rows are rebuilt from the page on every call.
func BuildRows(page *models.Page, pageNumber, pageSize int, self *models.SelfRankRecord) []Row {
	if page.Empty() {
		return nil
	}
	ranks := page.DisplayRanks(pageNumber, pageSize)
	rows := make([]Row, len(page.Entries))
	for i, e := range page.Entries {
		rows[i] = Row{
			Entry:       e,
			DisplayRank: ranks[i],
			IsViewer:    IsViewer(e, self),
			Clickable:   e.AuthorProfile.Addressable(),
		}
	}
	return rows
}
