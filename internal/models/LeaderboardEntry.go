package models

type AuthorProfile struct {
	ID           *int64 `json:"id,omitempty"`
	FullName     string `json:"full_name"`
	ProfileImage string `json:"profile_image"`
	Headline     string `json:"headline,omitempty"`
}

// Addressable reports whether the profile can be navigated to.
func (a AuthorProfile) Addressable() bool {
	return a.ID != nil
}

// SameAuthor compares two profiles by id. Profiles without an id never match.
func (a AuthorProfile) SameAuthor(other AuthorProfile) bool {
	return a.ID != nil && other.ID != nil && *a.ID == *other.ID
}

type LeaderboardEntry struct {
	ID            string        `json:"id"`
	AuthorProfile AuthorProfile `json:"author_profile"`
	IsVerified    bool          `json:"is_verified"`
	Rank          *int          `json:"rank,omitempty"`
	Amount        float64       `json:"amount"`
}

// SelfRankRecord is the viewer's own standing. A nil Rank means the viewer
// had no qualifying activity in the period.
type SelfRankRecord LeaderboardEntry

func (s *SelfRankRecord) Ranked() bool {
	return s != nil && s.Rank != nil
}
