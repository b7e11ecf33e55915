package leaderboard

import (
	"context"
	"fmt"
	"rankview/internal/models"
	"rankview/internal/providers"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (l *testLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (l *testLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (l *testLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (l *testLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (l *testLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (l *testLogger) Close()                                                  {}

func intPtr(v int) *int    { return &v }
func idPtr(v int64) *int64 { return &v }

// entriesRanked builds n entries ranked from start; author ids equal 1000+rank.
func entriesRanked(start, n int) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, n)
	for i := range out {
		rank := start + i
		out[i] = models.LeaderboardEntry{
			ID:            fmt.Sprintf("c-%d", rank),
			AuthorProfile: models.AuthorProfile{ID: idPtr(int64(1000 + rank)), FullName: fmt.Sprintf("User %d", rank)},
			Rank:          intPtr(rank),
			Amount:        float64(1000 - rank),
		}
	}
	return out
}

func selfRanked(authorID int64, rank *int) *models.SelfRankRecord {
	return &models.SelfRankRecord{
		AuthorProfile: models.AuthorProfile{ID: idPtr(authorID), FullName: "Me"},
		Rank:          rank,
	}
}

// pageFor returns a full ranked page for a 10-row board with 5 pages.
func pageFor(page int) *models.Page {
	return &models.Page{
		Entries:     entriesRanked((page-1)*10+1, 10),
		TotalPages:  5,
		HasPrevPage: page > 1,
		HasNextPage: page < 5,
	}
}

type reply struct {
	page *models.Page
	self *models.SelfRankRecord
	err  error
}

type pendingCall struct {
	state models.PageState
	reply chan reply
}

// manualSource parks every request until the test answers it. It ignores
// context cancellation, like a transport without abort support.
type manualSource struct {
	pages chan *pendingCall
	selfs chan *pendingCall
}

func newManualSource() *manualSource {
	return &manualSource{
		pages: make(chan *pendingCall, 64),
		selfs: make(chan *pendingCall, 64),
	}
}

func (m *manualSource) FetchPage(_ context.Context, kind models.Kind, period models.Period, page int) (*models.Page, error) {
	c := &pendingCall{state: models.PageState{Kind: kind, Period: period, Page: page}, reply: make(chan reply, 1)}
	m.pages <- c
	r := <-c.reply
	return r.page, r.err
}

func (m *manualSource) FetchSelfRank(_ context.Context, kind models.Kind, period models.Period) (*models.SelfRankRecord, error) {
	c := &pendingCall{state: models.PageState{Kind: kind, Period: period}, reply: make(chan reply, 1)}
	m.selfs <- c
	r := <-c.reply
	return r.self, r.err
}

func (m *manualSource) nextPage(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-m.pages:
		return c
	case <-time.After(time.Second):
		t.Fatal("expected a page request")
		return nil
	}
}

func (m *manualSource) nextSelf(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-m.selfs:
		return c
	case <-time.After(time.Second):
		t.Fatal("expected a self-rank request")
		return nil
	}
}

func (m *manualSource) assertNoSelf(t *testing.T) {
	t.Helper()
	select {
	case c := <-m.selfs:
		t.Fatalf("unexpected self-rank request for %s", c.state.Key())
	case <-time.After(20 * time.Millisecond):
	}
}

// autoSource answers immediately and counts calls.
type autoSource struct {
	mu        sync.Mutex
	self      *models.SelfRankRecord
	pageErr   error
	selfErr   error
	pageCalls []models.PageState
	selfCalls []models.PageState
}

func (a *autoSource) FetchPage(_ context.Context, kind models.Kind, period models.Period, page int) (*models.Page, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pageCalls = append(a.pageCalls, models.PageState{Kind: kind, Period: period, Page: page})
	if a.pageErr != nil {
		return nil, a.pageErr
	}
	return pageFor(page), nil
}

func (a *autoSource) FetchSelfRank(_ context.Context, kind models.Kind, period models.Period) (*models.SelfRankRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selfCalls = append(a.selfCalls, models.PageState{Kind: kind, Period: period})
	return a.self, a.selfErr
}

func (a *autoSource) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pageCalls), len(a.selfCalls)
}

func waitStatus(t *testing.T, s *Session, want Status) View {
	t.Helper()
	require.Eventually(t, func() bool { return s.View().Status == want }, time.Second, time.Millisecond)
	return s.View()
}

func waitSelf(t *testing.T, s *Session, want SelfStatus) View {
	t.Helper()
	require.Eventually(t, func() bool { return s.View().SelfStatus == want }, time.Second, time.Millisecond)
	return s.View()
}
