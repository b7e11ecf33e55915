package services

import (
	"context"
	"errors"
	"rankview/internal/leaderboard"
	"rankview/internal/models"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *memCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// fakeClient serves a fixed board of total entries, pageSize per page.
type fakeClient struct {
	mu        sync.Mutex
	total     int
	self      *models.SelfRankRecord
	pageErr   error
	selfErr   error
	pageCalls int
	selfCalls int
	lastSize  int
}

func (f *fakeClient) FetchPage(_ context.Context, _ models.Kind, _ models.Period, page, pageSize int) (*models.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls++
	f.lastSize = pageSize
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	start := (page-1)*pageSize + 1
	var entries []models.LeaderboardEntry
	for r := start; r < start+pageSize && r <= f.total; r++ {
		rank, id := r, int64(1000+r)
		entries = append(entries, models.LeaderboardEntry{
			ID:            "e",
			AuthorProfile: models.AuthorProfile{ID: &id, FullName: "user"},
			Rank:          &rank,
			Amount:        float64(100 - r),
		})
	}
	totalPages := (f.total + pageSize - 1) / pageSize
	return &models.Page{
		Entries:     entries,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}, nil
}

func (f *fakeClient) FetchSelfRank(_ context.Context, _ models.Kind, _ models.Period, credentials string) (*models.SelfRankRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if credentials == "" {
		return nil, nil
	}
	f.selfCalls++
	return f.self, f.selfErr
}

func selfAt(authorID int64, rank int) *models.SelfRankRecord {
	return &models.SelfRankRecord{
		ID:            "me",
		AuthorProfile: models.AuthorProfile{ID: &authorID, FullName: "Me"},
		Rank:          &rank,
	}
}

func newTestService(client RankingClientInterface, pageSize int) (*LeaderboardService, *memCache, *svcMetrics) {
	conf := clientConfig("http://upstream.test")
	conf.Leaderboard.PageSize = pageSize
	cache := newMemCache()
	metrics := newSvcMetrics()
	svc := NewLeaderboardService(conf, client, cache, &svcLogger{}, metrics).(*LeaderboardService)
	return svc, cache, metrics
}

func TestLeaderboardService_PageSizeDefaults(t *testing.T) {
	svc, _, _ := newTestService(&fakeClient{}, 0)
	assert.Equal(t, models.DefaultPageSize, svc.PageSize())
}

func TestLeaderboardService_FetchPageUsesCache(t *testing.T) {
	client := &fakeClient{total: 50}
	svc, cache, _ := newTestService(client, 10)

	first, err := svc.FetchPage(context.Background(), models.KindFunder, models.PeriodAllTime, 2)
	require.NoError(t, err)
	second, err := svc.FetchPage(context.Background(), models.KindFunder, models.PeriodAllTime, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, client.pageCalls)
	assert.Equal(t, 10, client.lastSize)
	assert.Equal(t, first, second)
	_, ok := cache.Get("page:funder:all_time:2")
	assert.True(t, ok)
}

func TestLeaderboardService_FetchPageNormalizesKey(t *testing.T) {
	client := &fakeClient{total: 50}
	svc, cache, _ := newTestService(client, 10)

	_, err := svc.FetchPage(context.Background(), "nobody", "forever", 0)
	require.NoError(t, err)
	_, ok := cache.Get("page:funder:all_time:1")
	assert.True(t, ok)
}

func TestLeaderboardService_FetchPageErrorIsWrapped(t *testing.T) {
	upstream := &UpstreamError{Op: OpFetchPage, Status: 500}
	svc, cache, _ := newTestService(&fakeClient{pageErr: upstream}, 10)

	_, err := svc.FetchPage(context.Background(), models.KindFunder, models.PeriodAllTime, 1)
	var target *UpstreamError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 500, target.Status)
	assert.Empty(t, cache.data)
}

func TestLeaderboardService_PrefetchBypassesCache(t *testing.T) {
	client := &fakeClient{total: 50}
	svc, _, _ := newTestService(client, 10)
	state := models.PageState{Kind: models.KindFunder, Period: models.Period7Days, Page: 1}

	require.NoError(t, svc.Prefetch(context.Background(), state))
	require.NoError(t, svc.Prefetch(context.Background(), state))
	_, err := svc.FetchPage(context.Background(), state.Kind, state.Period, state.Page)
	require.NoError(t, err)

	assert.Equal(t, 2, client.pageCalls)
}

func TestLeaderboardService_FetchSelfRankCachesPerCredential(t *testing.T) {
	client := &fakeClient{self: selfAt(1015, 15)}
	svc, _, _ := newTestService(client, 10)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rec, err := svc.FetchSelfRank(ctx, models.KindFunder, models.PeriodAllTime, "Bearer a")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, 15, *rec.Rank)
	}
	_, err := svc.FetchSelfRank(ctx, models.KindFunder, models.PeriodAllTime, "Bearer b")
	require.NoError(t, err)
	_, err = svc.FetchSelfRank(ctx, models.KindFunder, models.Period7Days, "Bearer a")
	require.NoError(t, err)

	assert.Equal(t, 3, client.selfCalls)
}

func TestLeaderboardService_FetchSelfRankCachesNoRecord(t *testing.T) {
	client := &fakeClient{}
	svc, _, _ := newTestService(client, 10)

	for i := 0; i < 2; i++ {
		rec, err := svc.FetchSelfRank(context.Background(), models.KindFunder, models.PeriodAllTime, "Bearer a")
		require.NoError(t, err)
		assert.Nil(t, rec)
	}
	assert.Equal(t, 1, client.selfCalls)
}

func TestLeaderboardService_FetchSelfRankAnonymous(t *testing.T) {
	client := &fakeClient{self: selfAt(1, 1)}
	svc, _, _ := newTestService(client, 10)

	rec, err := svc.FetchSelfRank(context.Background(), models.KindFunder, models.PeriodAllTime, "")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, client.selfCalls)
}

func TestLeaderboardService_BuildViewBanners(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		self      *models.SelfRankRecord
		placement leaderboard.Placement
		viewerRow int
	}{
		{"viewer above page", 3, selfAt(1015, 15), leaderboard.PlacementAbove, -1},
		{"viewer below page", 1, selfAt(1015, 15), leaderboard.PlacementBelow, -1},
		{"viewer on page", 2, selfAt(1015, 15), leaderboard.PlacementInList, 4},
		{"unranked viewer", 1, &models.SelfRankRecord{AuthorProfile: models.AuthorProfile{FullName: "Me"}}, leaderboard.PlacementBelow, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{total: 50, self: tt.self}
			svc, _, metrics := newTestService(client, 10)

			view, err := svc.BuildView(context.Background(), models.PageState{Kind: models.KindFunder, Page: tt.page}, "Bearer a")
			require.NoError(t, err)

			assert.Equal(t, leaderboard.StatusSuccess, view.Status)
			assert.Equal(t, models.PeriodAllTime, view.Period)
			assert.Equal(t, (tt.page-1)*10+1, view.ListStartRank)
			assert.Equal(t, tt.placement, view.Placement)
			assert.Equal(t, SelfResolved, view.SelfStatus)
			require.Len(t, view.Rows, 10)
			for i, row := range view.Rows {
				assert.Equal(t, i == tt.viewerRow, row.IsViewer, "row %d", i)
				assert.Equal(t, view.ListStartRank+i, row.DisplayRank)
			}
			assert.Equal(t, 1, metrics.placements["funder:"+string(tt.placement)])
		})
	}
}

func TestLeaderboardService_BuildViewAnonymous(t *testing.T) {
	client := &fakeClient{total: 50, self: selfAt(1015, 15)}
	svc, _, _ := newTestService(client, 10)

	view, err := svc.BuildView(context.Background(), models.PageState{Kind: models.KindReviewer, Period: models.Period1Year, Page: 2}, "")
	require.NoError(t, err)

	assert.Equal(t, SelfAnonymous, view.SelfStatus)
	assert.Nil(t, view.Self)
	assert.Equal(t, leaderboard.PlacementNone, view.Placement)
	assert.Zero(t, client.selfCalls)
	for _, row := range view.Rows {
		assert.False(t, row.IsViewer)
	}
}

func TestLeaderboardService_BuildViewSelfErrorDoesNotFail(t *testing.T) {
	client := &fakeClient{total: 50, selfErr: errors.New("auth service down")}
	svc, _, _ := newTestService(client, 10)

	view, err := svc.BuildView(context.Background(), models.PageState{Page: 1}, "Bearer a")
	require.NoError(t, err)
	assert.Equal(t, SelfError, view.SelfStatus)
	assert.Equal(t, leaderboard.PlacementNone, view.Placement)
	assert.Len(t, view.Rows, 10)
}

func TestLeaderboardService_BuildViewPageErrorFails(t *testing.T) {
	client := &fakeClient{pageErr: &UpstreamError{Op: OpFetchPage, Status: 502}, self: selfAt(1, 1)}
	svc, _, _ := newTestService(client, 10)

	_, err := svc.BuildView(context.Background(), models.PageState{Page: 1}, "Bearer a")
	var target *UpstreamError
	assert.ErrorAs(t, err, &target)
}

func TestLeaderboardService_BuildViewEmpty(t *testing.T) {
	client := &fakeClient{total: 0, self: selfAt(1015, 15)}
	svc, _, _ := newTestService(client, 10)

	view, err := svc.BuildView(context.Background(), models.PageState{Page: 1}, "Bearer a")
	require.NoError(t, err)
	assert.Equal(t, leaderboard.StatusEmpty, view.Status)
	assert.Equal(t, leaderboard.PlacementNone, view.Placement)
	assert.NotNil(t, view.Rows)
	assert.Empty(t, view.Rows)
}

func TestLeaderboardService_BuildViewPastLastPage(t *testing.T) {
	client := &fakeClient{total: 50}
	svc, _, _ := newTestService(client, 10)

	view, err := svc.BuildView(context.Background(), models.PageState{Page: 9}, "")
	require.NoError(t, err)
	assert.Equal(t, 9, view.Page)
	assert.Equal(t, leaderboard.StatusEmpty, view.Status)
	assert.Equal(t, 5, view.TotalPages)
}

func TestLeaderboardView_AsPage(t *testing.T) {
	client := &fakeClient{total: 25}
	svc, _, _ := newTestService(client, 10)

	view, err := svc.BuildView(context.Background(), models.PageState{Page: 3}, "")
	require.NoError(t, err)

	page := view.AsPage()
	assert.Len(t, page.Entries, 5)
	assert.Equal(t, 3, page.TotalPages)
	assert.False(t, page.HasNextPage)
	assert.True(t, page.HasPrevPage)
	assert.Equal(t, models.PageState{Kind: models.KindFunder, Period: models.PeriodAllTime, Page: 3}, view.State())
}
