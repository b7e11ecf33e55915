package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"rankview/internal/leaderboard"
	"rankview/internal/models"
	"rankview/internal/providers"
	"rankview/internal/structures"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

type LeaderboardServiceInterface interface {
	PageSize() int
	FetchPage(ctx context.Context, kind models.Kind, period models.Period, page int) (*models.Page, error)
	FetchSelfRank(ctx context.Context, kind models.Kind, period models.Period, credentials string) (*models.SelfRankRecord, error)
	Prefetch(ctx context.Context, state models.PageState) error
	BuildView(ctx context.Context, state models.PageState, credentials string) (*LeaderboardView, error)
}

// LeaderboardService sits between the controllers and the ranking client and
// caches upstream answers. Page size is fixed for the life of the process so
// the fetcher and the reconciler always agree on ListStartRank.
type LeaderboardService struct {
	client   RankingClientInterface
	cache    providers.CacheProviderInterface
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	pageSize int
}

func NewLeaderboardService(conf *structures.Config, client RankingClientInterface, cache providers.CacheProviderInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) LeaderboardServiceInterface {
	pageSize := conf.Leaderboard.PageSize
	if pageSize < 1 {
		pageSize = models.DefaultPageSize
	}
	return &LeaderboardService{
		client:   client,
		cache:    cache,
		logger:   logger,
		metrics:  metrics,
		pageSize: pageSize,
	}
}

func (ls *LeaderboardService) PageSize() int {
	return ls.pageSize
}

func pageCacheKey(state models.PageState) string {
	return "page:" + state.Key()
}

func selfCacheKey(kind models.Kind, period models.Period, credentials string) string {
	sum := sha256.Sum256([]byte(credentials))
	return "self:" + string(kind) + ":" + string(period) + ":" + hex.EncodeToString(sum[:8])
}

func (ls *LeaderboardService) FetchPage(ctx context.Context, kind models.Kind, period models.Period, page int) (*models.Page, error) {
	state := models.PageState{Kind: kind, Period: period, Page: page}.Normalize()
	if data, ok := ls.cache.Get(pageCacheKey(state)); ok {
		var cached models.Page
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		ls.logger.Warnf(providers.TypeApp, "Ignoring unreadable cached page %s", state.Key())
	}
	return ls.fetchAndStorePage(ctx, state)
}

// Prefetch refreshes the cached copy of a page regardless of what is cached.
func (ls *LeaderboardService) Prefetch(ctx context.Context, state models.PageState) error {
	_, err := ls.fetchAndStorePage(ctx, state.Normalize())
	return err
}

func (ls *LeaderboardService) fetchAndStorePage(ctx context.Context, state models.PageState) (*models.Page, error) {
	page, err := ls.client.FetchPage(ctx, state.Kind, state.Period, state.Page, ls.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", state.Key(), err)
	}
	if page == nil {
		page = &models.Page{}
	}
	if rankErr := page.CheckRanks(); rankErr != nil {
		ls.logger.Warnf(providers.TypeUpstream, "Page %s has inconsistent ranks: %s", state.Key(), rankErr)
	}
	if data, err := json.Marshal(page); err == nil {
		ls.cache.Set(pageCacheKey(state), data)
	}
	return page, nil
}

// FetchSelfRank returns nil for anonymous callers. Results, including "no
// record", are cached per credential.
func (ls *LeaderboardService) FetchSelfRank(ctx context.Context, kind models.Kind, period models.Period, credentials string) (*models.SelfRankRecord, error) {
	if credentials == "" {
		return nil, nil
	}
	kind, period = models.NormalizeKind(string(kind)), models.NormalizePeriod(string(period))
	key := selfCacheKey(kind, period, credentials)
	if data, ok := ls.cache.Get(key); ok {
		var cached *models.SelfRankRecord
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	record, err := ls.client.FetchSelfRank(ctx, kind, period, credentials)
	if err != nil {
		return nil, fmt.Errorf("fetch self rank %s:%s: %w", kind, period, err)
	}
	if record != nil && record.Rank != nil && *record.Rank < 1 {
		ls.logger.Warnf(providers.TypeUpstream, "Self rank %d for %s:%s is below 1", *record.Rank, kind, period)
	}
	if data, err := json.Marshal(record); err == nil {
		ls.cache.Set(key, data)
	}
	return record, nil
}

// BuildView fetches the page and the viewer's standing in parallel and
// reconciles them. Only a page failure fails the view.
func (ls *LeaderboardService) BuildView(ctx context.Context, state models.PageState, credentials string) (*LeaderboardView, error) {
	state = state.Normalize()

	var (
		page    *models.Page
		self    *models.SelfRankRecord
		selfErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = ls.FetchPage(gctx, state.Kind, state.Period, state.Page)
		return err
	})
	g.Go(func() error {
		self, selfErr = ls.FetchSelfRank(gctx, state.Kind, state.Period, credentials)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := &LeaderboardView{
		Kind:          state.Kind,
		Period:        state.Period,
		Page:          state.Page,
		PageSize:      ls.pageSize,
		ListStartRank: models.ListStartRank(state.Page, ls.pageSize),
		TotalPages:    page.TotalPages,
		HasNextPage:   page.HasNextPage,
		HasPrevPage:   page.HasPrevPage,
		Status:        leaderboard.StatusSuccess,
		Rows:          []leaderboard.Row{},
		Placement:     leaderboard.PlacementNone,
		SelfStatus:    SelfResolved,
	}
	switch {
	case credentials == "":
		view.SelfStatus = SelfAnonymous
	case selfErr != nil:
		view.SelfStatus = SelfError
		ls.logger.Warnf(providers.TypeUpstream, "Serving %s without self rank: %s", state.Key(), selfErr)
	default:
		view.Self = self
	}

	if page.Empty() {
		view.Status = leaderboard.StatusEmpty
	} else {
		view.Rows = leaderboard.BuildRows(page, state.Page, ls.pageSize, view.Self)
		view.Placement = leaderboard.Reconcile(page.Entries, view.ListStartRank, view.Self).Placement
	}
	ls.metrics.IncPlacement(string(state.Kind), string(view.Placement))
	return view, nil
}
