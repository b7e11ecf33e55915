package testutil

import (
	"context"
	"rankview/internal/leaderboard"
	"rankview/internal/models"
	"rankview/internal/providers"
	"rankview/internal/services"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// MockLeaderboardService implements services.LeaderboardServiceInterface.
type MockLeaderboardService struct {
	mu            sync.Mutex
	Size          int
	Pages         map[string]*models.Page // key: PageState.Key()
	Selves        map[string]*models.SelfRankRecord
	PageErr       error
	SelfErr       error
	ViewCalls     []ViewCall
	PrefetchCalls []models.PageState
}

type ViewCall struct {
	State       models.PageState
	Credentials string
}

func (m *MockLeaderboardService) PageSize() int {
	if m.Size == 0 {
		return models.DefaultPageSize
	}
	return m.Size
}

func (m *MockLeaderboardService) FetchPage(_ context.Context, kind models.Kind, period models.Period, page int) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PageErr != nil {
		return nil, m.PageErr
	}
	state := models.PageState{Kind: kind, Period: period, Page: page}.Normalize()
	if p, ok := m.Pages[state.Key()]; ok {
		return p, nil
	}
	return &models.Page{}, nil
}

func (m *MockLeaderboardService) FetchSelfRank(_ context.Context, kind models.Kind, period models.Period, credentials string) (*models.SelfRankRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if credentials == "" {
		return nil, nil
	}
	if m.SelfErr != nil {
		return nil, m.SelfErr
	}
	return m.Selves[string(kind)+":"+string(period)], nil
}

func (m *MockLeaderboardService) Prefetch(_ context.Context, state models.PageState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PrefetchCalls = append(m.PrefetchCalls, state)
	return m.PageErr
}

// BuildView assembles a view through the real reconciliation helpers.
func (m *MockLeaderboardService) BuildView(ctx context.Context, state models.PageState, credentials string) (*services.LeaderboardView, error) {
	state = state.Normalize()
	m.mu.Lock()
	m.ViewCalls = append(m.ViewCalls, ViewCall{State: state, Credentials: credentials})
	m.mu.Unlock()

	page, err := m.FetchPage(ctx, state.Kind, state.Period, state.Page)
	if err != nil {
		return nil, err
	}
	size := m.PageSize()
	view := &services.LeaderboardView{
		Kind:          state.Kind,
		Period:        state.Period,
		Page:          state.Page,
		PageSize:      size,
		ListStartRank: models.ListStartRank(state.Page, size),
		TotalPages:    page.TotalPages,
		HasNextPage:   page.HasNextPage,
		HasPrevPage:   page.HasPrevPage,
		Status:        leaderboard.StatusEmpty,
		Rows:          []leaderboard.Row{},
		Placement:     leaderboard.PlacementNone,
		SelfStatus:    services.SelfAnonymous,
	}
	if credentials != "" {
		self, selfErr := m.FetchSelfRank(ctx, state.Kind, state.Period, credentials)
		if selfErr != nil {
			view.SelfStatus = services.SelfError
		} else {
			view.SelfStatus, view.Self = services.SelfResolved, self
		}
	}
	if !page.Empty() {
		view.Status = leaderboard.StatusSuccess
		view.Rows = leaderboard.BuildRows(page, state.Page, size, view.Self)
		view.Placement = leaderboard.Reconcile(page.Entries, view.ListStartRank, view.Self).Placement
	}
	return view, nil
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements providers.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu             sync.Mutex
	Requests       map[string]int
	UpstreamErrors map[string]int
	Placements     map[string]int // key: "kind:placement"
	CacheHits      int
	CacheMisses    int
	Warmups        int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Requests:       make(map[string]int),
		UpstreamErrors: make(map[string]int),
		Placements:     make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint]++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration)  {}
func (m *MockMetrics) ObserveUpstreamDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) IncUpstreamErrors(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpstreamErrors[operation]++
}
func (m *MockMetrics) IncPlacement(kind, placement string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Placements[kind+":"+placement]++
}
func (m *MockMetrics) ObserveWarmupDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Warmups++
}

func (m *MockMetrics) Placement(kind, placement string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Placements[kind+":"+placement]
}

func (m *MockMetrics) UpstreamErrorCount(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.UpstreamErrors[operation]
}
