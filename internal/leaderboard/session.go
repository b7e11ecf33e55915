package leaderboard

import (
	"context"
	"errors"
	"rankview/internal/models"
	"rankview/internal/providers"
	"sync"

	"go.uber.org/atomic"
)

// Source is the remote side of a session: one ranked page per
// (kind, period, page) and the viewer's own standing per (kind, period).
type Source interface {
	FetchPage(ctx context.Context, kind models.Kind, period models.Period, page int) (*models.Page, error)
	FetchSelfRank(ctx context.Context, kind models.Kind, period models.Period) (*models.SelfRankRecord, error)
}

type View struct {
	Version        uint64
	State          models.PageState
	PageSize       int
	ListStartRank  int
	Status         Status
	Err            error
	Page           *models.Page
	Rows           []Row
	SelfStatus     SelfStatus
	SelfErr        error
	Self           *models.SelfRankRecord
	Reconciliation Reconciliation
	CanPrev        bool
	CanNext        bool
}

type listCell struct {
	seq    uint64
	tag    models.PageState
	status Status
	page   *models.Page
	err    error
	cancel context.CancelFunc
}

type selfCell struct {
	seq    uint64
	tag    models.PageState
	status SelfStatus
	record *models.SelfRankRecord
	err    error
	cancel context.CancelFunc
}

type SessionOption func(*Session)

func WithPageSize(size int) SessionOption {
	return func(s *Session) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func WithOnChange(fn func(View)) SessionOption {
	return func(s *Session) {
		s.listeners = append(s.listeners, fn)
	}
}

func WithContext(ctx context.Context) SessionOption {
	return func(s *Session) {
		s.parent = ctx
	}
}

// Session owns the PageState of one rendered leaderboard. Page and self-rank
// requests run on their own goroutines; each is tagged with a sequence number
// and only the latest issued request of a cell may change the view.
type Session struct {
	mu       sync.Mutex
	source   Source
	logger   providers.Logger
	pageSize int

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	inflight int
	idle     *sync.Cond

	started bool
	state   models.PageState
	seq     uint64
	version uint64
	list    listCell
	self    selfCell

	listeners []func(View)
	notifyMu  sync.Mutex
	delivered atomic.Uint64
	dropped   atomic.Int64
}

func NewSession(source Source, logger providers.Logger, opts ...SessionOption) *Session {
	s := &Session{
		source:   source,
		logger:   logger,
		pageSize: models.DefaultPageSize,
		parent:   context.Background(),
		list:     listCell{status: StatusIdle},
		self:     selfCell{status: SelfIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.idle = sync.NewCond(&s.mu)
	s.ctx, s.cancel = context.WithCancel(s.parent)
	return s
}

// OnChange registers a listener for view snapshots. Listeners run serially,
// possibly on fetch goroutines, and never receive a snapshot older than one
// already delivered. A listener must not call back into the session
// synchronously.
func (s *Session) OnChange(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Adopt replaces the whole PageState, e.g. from a parsed address.
func (s *Session) Adopt(next models.PageState) bool {
	return s.update(func(_ models.PageState) (models.PageState, bool) {
		return next, true
	})
}

// SetPeriod changes the time window and resets the page in the same update.
func (s *Session) SetPeriod(period models.Period) bool {
	return s.update(func(cur models.PageState) (models.PageState, bool) {
		cur.Period = period
		cur.Page = 1
		return cur, true
	})
}

func (s *Session) SetKind(kind models.Kind) bool {
	return s.update(func(cur models.PageState) (models.PageState, bool) {
		cur.Kind = kind
		cur.Page = 1
		return cur, true
	})
}

// GoTo jumps to a page without bounds checks; pages below 1 become 1.
func (s *Session) GoTo(page int) bool {
	return s.update(func(cur models.PageState) (models.PageState, bool) {
		cur.Page = page
		return cur, s.started
	})
}

func (s *Session) Next() bool {
	return s.update(func(cur models.PageState) (models.PageState, bool) {
		if !canNext(s.list.status, s.list.page) {
			return cur, false
		}
		cur.Page++
		return cur, true
	})
}

func (s *Session) Prev() bool {
	return s.update(func(cur models.PageState) (models.PageState, bool) {
		if !canPrev(s.list.status, s.list.page) || cur.Page <= 1 {
			return cur, false
		}
		cur.Page--
		return cur, true
	})
}

// Retry re-issues the page request for the unchanged state. Only valid from
// the error status.
func (s *Session) Retry() bool {
	s.mu.Lock()
	if s.closed || s.list.status != StatusError {
		s.mu.Unlock()
		return false
	}
	s.issuePageLocked()
	view := s.viewLocked()
	listeners := s.listeners
	s.mu.Unlock()

	s.notify(listeners, view)
	return true
}

func (s *Session) RetrySelfRank() bool {
	s.mu.Lock()
	if s.closed || s.self.status != SelfError {
		s.mu.Unlock()
		return false
	}
	s.issueSelfLocked()
	view := s.viewLocked()
	listeners := s.listeners
	s.mu.Unlock()

	s.notify(listeners, view)
	return true
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) State() models.PageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dropped counts responses discarded because a newer request superseded them.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

// Wait blocks until no request is in flight. Requests issued while waiting
// extend the wait.
func (s *Session) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inflight > 0 {
		s.idle.Wait()
	}
}

// startLocked must be paired with a deferred finish on the fetch goroutine.
func (s *Session) startLocked() {
	s.inflight++
}

func (s *Session) finish() {
	s.mu.Lock()
	s.inflight--
	if s.inflight == 0 {
		s.idle.Broadcast()
	}
	s.mu.Unlock()
}

// Close cancels outstanding requests; late responses are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancel()
	s.mu.Unlock()
}

// update is the single write path for PageState. mutate runs under the lock.
func (s *Session) update(mutate func(cur models.PageState) (models.PageState, bool)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	next, ok := mutate(s.state)
	if !ok {
		s.mu.Unlock()
		return false
	}
	next = next.Normalize()
	if s.started && next == s.state {
		s.mu.Unlock()
		return false
	}

	filterChanged := !s.started || !next.SameFilter(s.state)
	s.started = true
	s.state = next
	s.issuePageLocked()
	if filterChanged {
		s.issueSelfLocked()
	}
	view := s.viewLocked()
	listeners := s.listeners
	s.mu.Unlock()

	s.notify(listeners, view)
	return true
}

func (s *Session) issuePageLocked() {
	if s.list.cancel != nil {
		s.list.cancel()
	}
	s.seq++
	seq, tag := s.seq, s.state
	ctx, cancel := context.WithCancel(s.ctx)
	s.list = listCell{seq: seq, tag: tag, status: StatusLoading, cancel: cancel}

	s.startLocked()
	go func() {
		defer s.finish()
		defer cancel()
		page, err := s.source.FetchPage(ctx, tag.Kind, tag.Period, tag.Page)
		s.resolvePage(seq, tag, page, err)
	}()
}

func (s *Session) issueSelfLocked() {
	if s.self.cancel != nil {
		s.self.cancel()
	}
	s.seq++
	seq, tag := s.seq, s.state
	ctx, cancel := context.WithCancel(s.ctx)
	s.self = selfCell{seq: seq, tag: tag, status: SelfPending, cancel: cancel}

	s.startLocked()
	go func() {
		defer s.finish()
		defer cancel()
		record, err := s.source.FetchSelfRank(ctx, tag.Kind, tag.Period)
		s.resolveSelf(seq, tag, record, err)
	}()
}

func (s *Session) resolvePage(seq uint64, tag models.PageState, page *models.Page, err error) {
	s.mu.Lock()
	if s.closed || seq != s.list.seq || tag != s.state {
		s.mu.Unlock()
		s.dropped.Inc()
		s.logger.Debugf(providers.TypeUpstream, "Dropped stale page response for %s", tag.Key())
		return
	}

	status, page := listResult(page, err)
	s.list.status, s.list.page, s.list.err, s.list.cancel = status, page, err, nil
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warnf(providers.TypeUpstream, "Page fetch for %s failed: %s", tag.Key(), err)
	}
	if rankErr := page.CheckRanks(); rankErr != nil {
		s.logger.Warnf(providers.TypeUpstream, "Page %s has inconsistent ranks: %s", tag.Key(), rankErr)
	}
	view := s.viewLocked()
	listeners := s.listeners
	s.mu.Unlock()

	s.notify(listeners, view)
}

func (s *Session) resolveSelf(seq uint64, tag models.PageState, record *models.SelfRankRecord, err error) {
	s.mu.Lock()
	if s.closed || seq != s.self.seq || !tag.SameFilter(s.state) {
		s.mu.Unlock()
		s.dropped.Inc()
		s.logger.Debugf(providers.TypeUpstream, "Dropped stale self-rank response for %s:%s", tag.Kind, tag.Period)
		return
	}

	if err != nil {
		s.self.status, s.self.record, s.self.err = SelfError, nil, err
		s.logger.Warnf(providers.TypeUpstream, "Self-rank fetch for %s:%s failed: %s", tag.Kind, tag.Period, err)
	} else {
		s.self.status, s.self.record, s.self.err = SelfResolved, record, nil
	}
	s.self.cancel = nil
	view := s.viewLocked()
	listeners := s.listeners
	s.mu.Unlock()

	s.notify(listeners, view)
}

func (s *Session) viewLocked() View {
	s.version++
	v := View{
		Version:        s.version,
		State:          s.state,
		PageSize:       s.pageSize,
		ListStartRank:  models.ListStartRank(s.state.Page, s.pageSize),
		Status:         s.list.status,
		Err:            s.list.err,
		Page:           s.list.page,
		SelfStatus:     s.self.status,
		SelfErr:        s.self.err,
		Self:           s.self.record,
		Reconciliation: noReconciliation(),
		CanPrev:        canPrev(s.list.status, s.list.page) && s.state.Page > 1,
		CanNext:        canNext(s.list.status, s.list.page),
	}

	// A pending self-rank means "no banner yet", never "no banner".
	var self *models.SelfRankRecord
	if s.self.status == SelfResolved {
		self = s.self.record
	}
	v.Rows = BuildRows(s.list.page, s.state.Page, s.pageSize, self)
	if s.list.status == StatusSuccess && self != nil {
		v.Reconciliation = Reconcile(s.list.page.Entries, v.ListStartRank, self)
	}
	return v
}

func (s *Session) notify(listeners []func(View), view View) {
	if len(listeners) == 0 {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if view.Version <= s.delivered.Load() {
		return
	}
	s.delivered.Store(view.Version)
	for _, fn := range listeners {
		fn(view)
	}
}
