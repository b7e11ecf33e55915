package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"rankview/internal/models"
	"rankview/internal/providers"
	"rankview/internal/structures"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	OpFetchPage     = "fetch_page"
	OpFetchSelfRank = "fetch_self_rank"

	maxResponseBodySize = 4 << 20 // 4 MB
	requestIDHeader     = "X-Request-Id"
)

// UpstreamError is returned for any non-2xx answer from the ranking service.
type UpstreamError struct {
	Op     string
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream answered %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

type RankingClientInterface interface {
	FetchPage(ctx context.Context, kind models.Kind, period models.Period, page, pageSize int) (*models.Page, error)
	FetchSelfRank(ctx context.Context, kind models.Kind, period models.Period, credentials string) (*models.SelfRankRecord, error)
}

type RankingClient struct {
	baseURL *url.URL
	client  *http.Client
	limiter *rate.Limiter
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewRankingClient(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) (RankingClientInterface, error) {
	base, err := url.Parse(strings.TrimRight(conf.Upstream.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}

	limit := rate.Inf
	if conf.Upstream.RateLimit > 0 {
		limit = rate.Limit(conf.Upstream.RateLimit)
	}
	burst := max(conf.Upstream.Burst, 1)

	return &RankingClient{
		baseURL: base,
		client:  &http.Client{Timeout: conf.Upstream.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		metrics: metrics,
	}, nil
}

func (rc *RankingClient) FetchPage(ctx context.Context, kind models.Kind, period models.Period, page, pageSize int) (*models.Page, error) {
	q := url.Values{}
	q.Set("period", string(period))
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	body, status, err := rc.do(ctx, OpFetchPage, rc.endpoint(q, string(kind)), "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, rc.fail(OpFetchPage, &UpstreamError{Op: OpFetchPage, Status: status})
	}

	var result models.Page
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, rc.fail(OpFetchPage, fmt.Errorf("%s: decode %s:%s:%d: %w", OpFetchPage, kind, period, page, err))
	}
	return &result, nil
}

// FetchSelfRank returns nil for anonymous callers without touching the
// network. No-content, not-found and a JSON null all mean "no record".
func (rc *RankingClient) FetchSelfRank(ctx context.Context, kind models.Kind, period models.Period, credentials string) (*models.SelfRankRecord, error) {
	if credentials == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("period", string(period))

	body, status, err := rc.do(ctx, OpFetchSelfRank, rc.endpoint(q, string(kind), "me"), credentials)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return nil, nil
	default:
		return nil, rc.fail(OpFetchSelfRank, &UpstreamError{Op: OpFetchSelfRank, Status: status})
	}

	var record *models.SelfRankRecord
	if err = json.Unmarshal(body, &record); err != nil {
		return nil, rc.fail(OpFetchSelfRank, fmt.Errorf("%s: decode %s:%s: %w", OpFetchSelfRank, kind, period, err))
	}
	return record, nil
}

func (rc *RankingClient) endpoint(q url.Values, elem ...string) string {
	u := rc.baseURL.JoinPath(append([]string{"leaderboard"}, elem...)...)
	u.RawQuery = q.Encode()
	return u.String()
}

func (rc *RankingClient) do(ctx context.Context, op, target, credentials string) ([]byte, int, error) {
	if err := rc.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: rate limit: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if credentials != "" {
		req.Header.Set("Authorization", credentials)
	}

	start := time.Now()
	resp, err := rc.client.Do(req)
	rc.metrics.ObserveUpstreamDuration(op, time.Since(start))
	if err != nil {
		rc.metrics.IncUpstreamErrors(op)
		rc.logger.Warnf(providers.TypeUpstream, "%s %s [%s] failed: %s", op, target, requestID, err)
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		rc.metrics.IncUpstreamErrors(op)
		return nil, 0, fmt.Errorf("%s: read body: %w", op, err)
	}
	rc.logger.Debugf(providers.TypeUpstream, "%s %s [%s] -> %d in %s", op, target, requestID, resp.StatusCode, time.Since(start))
	return body, resp.StatusCode, nil
}

func (rc *RankingClient) fail(op string, err error) error {
	rc.metrics.IncUpstreamErrors(op)
	rc.logger.Warnf(providers.TypeUpstream, "%s", err)
	return err
}
