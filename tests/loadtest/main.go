package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"rankview/internal/leaderboard"
	"rankview/internal/models"
	"rankview/internal/providers"
	"rankview/internal/services"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	flag "github.com/spf13/pflag"
	"go.uber.org/atomic"
)

var (
	daemonURL    = flag.String("daemon", "http://127.0.0.1:18090", "rankview daemon base URL")
	upstreamAddr = flag.String("upstream-listen", "127.0.0.1:18091", "address for the synthetic ranking service")
	numWorkers   = flag.Int("workers", 50, "concurrent sessions")
	testDuration = flag.Duration("duration", 10*time.Second, "duration of each phase")
	boardSize    = flag.Int("board-size", 487, "entries per synthetic board")
	numViewers   = flag.Int("viewers", 200, "distinct authenticated viewers")
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	action  string
	latency time.Duration
	err     bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

// counters are shared by every worker and the synthetic upstream.
var (
	upstreamPages = atomic.NewInt64(0)
	upstreamSelf  = atomic.NewInt64(0)
	staleDropped  = atomic.NewInt64(0)
	addressWrites = atomic.NewInt64(0)
	violations    = atomic.NewInt64(0)
)

type quietLogger struct{}

func (quietLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (quietLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (quietLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (quietLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (quietLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (quietLogger) Close()                                                  {}

func main() {
	flag.Parse()

	fmt.Println("=== RankView Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Board: %d entries | Viewers: %d\n\n", *numWorkers, *testDuration, *boardSize, *numViewers)

	go serveUpstream(*upstreamAddr)

	fmt.Print("Waiting for daemon... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(*daemonURL + "/health")
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: daemon not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Phase 1: Paging (Next/Prev/GoTo) ---")
	runPhase(*testDuration, func(w *worker) result {
		r := w.rng.Float64()
		switch {
		case r < 0.45:
			return w.act("next", w.session.Next)
		case r < 0.80:
			return w.act("prev", w.session.Prev)
		default:
			page := w.rng.Intn(60) + 1
			return w.act("goto", func() bool { return w.session.GoTo(page) })
		}
	})

	fmt.Println("\n--- Phase 2: Filter churn (period/kind changes interleaved with paging) ---")
	runPhase(*testDuration, func(w *worker) result {
		r := w.rng.Float64()
		switch {
		case r < 0.30:
			period := models.Periods()[w.rng.Intn(len(models.Periods()))]
			return w.act("period", func() bool { return w.session.SetPeriod(period) })
		case r < 0.40:
			kind := models.Kinds()[w.rng.Intn(len(models.Kinds()))]
			return w.act("kind", func() bool { return w.session.SetKind(kind) })
		case r < 0.80:
			return w.act("next", w.session.Next)
		default:
			return w.act("retry", w.session.Retry)
		}
	})

	fmt.Println("\n--- Phase 3: Address navigation (pasted links, back/forward) ---")
	runPhase(*testDuration, func(w *worker) result {
		q := url.Values{}
		q.Set(leaderboard.QueryPeriod, randomPeriodToken(w.rng))
		q.Set(leaderboard.QueryPage, strconv.Itoa(w.rng.Intn(70)-5))
		raw := q.Encode()
		return w.act("inbound", func() bool { return w.navigator.Inbound(raw) })
	})

	fmt.Printf("\nUpstream calls: %d pages, %d self-ranks\n", upstreamPages.Load(), upstreamSelf.Load())
	fmt.Printf("Stale responses dropped: %d | Address writes: %d | Invariant violations: %d\n",
		staleDropped.Load(), addressWrites.Load(), violations.Load())
}

// worker owns one session, as a single rendered board would.
type worker struct {
	rng       *rand.Rand
	session   *leaderboard.Session
	navigator *leaderboard.Navigator
	address   *leaderboard.MemoryAddress
}

func newWorker(ctx context.Context, seed int64) *worker {
	rng := rand.New(rand.NewSource(seed))
	credentials := ""
	if rng.Float64() < 0.7 {
		credentials = "Bearer viewer-" + strconv.Itoa(rng.Intn(*numViewers)+1)
	}

	w := &worker{rng: rng, address: leaderboard.NewMemoryAddress("")}
	w.session = leaderboard.NewSession(&daemonSource{credentials: credentials}, quietLogger{}, leaderboard.WithContext(ctx))
	w.navigator = leaderboard.NewNavigator(w.address, models.KindFunder, quietLogger{})
	w.navigator.Bind(w.session)
	w.navigator.Load()
	w.session.Wait()
	return w
}

// act applies one state change and waits until the session settles.
func (w *worker) act(action string, fn func() bool) result {
	start := time.Now()
	fn()
	w.session.Wait()
	lat := time.Since(start)

	view := w.session.View()
	w.check(view)
	return result{action: action, latency: lat, err: view.Status == leaderboard.StatusError}
}

func (w *worker) check(view leaderboard.View) {
	period, page := leaderboard.ParseQuery(w.address.Query())
	if period != view.State.Period || page != view.State.Page {
		violations.Inc()
	}
	if view.Status == leaderboard.StatusSuccess && view.Reconciliation.Placement == leaderboard.PlacementAbove {
		if view.Self == nil || view.Self.Rank == nil || *view.Self.Rank >= view.ListStartRank {
			violations.Inc()
		}
	}
	if view.Status == leaderboard.StatusLoading {
		violations.Inc()
	}
}

func runPhase(duration time.Duration, workFn func(w *worker) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	stop := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < *numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			w := newWorker(ctx, seed)
			defer func() {
				staleDropped.Add(w.session.Dropped())
				addressWrites.Add(int64(w.navigator.Writes()))
				w.session.Close()
			}()
			for {
				select {
				case <-stop:
					return
				default:
					results <- workFn(w)
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.action]
			if !ok {
				s = &stats{}
				allResults[r.action] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

// daemonSource feeds a session from the daemon's HTTP API.
type daemonSource struct {
	credentials string
}

func (d *daemonSource) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *daemonURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	if d.credentials != "" {
		req.Header.Set("Authorization", d.credentials)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (d *daemonSource) FetchPage(ctx context.Context, kind models.Kind, period models.Period, page int) (*models.Page, error) {
	q := url.Values{}
	q.Set(leaderboard.QueryPeriod, string(period))
	q.Set(leaderboard.QueryPage, strconv.Itoa(page))
	var view services.LeaderboardView
	if err := d.get(ctx, "/leaderboard/"+string(kind), q, &view); err != nil {
		return nil, err
	}
	return view.AsPage(), nil
}

func (d *daemonSource) FetchSelfRank(ctx context.Context, kind models.Kind, period models.Period) (*models.SelfRankRecord, error) {
	q := url.Values{}
	q.Set(leaderboard.QueryPeriod, string(period))
	var record *models.SelfRankRecord
	if err := d.get(ctx, "/leaderboard/"+string(kind)+"/me", q, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// serveUpstream plays the ranking service: a deterministic board per kind and
// period, with viewer N ranked N-th and every tenth viewer unranked.
func serveUpstream(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/leaderboard/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/leaderboard/"), "/")
		q := r.URL.Query()
		time.Sleep(time.Duration(rand.Intn(4)) * time.Millisecond)

		if len(parts) == 2 && parts[1] == "me" {
			upstreamSelf.Inc()
			viewer, _ := strconv.Atoi(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer viewer-"))
			if viewer == 0 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			id := int64(viewer)
			record := models.SelfRankRecord{ID: "self", AuthorProfile: models.AuthorProfile{ID: &id, FullName: "viewer"}}
			if viewer%10 != 0 {
				rank := viewer
				record.Rank = &rank
			}
			writeUpstream(w, record)
			return
		}

		upstreamPages.Inc()
		page, _ := strconv.Atoi(q.Get("page"))
		size, _ := strconv.Atoi(q.Get("page_size"))
		if page < 1 || size < 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeUpstream(w, syntheticPage(page, size, *boardSize))
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Printf("synthetic upstream stopped: %s\n", err)
	}
}

func syntheticPage(page, size, total int) models.Page {
	start := (page-1)*size + 1
	entries := make([]models.LeaderboardEntry, 0, size)
	for r := start; r < start+size && r <= total; r++ {
		rank, id := r, int64(r)
		entries = append(entries, models.LeaderboardEntry{
			ID:            "entry-" + strconv.Itoa(r),
			AuthorProfile: models.AuthorProfile{ID: &id, FullName: "author " + strconv.Itoa(r)},
			Rank:          &rank,
			Amount:        float64(total-r) * 1.5,
		})
	}
	pages := (total + size - 1) / size
	return models.Page{Entries: entries, TotalPages: pages, HasNextPage: page < pages, HasPrevPage: page > 1}
}

func writeUpstream(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func randomPeriodToken(rng *rand.Rand) string {
	if rng.Float64() < 0.1 {
		return "not_a_period"
	}
	periods := models.Periods()
	return string(periods[rng.Intn(len(periods))])
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	actions := make([]string, 0, len(allResults))
	for a := range allResults {
		actions = append(actions, a)
	}
	sort.Strings(actions)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Action", "Ops", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, a := range actions {
		s := allResults[a]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			a, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	fmt.Println("  " + strings.Repeat("-", 88))
	if totalOps == 0 {
		fmt.Println("  Total: 0 ops")
		return
	}
	fmt.Printf("  Total: %d ops | Errors: %d (%.1f%%) | Ops/s: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, float64(totalOps)/duration.Seconds())
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
