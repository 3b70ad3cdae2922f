// README: Benchmark cases: connectivity, schema, seat contention and search throughput.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"pickmeup/internal/infra"
	"pickmeup/internal/logging"
	"pickmeup/internal/modules/location"
	"pickmeup/internal/modules/pickup"
	"pickmeup/internal/modules/travel"
	"pickmeup/internal/modules/user"
	"pickmeup/internal/types"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.ApplyMigration && r.cfg.DSN != "" {
		if err := infra.Migrate(ctx, r.cfg.DSN); err != nil {
			fmt.Printf("migration failed: %v\n", err)
		}
	}
	if r.cfg.DSN != "" {
		if db, err := infra.NewDB(ctx, r.cfg.DSN); err == nil {
			r.db = db
		} else {
			fmt.Printf("database unavailable: %v\n", err)
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		start := time.Now()
		res := tc.Run(ctx, r)
		if res.Latency == 0 {
			res.Latency = time.Since(start)
		}
		results = append(results, res)
		fmt.Printf("%-5s %s (%s)", res.Status, tc.Name, res.Latency.Round(time.Millisecond))
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: pingDB},
		{Name: "Env: Redis connect", Run: pingRedis},
		{Name: "Schema: migration version", Run: migrationVersion},
		{Name: "Schema: tables exist", Run: tablesExist},
		{Name: "HTTP: health", Run: health},
		{Name: "Seats: concurrent accept never overbooks", Run: seatContention},
		{Name: "Perf: find-mode search throughput", Run: searchThroughput},
	}
}

func pingDB(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func pingRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func migrationVersion(ctx context.Context, r *Runner) Result {
	v, err := infra.MigrationVersion(ctx, r.cfg.DSN)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if v == 0 {
		return Result{Status: statusFail, Note: "no migrations applied"}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("version=%d", v)}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	for _, table := range []string{"users", "locations", "travels", "pickup_requests", "pickup_request_events"} {
		var ok bool
		err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table).Scan(&ok)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !ok {
			return Result{Status: statusFail, Note: "missing table " + table}
		}
	}
	return Result{Status: statusPass}
}

func health(ctx context.Context, r *Runner) Result {
	if r.cfg.BaseURL == "" {
		return Result{Status: statusSkip, Note: "base-url not set"}
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/health", nil)
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{Status: statusFail, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
	}
	return Result{Status: statusPass}
}

// seatContention offers cfg.Seats seats to cfg.Concurrency requesters and
// accepts all of them at once.
func seatContention(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	log := logging.Discard()
	users := user.NewService(user.NewStore(r.db), log)
	locations := location.NewStore(r.db)
	travels := travel.NewService(travel.NewStore(r.db), locations, users, log)
	requests := pickup.NewService(pickup.NewStore(r.db), users, locations, nil, log)

	run := time.Now().UnixNano()
	owner, err := users.Resolve(ctx, user.Identity{FirebaseUID: fmt.Sprintf("bench-owner-%d", run), FirstName: "Bench", LastName: "Owner"})
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	travelID, err := travels.EditTravel(ctx, travel.EditParams{
		UserID: owner.ID,
		Travel: travel.Travel{
			TotalSeats:  r.cfg.Seats,
			DepartureAt: time.Now().Add(24 * time.Hour),
			Departure:   types.Location{ReadableAddress: "Bench departure", City: "Bench"},
			Destination: types.Location{ReadableAddress: "Bench destination", City: "Bench"},
		},
	})
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}

	ids := make([]types.ID, r.cfg.Concurrency)
	for i := range ids {
		u, err := users.Resolve(ctx, user.Identity{FirebaseUID: fmt.Sprintf("bench-guest-%d-%d", run, i), FirstName: "Guest"})
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		ids[i], err = requests.CreateOrEditRequest(ctx, pickup.EditParams{
			UserID:  u.ID,
			Request: pickup.Request{TravelID: travelID, Location: types.Location{ReadableAddress: "Bench stop"}},
		})
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
	}

	var accepted, full, other atomic.Int64
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id types.ID) {
			defer wg.Done()
			<-start
			err := requests.SetStatus(ctx, pickup.StatusParams{RequestID: id, UserID: owner.ID, Status: types.RequestAccepted})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, pickup.ErrNoSeats):
				full.Add(1)
			default:
				other.Add(1)
			}
		}(id)
	}
	began := time.Now()
	close(start)
	wg.Wait()
	elapsed := time.Since(began)

	rec, err := requests.Reconcile(ctx, travelID)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	want := min(r.cfg.Seats, r.cfg.Concurrency)
	note := fmt.Sprintf("accepted=%d full=%d other=%d stored=%d actual=%d", accepted.Load(), full.Load(), other.Load(), rec.Stored, rec.Actual)
	if int(accepted.Load()) != want || rec.Drift() != 0 || other.Load() != 0 {
		return Result{Status: statusFail, Latency: elapsed, Note: note}
	}
	return Result{Status: statusPass, Latency: elapsed, Note: note}
}

func searchThroughput(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	log := logging.Discard()
	users := user.NewService(user.NewStore(r.db), log)
	travels := travel.NewService(travel.NewStore(r.db), location.NewStore(r.db), users, log)
	searcher, err := users.Resolve(ctx, user.Identity{FirebaseUID: "bench-searcher", FirstName: "Bench"})
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	params := travel.ListParams{
		UserID:              searcher.ID,
		IsFindMode:          true,
		DestinationLocation: &types.Location{City: "Bench", Province: "Bench", Region: "Bench"},
	}

	end := time.Now().Add(r.cfg.Duration)
	var mu sync.Mutex
	var latencies []time.Duration
	var errCount atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				t0 := time.Now()
				if _, err := travels.ListTravels(ctx, params); err != nil {
					errCount.Add(1)
					continue
				}
				d := time.Since(t0)
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(latencies) == 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("no searches completed, errors=%d", errCount.Load())}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	rps := float64(len(latencies)) / r.cfg.Duration.Seconds()
	return Result{
		Status:  statusPass,
		Latency: r.cfg.Duration,
		Note: fmt.Sprintf("rps=%.1f p50=%s p95=%s errors=%d", rps,
			percentile(latencies, 50), percentile(latencies, 95), errCount.Load()),
	}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	idx := (len(sorted)*p + 99) / 100
	if idx > 0 {
		idx--
	}
	return sorted[idx].Round(time.Microsecond)
}
