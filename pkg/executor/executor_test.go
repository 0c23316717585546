package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/taskflow/internal/testutil"
	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// echo is what the test task functions return: the call they received.
type echo struct {
	Payload    int
	SequenceID int
	WorkerID   int
	Total      Total
	Tag        any
}

func echoCall(_ context.Context, c Call[int]) (echo, error) {
	tag, _ := c.Values.Get("tag")
	return echo{
		Payload:    c.Payload,
		SequenceID: c.SequenceID,
		WorkerID:   c.WorkerID,
		Total:      c.Total,
		Tag:        tag,
	}, nil
}

func identity(_ context.Context, c Call[int]) (int, error) {
	return c.Payload, nil
}

func failOn(bad int) TaskFunc[int, int] {
	return func(_ context.Context, c Call[int]) (int, error) {
		if c.Payload == bad {
			return 0, fmt.Errorf("refusing payload %d", bad)
		}
		return c.Payload, nil
	}
}

func quiet(cfg Config) Config {
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return cfg
}

// runAll submits payloads 0..n-1 with the given total, stops and returns the results.
func runAll[R any](t *testing.T, cfg Config, n int, total Total, fn TaskFunc[int, R]) (*Executor[int, R], []R) {
	t.Helper()

	ex, err := New[int, R](quiet(cfg))
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, ex.Start(context.Background()))

	for i := 0; i < n; i++ {
		testutil.AssertNoError(t, ex.Submit(fn, i, i, total))
	}

	testutil.AssertNoError(t, ex.Stop())
	results, err := ex.Results()
	testutil.AssertNoError(t, err)
	return ex, results
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{Workers: 2}, false},
		{"single worker", Config{Workers: 1, Collect: Lazy}, false},
		{"zero workers", Config{Workers: 0}, true},
		{"negative workers", Config{Workers: -1}, true},
		{"negative rate", Config{Workers: 1, RateLimit: -1}, true},
		{"negative timeout", Config{Workers: 1, TaskTimeout: -time.Second}, true},
		{"unknown collect mode", Config{Workers: 1, Collect: CollectMode(9)}, true},
		{"unknown policy", Config{Workers: 1, FailurePolicy: FailurePolicy(9)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := New[int, int](quiet(tt.config))
			if tt.wantErr {
				testutil.AssertErrorIs(t, err, tferrors.ErrInvalidConfiguration)
				testutil.AssertEqual(t, ex == nil, true)
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, ex.Workers(), tt.config.Workers)
			testutil.AssertEqual(t, ex.Alive(), 0)
		})
	}
}

func TestZeroWorkersSpawnsNothing(t *testing.T) {
	var started atomic.Int32
	_, err := New[int, int](quiet(Config{
		Workers:       0,
		OnWorkerStart: func(int) { started.Add(1) },
	}))

	testutil.AssertErrorIs(t, err, tferrors.ErrInvalidConfiguration)
	if !tferrors.IsValidationError(err) {
		t.Errorf("expected ValidationError, got %T", err)
	}
	testutil.AssertEqual(t, started.Load(), int32(0))
}

func TestStartWaitsForAllWorkers(t *testing.T) {
	ex, err := New[int, int](quiet(Config{Workers: 6}))
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, ex.Start(context.Background()))

	testutil.AssertEqual(t, ex.Alive(), 6)

	testutil.AssertNoError(t, ex.Stop())
	testutil.AssertEqual(t, ex.Alive(), 0)
}

func TestPanickingStartHookDoesNotBlockStart(t *testing.T) {
	var stopErr atomic.Value
	ex, err := New[int, int](quiet(Config{
		Workers: 2,
		Collect: Eager,
		OnWorkerStart: func(id int) {
			if id == 0 {
				panic("hook exploded")
			}
		},
		OnWorkerStop: func(id int, err error) {
			if id == 0 && err != nil {
				stopErr.Store(err)
			}
		},
	}))
	testutil.AssertNoError(t, err)

	started := make(chan error, 1)
	go func() { started <- ex.Start(context.Background()) }()
	select {
	case err := <-started:
		testutil.AssertNoError(t, err)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("Start blocked on a panicking OnWorkerStart hook")
	}

	testutil.Eventually(t, func() bool { return ex.Alive() == 1 }, testutil.TestTimeout, time.Millisecond)

	for i := 0; i < 10; i++ {
		testutil.AssertNoError(t, ex.Submit(identity, i, i, Count(10)))
	}
	testutil.AssertNoError(t, ex.Stop())

	results, err := ex.Results()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(results), 10)

	hookErr, _ := stopErr.Load().(error)
	testutil.AssertError(t, hookErr)
	testutil.AssertEqual(t, strings.Contains(hookErr.Error(), "hook exploded"), true)
}

func TestCardinalityAndPayloadSet(t *testing.T) {
	for _, mode := range []CollectMode{Eager, Lazy} {
		for _, workers := range []int{1, 3, 8} {
			for _, n := range []int{0, 1, 7, 250} {
				name := fmt.Sprintf("%s/w=%d/n=%d", mode, workers, n)
				t.Run(name, func(t *testing.T) {
					_, results := runAll(t, Config{Workers: workers, Collect: mode}, n, Count(n), identity)

					testutil.AssertEqual(t, len(results), n)
					sort.Ints(results)
					for i, v := range results {
						if v != i {
							t.Fatalf("payload %d missing or duplicated", i)
						}
					}
				})
			}
		}
	}
}

func TestThousandTasksEightWorkers(t *testing.T) {
	const n, w = 1000, 8
	_, results := runAll(t, Config{Workers: w, Collect: Eager}, n, Count(n), identity)

	got := make(map[int]bool, len(results))
	for _, v := range results {
		got[v] = true
	}
	testutil.AssertEqual(t, len(got), n)
	for i := 0; i < n; i++ {
		if !got[i] {
			t.Fatalf("missing payload %d", i)
		}
	}
}

func TestCallContext(t *testing.T) {
	const n, w = 300, 5

	tests := []struct {
		name  string
		total Total
	}{
		{"materialized source", Count(n)},
		{"streaming source", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Workers: w, Collect: Eager, Values: Values{"tag": "my_constant"}}
			_, results := runAll(t, cfg, n, tt.total, echoCall)
			testutil.AssertEqual(t, len(results), n)

			seen := make(map[int]bool, n)
			for _, r := range results {
				if r.WorkerID < 0 || r.WorkerID >= w {
					t.Fatalf("worker id %d outside [0, %d)", r.WorkerID, w)
				}
				if seen[r.SequenceID] {
					t.Fatalf("sequence id %d seen twice", r.SequenceID)
				}
				seen[r.SequenceID] = true
				testutil.AssertEqual(t, r.Total, tt.total)
				testutil.AssertEqual(t, r.Tag, any("my_constant"))
			}
			for i := 0; i < n; i++ {
				if !seen[i] {
					t.Fatalf("sequence id %d missing", i)
				}
			}
		})
	}
}

func TestFailFastOnPayload42(t *testing.T) {
	const n, w = 100, 4

	var mu sync.Mutex
	var stopErrs []error
	cfg := Config{
		Workers: w,
		Collect: Eager,
		OnWorkerStop: func(_ int, err error) {
			mu.Lock()
			defer mu.Unlock()
			stopErrs = append(stopErrs, err)
		},
	}

	ex, results := runAll(t, cfg, n, Count(n), failOn(42))
	testutil.AssertEqual(t, len(results), n-1)
	for _, v := range results {
		if v == 42 {
			t.Fatal("payload 42 should not produce a result")
		}
	}

	report := ex.Report()
	testutil.AssertEqual(t, report.Submitted, int64(n))
	testutil.AssertEqual(t, report.Completed, int64(n-1))
	testutil.AssertEqual(t, report.Failed, int64(1))
	testutil.AssertEqual(t, report.Abandoned, int64(0))
	testutil.AssertEqual(t, report.Alive, 0)
	testutil.AssertEqual(t, len(report.Failures), 1)
	testutil.AssertEqual(t, report.Failures[0].Payload, any(42))
	testutil.AssertEqual(t, report.Failures[0].SequenceID, 42)
	testutil.AssertEqual(t, report.Failures[0].Panicked, false)

	var runErr *tferrors.RunError
	if !errors.As(report.Err(), &runErr) {
		t.Fatalf("Report.Err() should be a RunError, got %v", report.Err())
	}

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, len(stopErrs), w)
	var died int
	for _, err := range stopErrs {
		if err != nil {
			died++
			if !tferrors.IsTaskError(err) {
				t.Errorf("worker exit error should be a TaskError, got %T", err)
			}
		}
	}
	testutil.AssertEqual(t, died, 1)
}

func TestIsolateKeepsWorkerAlive(t *testing.T) {
	var exitErrs atomic.Int32
	cfg := Config{
		Workers:       1,
		Collect:       Lazy,
		FailurePolicy: Isolate,
		OnWorkerStop: func(_ int, err error) {
			if err != nil {
				exitErrs.Add(1)
			}
		},
	}

	fn := func(_ context.Context, c Call[int]) (int, error) {
		if c.Payload%10 == 0 {
			return 0, errors.New("multiple of ten")
		}
		return c.Payload, nil
	}

	ex, results := runAll(t, cfg, 50, Count(50), fn)
	testutil.AssertEqual(t, len(results), 45)
	testutil.AssertEqual(t, ex.Report().Failed, int64(5))
	testutil.AssertEqual(t, exitErrs.Load(), int32(0))
}

func TestPanicIsTaskFailure(t *testing.T) {
	fn := func(_ context.Context, c Call[int]) (int, error) {
		if c.Payload == 3 {
			panic("kaboom")
		}
		return c.Payload, nil
	}

	ex, results := runAll(t, Config{Workers: 2, Collect: Eager}, 10, Count(10), fn)
	testutil.AssertEqual(t, len(results), 9)

	failures := ex.Report().Failures
	testutil.AssertEqual(t, len(failures), 1)
	testutil.AssertEqual(t, failures[0].Panicked, true)
	if !strings.Contains(failures[0].Error(), "kaboom") {
		t.Errorf("panic value missing from %q", failures[0].Error())
	}
}

func TestAllWorkersDeadAbandonsRemainingTasks(t *testing.T) {
	ex, err := New[int, int](quiet(Config{Workers: 1, Collect: Eager}))
	testutil.AssertNoError(t, err)

	// Queued before Start so the single worker sees payload 0 first.
	for i := 0; i < 10; i++ {
		testutil.AssertNoError(t, ex.Submit(failOn(0), i, i, Count(10)))
	}
	testutil.AssertNoError(t, ex.Start(context.Background()))
	testutil.AssertNoError(t, ex.Stop())

	results, err := ex.Results()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(results), 0)

	report := ex.Report()
	testutil.AssertEqual(t, report.Failed, int64(1))
	testutil.AssertEqual(t, report.Abandoned, int64(9))
	testutil.AssertEqual(t, report.Alive, 0)

	var runErr *tferrors.RunError
	if !errors.As(report.Err(), &runErr) {
		t.Fatalf("expected RunError, got %v", report.Err())
	}
	testutil.AssertEqual(t, runErr.Abandoned, int64(9))
	testutil.AssertEqual(t, strings.HasSuffix(runErr.Error(), "9 tasks abandoned"), true)
}

func TestDiscardMode(t *testing.T) {
	var executed atomic.Int32
	fn := func(_ context.Context, c Call[int]) (int, error) {
		executed.Add(1)
		return c.Payload, nil
	}

	ex, results := runAll(t, Config{Workers: 3}, 40, Count(40), fn)
	testutil.AssertEqual(t, results == nil, true)
	testutil.AssertEqual(t, executed.Load(), int32(40))

	seq, err := ex.Drain()
	testutil.AssertNoError(t, err)
	for range seq {
		t.Fatal("discard mode should yield nothing")
	}
}

func TestLazyIncrementalDrain(t *testing.T) {
	ex, err := New[int, int](quiet(Config{Workers: 2, Collect: Lazy}))
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, ex.Start(context.Background()))

	const n = 50
	for i := 0; i < n; i++ {
		testutil.AssertNoError(t, ex.Submit(identity, i, i, Count(n)))
	}

	testutil.Eventually(t, func() bool {
		return ex.Report().Completed == n
	}, testutil.TestTimeout, 5*time.Millisecond)

	seq, err := ex.Drain()
	testutil.AssertNoError(t, err)
	var got []int
	for v := range seq {
		got = append(got, v)
	}
	testutil.AssertEqual(t, len(got), n)

	testutil.AssertNoError(t, ex.Stop())
	rest, err := ex.Results()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(rest), 0)
}

func TestLazyDrainWaitsForQueuedTasks(t *testing.T) {
	ex, err := New[int, int](quiet(Config{Workers: 1, Collect: Lazy}))
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, ex.Start(context.Background()))

	slow := func(_ context.Context, c Call[int]) (int, error) {
		time.Sleep(20 * time.Millisecond)
		return c.Payload, nil
	}
	const n = 5
	for i := 0; i < n; i++ {
		testutil.AssertNoError(t, ex.Submit(slow, i, i, Count(n)))
	}

	seq, err := ex.Drain()
	testutil.AssertNoError(t, err)
	var got []int
	for v := range seq {
		got = append(got, v)
	}
	testutil.AssertEqual(t, len(got), n)

	testutil.AssertNoError(t, ex.Stop())
	rest, err := ex.Results()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(rest), 0)
}

func TestLazyDrainReturnsWhenAllWorkersDie(t *testing.T) {
	ex, err := New[int, int](quiet(Config{Workers: 1, Collect: Lazy}))
	testutil.AssertNoError(t, err)
	for i := 0; i < 5; i++ {
		testutil.AssertNoError(t, ex.Submit(failOn(0), i, i, Count(5)))
	}
	testutil.AssertNoError(t, ex.Start(context.Background()))

	seq, err := ex.Drain()
	testutil.AssertNoError(t, err)
	done := make(chan int)
	go func() {
		count := 0
		for range seq {
			count++
		}
		done <- count
	}()

	select {
	case count := <-done:
		testutil.AssertEqual(t, count, 0)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("Drain did not return after the last worker exited")
	}
	testutil.AssertNoError(t, ex.Stop())
	testutil.AssertEqual(t, ex.Report().Abandoned, int64(4))
}

func TestLazyDrainAfterStop(t *testing.T) {
	ex, err := New[int, int](quiet(Config{Workers: 4, Collect: Lazy}))
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, ex.Start(context.Background()))
	for i := 0; i < 100; i++ {
		testutil.AssertNoError(t, ex.Submit(identity, i, i, Unknown))
	}
	testutil.AssertNoError(t, ex.Stop())

	seq, err := ex.Drain()
	testutil.AssertNoError(t, err)

	var first []int
	for v := range seq {
		first = append(first, v)
		if len(first) == 30 {
			break
		}
	}
	rest, err := ex.Results()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(first)+len(rest), 100)
}

func TestLifecycleMisuse(t *testing.T) {
	newEx := func(mode CollectMode) *Executor[int, int] {
		ex, err := New[int, int](quiet(Config{Workers: 2, Collect: mode}))
		testutil.AssertNoError(t, err)
		return ex
	}

	t.Run("stop before start", func(t *testing.T) {
		testutil.AssertErrorIs(t, newEx(Eager).Stop(), tferrors.ErrInvalidState)
	})

	t.Run("start twice", func(t *testing.T) {
		ex := newEx(Eager)
		testutil.AssertNoError(t, ex.Start(context.Background()))
		testutil.AssertErrorIs(t, ex.Start(context.Background()), tferrors.ErrInvalidState)
		testutil.AssertNoError(t, ex.Stop())
	})

	t.Run("stop twice", func(t *testing.T) {
		ex := newEx(Eager)
		testutil.AssertNoError(t, ex.Start(context.Background()))
		testutil.AssertNoError(t, ex.Stop())
		testutil.AssertErrorIs(t, ex.Stop(), tferrors.ErrInvalidState)
	})

	t.Run("submit after stop", func(t *testing.T) {
		ex := newEx(Discard)
		testutil.AssertNoError(t, ex.Start(context.Background()))
		testutil.AssertNoError(t, ex.Stop())
		testutil.AssertErrorIs(t, ex.Submit(identity, 1, 0, Unknown), tferrors.ErrClosed)
	})

	t.Run("nil task function", func(t *testing.T) {
		ex := newEx(Discard)
		testutil.AssertErrorIs(t, ex.Submit(nil, 1, 0, Unknown), tferrors.ErrInvalidConfiguration)
	})

	t.Run("results before stop", func(t *testing.T) {
		ex := newEx(Eager)
		testutil.AssertNoError(t, ex.Start(context.Background()))
		_, err := ex.Results()
		testutil.AssertErrorIs(t, err, tferrors.ErrInvalidState)
		testutil.AssertNoError(t, ex.Stop())
	})

	t.Run("drain in eager mode", func(t *testing.T) {
		ex := newEx(Eager)
		testutil.AssertNoError(t, ex.Start(context.Background()))
		testutil.AssertNoError(t, ex.Stop())
		_, err := ex.Drain()
		testutil.AssertErrorIs(t, err, tferrors.ErrInvalidState)

		// Eager results stay readable.
		_, err = ex.Results()
		testutil.AssertNoError(t, err)
		_, err = ex.Results()
		testutil.AssertNoError(t, err)
	})

	t.Run("lazy results twice", func(t *testing.T) {
		ex := newEx(Lazy)
		testutil.AssertNoError(t, ex.Start(context.Background()))
		testutil.AssertNoError(t, ex.Stop())
		_, err := ex.Results()
		testutil.AssertNoError(t, err)
		_, err = ex.Results()
		testutil.AssertErrorIs(t, err, tferrors.ErrInvalidState)
		_, err = ex.Drain()
		testutil.AssertErrorIs(t, err, tferrors.ErrInvalidState)
	})
}

func TestConcurrentSubmitters(t *testing.T) {
	ex, err := New[int, int](quiet(Config{Workers: 4, Collect: Eager}))
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, ex.Start(context.Background()))

	const producers, perProducer = 6, 200
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				id := p*perProducer + i
				if err := ex.Submit(identity, id, id, Unknown); err != nil {
					t.Errorf("submit: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	testutil.AssertNoError(t, ex.Stop())
	results, err := ex.Results()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(results), producers*perProducer)
}

func TestTaskTimeout(t *testing.T) {
	fn := func(ctx context.Context, c Call[int]) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return c.Payload, nil
		}
	}

	cfg := Config{Workers: 2, Collect: Eager, FailurePolicy: Isolate, TaskTimeout: 10 * time.Millisecond}
	ex, results := runAll(t, cfg, 4, Count(4), fn)
	testutil.AssertEqual(t, len(results), 0)

	for _, f := range ex.Report().Failures {
		testutil.AssertErrorIs(t, f, context.DeadlineExceeded)
		testutil.AssertErrorIs(t, f, tferrors.ErrTimeout)
		testutil.AssertEqual(t, tferrors.IsRetryable(f), true)
	}
	testutil.AssertEqual(t, ex.Report().Failed, int64(4))
}

func TestTaskErrorWithoutTimeoutIsNotRetryable(t *testing.T) {
	cfg := Config{Workers: 1, Collect: Eager, FailurePolicy: Isolate, TaskTimeout: time.Second}
	ex, _ := runAll(t, cfg, 3, Count(3), failOn(1))

	failures := ex.Report().Failures
	testutil.AssertEqual(t, len(failures), 1)
	testutil.AssertEqual(t, tferrors.IsRetryable(failures[0]), false)
}

func TestRateLimiterFailureIsRetryable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex, err := New[int, int](quiet(Config{
		Workers:       2,
		Collect:       Eager,
		FailurePolicy: Isolate,
		RateLimit:     1,
		Burst:         1,
	}))
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, ex.Start(ctx))
	for i := 0; i < 6; i++ {
		testutil.AssertNoError(t, ex.Submit(identity, i, i, Count(6)))
	}
	testutil.AssertNoError(t, ex.Stop())

	report := ex.Report()
	testutil.AssertEqual(t, report.Failed, int64(6))
	for _, f := range report.Failures {
		testutil.AssertErrorIs(t, f, tferrors.ErrRateLimited)
		testutil.AssertErrorIs(t, f, context.Canceled)
		testutil.AssertEqual(t, tferrors.IsRetryable(f), true)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := Config{Workers: 4, Collect: Eager, RateLimit: 50, Burst: 1}

	start := time.Now()
	_, results := runAll(t, cfg, 5, Count(5), identity)
	elapsed := time.Since(start)

	testutil.AssertEqual(t, len(results), 5)
	// One immediate start, then four more at 20ms spacing.
	if elapsed < 60*time.Millisecond {
		t.Errorf("rate limit not applied, 5 tasks took %v", elapsed)
	}
}

func TestTaskDoneHook(t *testing.T) {
	var done, failed atomic.Int32
	cfg := Config{
		Workers:       3,
		Collect:       Discard,
		FailurePolicy: Isolate,
		OnTaskDone: func(_, _ int, err error) {
			done.Add(1)
			if err != nil {
				failed.Add(1)
			}
		},
	}

	runAll(t, cfg, 30, Count(30), failOn(7))
	testutil.AssertEqual(t, done.Load(), int32(30))
	testutil.AssertEqual(t, failed.Load(), int32(1))
}

func TestFailureIsLogged(t *testing.T) {
	w := testutil.NewMockWriter()
	cfg := Config{
		Workers: 1,
		Collect: Eager,
		Name:    "logged",
		Logger:  logger.New(w, logger.LevelWarn),
	}

	runAll(t, cfg, 3, Count(3), failOn(1))

	out := w.String()
	for _, part := range []string{"logged", "[ERROR]", "payload 1", "refusing payload 1", "worker=0"} {
		if !strings.Contains(out, part) {
			t.Errorf("log should contain %q:\n%s", part, out)
		}
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)

	const n = 20
	cfg := Config{Workers: 3, Collect: Eager, Name: "instrumented", Metrics: m}
	runAll(t, cfg, n, Count(n), failOn(5))

	value := func(c prometheus.Collector) float64 { return promtest.ToFloat64(c) }

	testutil.AssertEqual(t, value(m.TasksSubmitted.WithLabelValues("instrumented")), float64(n))
	testutil.AssertEqual(t, value(m.TasksCompleted.WithLabelValues("instrumented")), float64(n-1))
	testutil.AssertEqual(t, value(m.TasksFailed.WithLabelValues("instrumented")), float64(1))
	testutil.AssertEqual(t, value(m.WorkersAlive.WithLabelValues("instrumented")), float64(0))
	testutil.AssertEqual(t, promtest.CollectAndCount(m.TaskDuration), 1)
}

func TestTotal(t *testing.T) {
	testutil.AssertEqual(t, Unknown.String(), "unknown")
	testutil.AssertEqual(t, Unknown.Known(), false)
	testutil.AssertEqual(t, Count(12).String(), "12")
	testutil.AssertEqual(t, Count(0).Known(), true)

	n, ok := Count(7).Value()
	testutil.AssertEqual(t, n, 7)
	testutil.AssertEqual(t, ok, true)

	testutil.AssertEqual(t, Count(3) == Count(3), true)
	testutil.AssertEqual(t, Count(0) == Unknown, false)
}

func TestModeAndPolicyNames(t *testing.T) {
	testutil.AssertEqual(t, Discard.String(), "discard")
	testutil.AssertEqual(t, Eager.String(), "eager")
	testutil.AssertEqual(t, Lazy.String(), "lazy")
	testutil.AssertEqual(t, FailFast.String(), "fail_fast")
	testutil.AssertEqual(t, Isolate.String(), "isolate")
}
