package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vnykmshr/taskflow/internal/config"
	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/executor"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/parallel"
	"github.com/vnykmshr/taskflow/pkg/sink"
)

var (
	red   = color.New(color.FgRed, color.Bold)
	green = color.New(color.FgGreen)
)

// runner executes a digest job, once or on a schedule.
type runner struct {
	job      config.Job
	log      *logger.Logger
	metrics  *metrics.Registry
	sinks    []sink.Sink[Digest]
	table    io.Writer // nil disables the table
	status   io.Writer
	progress bool
}

// summary describes one job run.
type summary struct {
	Files    int
	Digested int
	Failed    int
	Abandoned int
	Bytes     int64
	Elapsed  time.Duration
}

// runOnce digests every file the job's patterns match.
func (r *runner) runOnce(ctx context.Context) (summary, error) {
	var s summary

	paths, err := expandPaths(r.job.Paths)
	if err != nil {
		return s, err
	}
	s.Files = len(paths)
	if len(paths) == 0 {
		r.log.Warn("no files match %v", r.job.Paths)
		return s, nil
	}

	opts := []parallel.Option{
		parallel.WithName(r.job.Name),
		parallel.WithLogger(r.log),
		parallel.WithMetrics(r.metrics),
		parallel.WithCollectMode(r.job.Collect),
		parallel.WithFailurePolicy(r.job.Policy),
		parallel.WithTaskTimeout(r.job.TaskTimeout),
	}
	if r.job.Workers > 0 {
		opts = append(opts, parallel.WithWorkers(r.job.Workers))
	}
	if r.job.RateLimit > 0 {
		opts = append(opts, parallel.WithRateLimit(r.job.RateLimit, max(r.job.Burst, 1)))
	}
	if r.progress {
		bar := newProgressBar(len(paths), r.job.Name, r.status)
		defer func() { _ = bar.Finish() }()
		opts = append(opts, parallel.WithProgress(func(int, executor.Total) {
			_ = bar.Add(1)
		}))
	}

	start := time.Now()
	digests, runErr := parallel.Map(ctx, paths, digestFile, opts...)
	s.Elapsed = time.Since(start)

	sort.Slice(digests, func(i, j int) bool {
		return digests[i].SequenceID < digests[j].SequenceID
	})
	s.Digested = len(digests)
	for _, d := range digests {
		s.Bytes += d.Size
	}

	var failures *tferrors.RunError
	if errors.As(runErr, &failures) {
		s.Failed = len(failures.Failures)
		s.Abandoned = int(failures.Abandoned)
	} else if runErr != nil {
		return s, runErr
	}

	if r.table != nil {
		if err := renderTable(r.table, digests); err != nil {
			r.log.Warn("render table: %v", err)
		}
	}

	for _, out := range r.sinks {
		if err := out.Write(ctx, digests); err != nil {
			return s, fmt.Errorf("write results: %w", err)
		}
	}

	r.printSummary(s, failures)
	return s, runErr
}

func (r *runner) printSummary(s summary, failures *tferrors.RunError) {
	_, _ = green.Fprintf(r.status, "%s: digested %d/%d files (%d bytes) in %v\n",
		r.job.Name, s.Digested, s.Files, s.Bytes, s.Elapsed.Round(time.Millisecond))
	if failures == nil {
		return
	}
	for _, f := range failures.Failures {
		_, _ = red.Fprintf(r.status, "  failed: %v: %v\n", f.Payload, f.Cause)
	}
	if failures.Abandoned > 0 {
		_, _ = red.Fprintf(r.status, "  abandoned: %d files never digested (no worker left)\n", failures.Abandoned)
	}
}

// logRunError logs the outcome of a scheduled run. Task failures are a
// warning; anything else means the run itself failed.
func (r *runner) logRunError(err error) {
	switch {
	case err == nil:
	case tferrors.IsTaskError(err):
		r.log.Warn("run finished with task failures: %v", err)
	default:
		r.log.Error("run failed: %v", err)
	}
}

func renderTable(w io.Writer, digests []Digest) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Path", "Size", "SHA-256", "Worker", "Time")

	for _, d := range digests {
		_ = table.Append(
			fmt.Sprintf("%d", d.SequenceID),
			d.Path,
			fmt.Sprintf("%d", d.Size),
			d.SHA256[:16],
			fmt.Sprintf("%d", d.WorkerID),
			d.Elapsed.Round(time.Microsecond).String(),
		)
	}
	return table.Render()
}

func newProgressBar(total int, name string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(fmt.Sprintf("Digesting (%s)", name)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)
}

// serve runs the job, and the metrics endpoint when configured, until the
// job finishes or ctx is cancelled. Scheduled jobs run until ctx is done.
func serve(ctx context.Context, r *runner, reg *prometheus.Registry) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if r.job.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: r.job.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			r.log.Info("serving metrics on %s/metrics", r.job.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if r.job.Schedule == "" {
			defer cancel()
			_, err := r.runOnce(ctx)
			return err
		}
		return r.scheduled(ctx)
	})

	return g.Wait()
}

// scheduled runs the job now and then on every tick of the cron schedule.
func (r *runner) scheduled(ctx context.Context) error {
	tick := func() {
		_, err := r.runOnce(ctx)
		r.logRunError(err)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.job.Schedule, tick); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", r.job.Schedule, err)
	}

	tick()
	c.Start()
	r.log.Info("scheduled %q, waiting for next run", r.job.Schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// openSinks creates the output sinks the job asks for. The returned
// function closes them along with any Redis client.
func openSinks(job config.Job) ([]sink.Sink[Digest], func(), error) {
	var sinks []sink.Sink[Digest]
	var closers []func()
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
		for _, c := range closers {
			c()
		}
	}

	switch job.Output {
	case "":
	case "-":
		sinks = append(sinks, sink.NewJSONLines[Digest](nopCloser{os.Stdout}))
	default:
		f, err := os.Create(job.Output)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, sink.NewJSONLines[Digest](f))
	}

	if job.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: job.RedisAddr, DB: job.RedisDB})
		closers = append(closers, func() { _ = rdb.Close() })

		list, err := sink.NewRedisList[Digest](sink.RedisConfig{
			Redis: rdb,
			Key:   job.RedisKey,
			TTL:   job.RedisTTL,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, list)
	}

	return sinks, closeAll, nil
}

// nopCloser keeps the JSON-lines sink from closing stdout.
type nopCloser struct{ io.Writer }
