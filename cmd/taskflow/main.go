// Package main is the entry point for the taskflow digest tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/taskflow/internal/config"
	"github.com/vnykmshr/taskflow/pkg/executor"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

var version = "dev"

func main() {
	var (
		configFile  = flag.String("config", "", "job file (YAML/JSON)")
		workers     = flag.Int("workers", 0, "worker count (default: min(files, GOMAXPROCS))")
		lazy        = flag.Bool("lazy", false, "collect results lazily after the pool stops")
		isolate     = flag.Bool("isolate", false, "keep workers alive after a task fails")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
		schedule    = flag.String("schedule", "", "cron schedule to repeat the job on (e.g. \"@every 1m\")")
		redisAddr   = flag.String("redis-addr", "", "push digests to Redis at this address")
		redisKey    = flag.String("redis-key", "", "Redis list key")
		out         = flag.String("out", "", "JSON-lines output file, - for stdout")
		logLevel    = flag.String("log-level", "", "debug, info, warn, error or none")
		noProgress  = flag.Bool("no-progress", false, "disable the progress bar")
		showVersion = flag.Bool("version", false, "print version and exit")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `taskflow - parallel file digests on a bounded worker pool

Usage:
  taskflow [options] [pattern ...]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Digest every Go file with 4 workers
  taskflow -workers 4 './**/*.go' '*.go'

  # Run a job file every hour, exposing metrics
  taskflow -config job.yaml -schedule '@hourly' -metrics-addr :9090

  # Push results to Redis instead of stdout
  taskflow -out '' -redis-addr localhost:6379 -redis-key digests '/data/*'
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("taskflow version %s\n", version)
		return
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	job, err := buildJob(*configFile, flag.Args(), func(job *config.Job) error {
		if set["workers"] {
			job.Workers = *workers
		}
		if set["lazy"] && *lazy {
			job.Collect = executor.Lazy
		}
		if set["isolate"] && *isolate {
			job.Policy = executor.Isolate
		}
		if set["metrics-addr"] {
			job.MetricsAddr = *metricsAddr
		}
		if set["schedule"] {
			job.Schedule = *schedule
		}
		if set["redis-addr"] {
			job.RedisAddr = *redisAddr
		}
		if set["redis-key"] {
			job.RedisKey = *redisKey
		}
		if set["out"] {
			job.Output = *out
		}
		if set["log-level"] {
			level, err := logger.ParseLevel(*logLevel)
			if err != nil {
				return err
			}
			job.LogLevel = level
		}
		return nil
	})
	if err != nil {
		logger.Error("configuration error: %v", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, job, !*noProgress); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// buildJob layers defaults, the job file, positional patterns and flag
// overrides, in that order.
func buildJob(configFile string, patterns []string, override func(*config.Job) error) (config.Job, error) {
	job := config.Default()

	if configFile != "" {
		fileConfig, err := config.LoadFile(configFile)
		if err != nil {
			return job, err
		}
		if err := fileConfig.Validate(); err != nil {
			return job, err
		}
		if job, err = fileConfig.ToJob(); err != nil {
			return job, err
		}
	}

	job.Paths = append(job.Paths, patterns...)

	if override != nil {
		if err := override(&job); err != nil {
			return job, err
		}
	}

	if len(job.Paths) == 0 {
		return job, fmt.Errorf("no file patterns given")
	}
	if job.Workers < 0 {
		return job, fmt.Errorf("workers must be non-negative")
	}
	return job, nil
}

func run(ctx context.Context, job config.Job, progress bool) error {
	log := logger.New(os.Stderr, job.LogLevel).WithPrefix("taskflow")
	logger.SetDefault(log)

	reg := prometheus.NewRegistry()
	sinks, closeSinks, err := openSinks(job)
	if err != nil {
		return err
	}
	defer closeSinks()

	r := &runner{
		job:      job,
		log:      log,
		metrics:  metrics.NewRegistry(reg),
		sinks:    sinks,
		table:    os.Stdout,
		status:   os.Stderr,
		progress: progress,
	}
	if job.Output == "-" {
		r.table = os.Stderr
	}

	return serve(ctx, r, reg)
}
