// Package config loads taskflow job files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/taskflow/pkg/executor"
	"github.com/vnykmshr/taskflow/pkg/logger"
)

// FileConfig is the layout of a job file.
type FileConfig struct {
	Job JobConfig `yaml:"job" json:"job"`
}

// JobConfig describes one digest job.
type JobConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Paths       []string `yaml:"paths" json:"paths"`
	Workers     int      `yaml:"workers" json:"workers"`
	Collect     string   `yaml:"collect" json:"collect"`
	Policy      string   `yaml:"failure_policy" json:"failure_policy"`
	RateLimit   float64  `yaml:"rate_limit" json:"rate_limit"`
	Burst       int      `yaml:"burst" json:"burst"`
	TaskTimeout string   `yaml:"task_timeout" json:"task_timeout"`
	Schedule    string   `yaml:"schedule" json:"schedule"`
	LogLevel    string   `yaml:"log_level" json:"log_level"`
	Output      string   `yaml:"output" json:"output"`

	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// RedisConfig configures the optional Redis result sink.
type RedisConfig struct {
	Addr string `yaml:"addr" json:"addr"`
	Key  string `yaml:"key" json:"key"`
	DB   int    `yaml:"db" json:"db"`
	TTL  string `yaml:"ttl" json:"ttl"`
}

// Job is a validated job with defaults applied.
type Job struct {
	Name        string
	Paths       []string
	Workers     int // 0 lets the pool size itself
	Collect     executor.CollectMode
	Policy      executor.FailurePolicy
	RateLimit   float64
	Burst       int
	TaskTimeout time.Duration
	Schedule    string
	LogLevel    logger.Level
	Output      string
	MetricsAddr string

	RedisAddr string
	RedisKey  string
	RedisDB   int
	RedisTTL  time.Duration
}

// Default returns the job used when no file is given.
func Default() Job {
	return Job{
		Name:     "digest",
		Collect:  executor.Eager,
		Policy:   executor.FailFast,
		LogLevel: logger.LevelInfo,
		Output:   "-",
		RedisKey: "taskflow:digests",
	}
}

// LoadFile reads a YAML or JSON job file, chosen by extension.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// Validate checks values that cannot be defaulted.
func (f *FileConfig) Validate() error {
	jc := f.Job

	if jc.Workers < 0 {
		return fmt.Errorf("job.workers must be non-negative")
	}
	if jc.RateLimit < 0 {
		return fmt.Errorf("job.rate_limit must be non-negative")
	}
	if jc.Burst < 0 {
		return fmt.Errorf("job.burst must be non-negative")
	}
	if jc.Redis.DB < 0 {
		return fmt.Errorf("job.redis.db must be non-negative")
	}
	if jc.Schedule != "" {
		if _, err := cron.ParseStandard(jc.Schedule); err != nil {
			return fmt.Errorf("invalid job.schedule: %w", err)
		}
	}
	return nil
}

// ToJob applies the file on top of Default.
func (f *FileConfig) ToJob() (Job, error) {
	jc := f.Job
	job := Default()

	if jc.Name != "" {
		job.Name = jc.Name
	}
	if len(jc.Paths) > 0 {
		job.Paths = append([]string(nil), jc.Paths...)
	}
	if jc.Workers > 0 {
		job.Workers = jc.Workers
	}
	if jc.Collect != "" {
		mode, err := ParseCollectMode(jc.Collect)
		if err != nil {
			return job, err
		}
		job.Collect = mode
	}
	if jc.Policy != "" {
		policy, err := ParseFailurePolicy(jc.Policy)
		if err != nil {
			return job, err
		}
		job.Policy = policy
	}
	job.RateLimit = jc.RateLimit
	job.Burst = jc.Burst
	if jc.TaskTimeout != "" {
		d, err := time.ParseDuration(jc.TaskTimeout)
		if err != nil {
			return job, fmt.Errorf("invalid task_timeout: %w", err)
		}
		job.TaskTimeout = d
	}
	job.Schedule = jc.Schedule
	if jc.LogLevel != "" {
		level, err := logger.ParseLevel(jc.LogLevel)
		if err != nil {
			return job, err
		}
		job.LogLevel = level
	}
	if jc.Output != "" {
		job.Output = jc.Output
	}
	job.MetricsAddr = jc.Metrics.Addr

	job.RedisAddr = jc.Redis.Addr
	if jc.Redis.Key != "" {
		job.RedisKey = jc.Redis.Key
	}
	job.RedisDB = jc.Redis.DB
	if jc.Redis.TTL != "" {
		d, err := time.ParseDuration(jc.Redis.TTL)
		if err != nil {
			return job, fmt.Errorf("invalid redis.ttl: %w", err)
		}
		job.RedisTTL = d
	}

	return job, nil
}

// ParseCollectMode accepts "eager" or "lazy".
func ParseCollectMode(name string) (executor.CollectMode, error) {
	switch strings.ToLower(name) {
	case "eager":
		return executor.Eager, nil
	case "lazy":
		return executor.Lazy, nil
	}
	return executor.Eager, fmt.Errorf("unknown collect mode: %s", name)
}

// ParseFailurePolicy accepts "fail_fast" or "isolate".
func ParseFailurePolicy(name string) (executor.FailurePolicy, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "fail_fast", "failfast":
		return executor.FailFast, nil
	case "isolate":
		return executor.Isolate, nil
	}
	return executor.FailFast, fmt.Errorf("unknown failure policy: %s", name)
}
