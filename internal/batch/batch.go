// Package batch executes many independent generation tasks against one
// rate-limited external capability, tuning concurrency from observed
// success and rate-limit signals.
//
// Tasks are partitioned into fixed-size groups processed one group at a
// time. Within a group up to the current worker count run concurrently.
// Worker-pool state lives for one RunBatch call only, so concurrent batches
// tune independently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jonathan/storyforge/internal/types"
)

const (
	// DefaultGroupSize is how many tasks form one sequential group.
	DefaultGroupSize = 20

	defaultMinWorkers     = 2
	defaultMaxWorkers     = 20
	defaultInitialWorkers = 15

	baseBackoff = time.Second
	maxBackoff  = 60 * time.Second
)

// Task is one unit of work: a correlation key plus the payload handed to the
// generate function.
type Task struct {
	Key     string
	Payload string
}

// GenerateFunc produces one result for a payload. The key is passed through
// for logging and storage naming.
type GenerateFunc func(ctx context.Context, payload, key string) (*types.ImageResult, error)

// HealthFunc reports whether the underlying capability is usable at all.
type HealthFunc func(ctx context.Context) error

// CheckpointSink persists per-group progress records.
type CheckpointSink interface {
	SaveCheckpoint(ctx context.Context, checkpoint *types.BatchCheckpoint) error
}

// rateLimited is implemented by provider errors that signal "too many
// requests". Detection is by type, never by message text.
type rateLimited interface {
	RateLimited() bool
}

// Config tunes the executor. Zero values fall back to the defaults above.
type Config struct {
	GroupSize      int
	MinWorkers     int
	MaxWorkers     int
	InitialWorkers int
	// RatePerSecond throttles task starts across the whole batch when > 0.
	RatePerSecond float64
}

func (c Config) withDefaults() Config {
	if c.GroupSize <= 0 {
		c.GroupSize = DefaultGroupSize
	}
	if c.MinWorkers <= 0 {
		c.MinWorkers = defaultMinWorkers
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = defaultMaxWorkers
	}
	if c.InitialWorkers <= 0 {
		c.InitialWorkers = defaultInitialWorkers
	}
	if c.InitialWorkers < c.MinWorkers {
		c.InitialWorkers = c.MinWorkers
	}
	if c.InitialWorkers > c.MaxWorkers {
		c.InitialWorkers = c.MaxWorkers
	}
	return c
}

// Executor runs batches of generation tasks.
type Executor struct {
	cfg  Config
	sink CheckpointSink

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// NewExecutor creates an Executor. sink may be nil when checkpoints are not
// wanted.
func NewExecutor(cfg Config, sink CheckpointSink) *Executor {
	return &Executor{
		cfg:   cfg.withDefaults(),
		sink:  sink,
		sleep: time.Sleep,
	}
}

// poolState is the adaptive concurrency state for one RunBatch call.
type poolState struct {
	current int
	min     int
	max     int
	backoff time.Duration
}

func (p *poolState) onRateLimit() time.Duration {
	p.current = p.current / 2
	if p.current < p.min {
		p.current = p.min
	}
	p.backoff *= 2
	if p.backoff > maxBackoff {
		p.backoff = maxBackoff
	}
	return p.backoff
}

func (p *poolState) onError() {
	p.backoff = baseBackoff
}

func (p *poolState) onSuccess() {
	if p.current < p.max {
		p.current++
	}
}

// taskReport carries one task's raw outcome from worker to tuning loop. The
// error stays typed so rate limiting is detected by type, not message text.
type taskReport struct {
	key    string
	result *types.ImageResult
	err    error
}

// RunBatch executes all tasks and returns one outcome per key. It never
// returns an error: task failures are recorded per key, and a failed health
// check short-circuits every task to a uniform placeholder without any
// generation attempt.
func (e *Executor) RunBatch(ctx context.Context, tasks []Task, generate GenerateFunc, healthy HealthFunc) map[string]types.TaskOutcome {
	results := make(map[string]types.TaskOutcome, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	if healthy != nil {
		if err := healthy(ctx); err != nil {
			fmt.Printf("Capability unavailable, short-circuiting %d tasks: %v\n", len(tasks), err)
			for _, task := range tasks {
				results[task.Key] = types.TaskOutcome{
					Result: &types.ImageResult{},
					Error:  "unavailable",
				}
			}
			return results
		}
	}

	var limiter *rate.Limiter
	if e.cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(e.cfg.RatePerSecond), 1)
	}

	pool := &poolState{
		current: e.cfg.InitialWorkers,
		min:     e.cfg.MinWorkers,
		max:     e.cfg.MaxWorkers,
		backoff: baseBackoff,
	}

	totalGroups := (len(tasks) + e.cfg.GroupSize - 1) / e.cfg.GroupSize
	for groupNum := 0; groupNum < totalGroups; groupNum++ {
		start := groupNum * e.cfg.GroupSize
		end := min(start+e.cfg.GroupSize, len(tasks))
		group := tasks[start:end]

		fmt.Printf("Processing batch group %d/%d (%d tasks @ %d workers)\n",
			groupNum+1, totalGroups, len(group), pool.current)

		groupResults := e.runGroup(ctx, group, generate, limiter, pool)
		for key, outcome := range groupResults {
			results[key] = outcome
		}

		e.saveCheckpoint(ctx, groupNum, totalGroups, groupResults, pool.current)
	}

	return results
}

// runGroup fans out one group of tasks and folds their outcomes in
// completion order, applying concurrency tuning as each report arrives.
// The worker limit is fixed at the group's start; tuning takes effect on
// the next group.
func (e *Executor) runGroup(ctx context.Context, group []Task, generate GenerateFunc, limiter *rate.Limiter, pool *poolState) map[string]types.TaskOutcome {
	reports := make(chan taskReport, len(group))

	var g errgroup.Group
	g.SetLimit(pool.current)
	for _, task := range group {
		task := task
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					reports <- taskReport{key: task.Key, err: err}
					return nil
				}
			}
			result, err := safeGenerate(ctx, generate, task)
			reports <- taskReport{key: task.Key, result: result, err: err}
			return nil
		})
	}

	groupResults := make(map[string]types.TaskOutcome, len(group))
	rateLimitedGroup := false

	for i := 0; i < len(group); i++ {
		rep := <-reports
		if rep.err != nil {
			groupResults[rep.key] = types.TaskOutcome{Error: rep.err.Error()}

			var rl rateLimited
			if errors.As(rep.err, &rl) && rl.RateLimited() {
				rateLimitedGroup = true
				backoff := pool.onRateLimit()
				fmt.Printf("Rate limited on %s, reducing workers to %d, backing off %s\n",
					rep.key, pool.current, backoff)
				e.sleep(backoff)
			} else {
				pool.onError()
			}
			continue
		}

		groupResults[rep.key] = types.TaskOutcome{Result: rep.result}
		if !rateLimitedGroup {
			pool.onSuccess()
		}
	}

	_ = g.Wait()
	return groupResults
}

// safeGenerate calls generate and converts panics into errors so one bad
// task cannot take down its siblings.
func safeGenerate(ctx context.Context, generate GenerateFunc, task Task) (result *types.ImageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return generate(ctx, task.Payload, task.Key)
}

// saveCheckpoint persists the per-group progress record. Failures are logged
// and never abort the batch.
func (e *Executor) saveCheckpoint(ctx context.Context, groupNum, totalGroups int, groupResults map[string]types.TaskOutcome, concurrency int) {
	if e.sink == nil {
		return
	}

	succeeded := 0
	for _, outcome := range groupResults {
		if outcome.Result != nil && outcome.Result.ImageURL != nil {
			succeeded++
		}
	}

	checkpoint := &types.BatchCheckpoint{
		GroupIndex:  groupNum + 1,
		TotalGroups: totalGroups,
		Outcomes:    groupResults,
		SuccessRate: fmt.Sprintf("%d/%d tasks succeeded", succeeded, len(groupResults)),
		Concurrency: concurrency,
		Timestamp:   time.Now().UTC(),
	}
	if err := e.sink.SaveCheckpoint(ctx, checkpoint); err != nil {
		fmt.Printf("Failed to save batch checkpoint %d/%d: %v\n", groupNum+1, totalGroups, err)
	}
}
