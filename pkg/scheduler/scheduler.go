package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"smart-gallery/pkg/logger"
)

// Task is one run of a maintenance job. It is cancelled when the job's timeout passes
// or the scheduler stops.
type Task func(ctx context.Context) error

type JobScheduler interface {
	Start()
	Stop()
	AddJob(id, cronExpr string, timeout time.Duration, task Task) error
	RemoveJob(id string) error
	// RunNow runs a registered job immediately and waits for it.
	RunNow(id string) error
	GetJob(id string) (*JobInfo, bool)
	ListJobs() map[string]*JobInfo
	IsRunning() bool
}

type JobInfo struct {
	ID        string     `json:"id"`
	CronExpr  string     `json:"cron_expr"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	Runs      int        `json:"runs"`

	job     *gocron.Job
	task    Task
	timeout time.Duration
}

type GocronScheduler struct {
	scheduler *gocron.Scheduler
	jobs      map[string]*JobInfo
	mu        sync.RWMutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewJobScheduler() JobScheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &GocronScheduler{
		scheduler: s,
		jobs:      make(map[string]*JobInfo),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *GocronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logger.SchedulerWarn("start", "Scheduler is already running", nil)
		return
	}

	s.scheduler.StartAsync()
	s.running = true
	logger.Scheduler("started", "Job scheduler started", map[string]interface{}{"jobs": len(s.jobs)})
}

func (s *GocronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.scheduler.Stop()
	s.running = false
	logger.Scheduler("stopped", "Job scheduler stopped", nil)
}

func (s *GocronScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *GocronScheduler) AddJob(id, cronExpr string, timeout time.Duration, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job %s already exists", id)
	}

	job, err := s.scheduler.Cron(cronExpr).Do(func() { s.run(id, timeout, task) })
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", cronExpr, id, err)
	}

	nextRun := job.NextRun()
	s.jobs[id] = &JobInfo{ID: id, CronExpr: cronExpr, NextRun: &nextRun, job: job, task: task, timeout: timeout}

	logger.Scheduler("job_added", "Job added", map[string]interface{}{
		"job_id":    id,
		"cron_expr": cronExpr,
		"next_run":  nextRun.Format(time.RFC3339),
	})
	return nil
}

func (s *GocronScheduler) run(id string, timeout time.Duration, task Task) {
	start := time.Now()
	ctx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := task(ctx)

	s.mu.Lock()
	if info, ok := s.jobs[id]; ok {
		info.LastRun = &start
		info.Runs++
		info.LastError = ""
		if err != nil {
			info.LastError = err.Error()
		}
		if info.job != nil {
			next := info.job.NextRun()
			info.NextRun = &next
		}
	}
	s.mu.Unlock()

	data := map[string]interface{}{"job_id": id, "duration": time.Since(start).String()}
	if err != nil {
		logger.SchedulerError("job_failed", "Job failed", err, data)
		return
	}
	logger.Scheduler("job_completed", "Job completed", data)
}

func (s *GocronScheduler) RunNow(id string) error {
	s.mu.RLock()
	info, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}

	s.run(id, info.timeout, info.task)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if info.LastError != "" {
		return errors.New(info.LastError)
	}
	return nil
}

func (s *GocronScheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job %s not found", id)
	}
	if info.job != nil {
		s.scheduler.RemoveByReference(info.job)
	}
	delete(s.jobs, id)

	logger.Scheduler("job_removed", "Job removed", map[string]interface{}{"job_id": id})
	return nil
}

func (s *GocronScheduler) GetJob(id string) (*JobInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return info.snapshot(), true
}

func (s *GocronScheduler) ListJobs() map[string]*JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make(map[string]*JobInfo, len(s.jobs))
	for id, info := range s.jobs {
		jobs[id] = info.snapshot()
	}
	return jobs
}

// snapshot copies the info so callers can read it without the lock.
func (j *JobInfo) snapshot() *JobInfo {
	c := *j
	c.job = nil
	c.task = nil
	if j.LastRun != nil {
		lastRun := *j.LastRun
		c.LastRun = &lastRun
	}
	if j.job != nil {
		next := j.job.NextRun()
		c.NextRun = &next
	}
	return &c
}
