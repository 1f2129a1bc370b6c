// Package schedjobs runs minute-resolution cron jobs as an app service
package schedjobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zeptools/pdf-joiner/svc"
)

type Scheduler struct {
	Ctx      context.Context    // Service Context
	cancel   context.CancelFunc // Service Context CancelFunc
	state    int                // internal service state
	done     chan error         // Shutdown Error Channel
	cronJobs []*CronJob
	mu       sync.Mutex
	wg       sync.WaitGroup
	// Default Callback
	OnCronJobFinished func(job *CronJob, err error)
}

// Ensure Scheduler implements svc.Service
var _ svc.Service = (*Scheduler)(nil)

func NewScheduler(parentCtx context.Context) *Scheduler {
	svcCtx, svcCancel := context.WithCancel(parentCtx)
	return &Scheduler{
		Ctx:    svcCtx,
		cancel: svcCancel,
		state:  svc.StateREADY,
		done:   make(chan error, 1),
	}
}

func (s *Scheduler) Name() string {
	return "JobScheduler"
}

func (s *Scheduler) Start() error {
	s.state = svc.StateRUNNING
	go s.loop()
	log.Println("[INFO][SCHED] job scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.state = svc.StateSTOPPED
}

func (s *Scheduler) Done() <-chan error {
	return s.done
}

func (s *Scheduler) loop() {
	// align ticks to the start of a minute
	timer := time.NewTimer(time.Until(time.Now().Truncate(time.Minute).Add(time.Minute)))
	defer timer.Stop()
	for {
		select {
		case now := <-timer.C:
			s.Tick(now)
			timer.Reset(time.Until(now.Truncate(time.Minute).Add(time.Minute)))
		case <-s.Ctx.Done():
			s.wg.Wait() // wait for running tasks
			log.Println("[INFO][SCHED] job scheduler stopped")
			s.done <- nil
			return
		}
	}
}

// Tick runs every job matching now in its own goroutine
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	jobs := append([]*CronJob(nil), s.cronJobs...) // copy jobs so unlocking early is possible
	s.mu.Unlock()
	for _, job := range jobs {
		if job.Matches(now) {
			s.runCronJob(job)
		}
	}
}

// Wait blocks until running jobs return
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runCronJob(job *CronJob) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] recovered in cron job %s: %v", job.ID, r)
			}
		}()
		err := job.Task(s.Ctx)
		if err != nil {
			log.Printf("[ERROR][SCHED] cron job %s: %v", job.ID, err)
		}
		if job.OnFinished != nil {
			job.OnFinished(err)
		}
		if s.OnCronJobFinished != nil {
			s.OnCronJobFinished(job, err)
		}
	}()
}

func (s *Scheduler) AddCronJob(job *CronJob) {
	s.mu.Lock()
	s.cronJobs = append(s.cronJobs, job)
	s.mu.Unlock()
	log.Printf("[INFO][SCHED] cron job %s added", job.ID)
}

// GetCronJobs returns a copy of all registered cron jobs
func (s *Scheduler) GetCronJobs() []*CronJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*CronJob(nil), s.cronJobs...)
}

// DeleteCronJob removes a cron job by its ID
func (s *Scheduler) DeleteCronJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	newJobs := s.cronJobs[:0] // reuse underlying array
	for _, job := range s.cronJobs {
		if job.ID != jobID {
			newJobs = append(newJobs, job)
		}
	}
	s.cronJobs = newJobs
}
