package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler repeats a run on a cron schedule. A tick or RunNow that arrives
// while another run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	job    func(ctx context.Context)
	logger arbor.ILogger
	ctx    context.Context
	cancel context.CancelFunc

	running sync.Mutex
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler for job. Schedules accept an optional
// seconds field and descriptors such as "@every 5m".
func NewScheduler(job func(ctx context.Context), logger arbor.ILogger) *Scheduler {
	cronLog := cronLogger{logger: logger}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		job:    job,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the scheduled runs
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runExclusive("schedule")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Run scheduler started")

	return nil
}

// RunNow triggers an immediate run in the background
func (s *Scheduler) RunNow() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runExclusive("manual")
	}()
}

// runExclusive runs the job unless another run holds the lock. It reports
// whether the job ran.
func (s *Scheduler) runExclusive(trigger string) bool {
	if !s.running.TryLock() {
		s.logger.Warn().Str("trigger", trigger).Msg("Previous run still in progress, skipping")
		return false
	}
	defer s.running.Unlock()

	s.logger.Info().Str("trigger", trigger).Msg("Starting run")
	s.job(s.ctx)
	return true
}

// Next returns the next scheduled activation, zero before Start
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop cancels the running job and waits up to timeout for it to return
func (s *Scheduler) Stop(timeout time.Duration) {
	s.cancel()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn().Dur("timeout", timeout).Msg("Scheduled run did not stop in time")
	}

	s.logger.Info().Msg("Run scheduler stopped")
}

// cronLogger adapts arbor to cron.Logger
type cronLogger struct {
	logger arbor.ILogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	event := l.logger.Debug()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			event = event.Str(key, fmt.Sprint(keysAndValues[i+1]))
		}
	}
	event.Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	event := l.logger.Error().Err(err)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			event = event.Str(key, fmt.Sprint(keysAndValues[i+1]))
		}
	}
	event.Msg("cron: " + msg)
}
