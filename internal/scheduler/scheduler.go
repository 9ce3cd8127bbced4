// Package scheduler provides recurring job scheduling for FarmGenius.
//
// It drives the periodic page work, such as rotating the news carousel and
// evicting idle client pages, using cron expressions or @every descriptors.
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// JobID identifies a scheduled job so it can be removed later.
type JobID = cron.EntryID

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Standard 5-field cron parser (min, hour, dom, month, dow) plus descriptors like "@every 5s"
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) (JobID, error) {
	id, err := s.cron.AddFunc(expr, task)
	if err != nil {
		slog.Error("Scheduler.AddJob: invalid expression", "expr", expr, "error", err)
		return 0, err
	}
	slog.Debug("Scheduler.AddJob: scheduled", "expr", expr, "id", id)
	return id, nil
}

// Remove cancels a scheduled job. Unknown ids are ignored.
func (s *Scheduler) Remove(id JobID) {
	s.cron.Remove(id)
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
