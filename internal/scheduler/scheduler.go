// Package scheduler fires the open job every trading morning. The job itself
// is idempotent per trading date, so an extra firing (or a holiday firing
// that plans against the next session) is harmless.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/openquiver/congresstrader/internal/timeutil"
)

// OpenJobSchedule is 9:30 AM Eastern on weekdays.
const OpenJobSchedule = "30 9 * * MON-FRI"

// Scheduler wraps a cron runner pinned to the Eastern time zone.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithLocation(timeutil.Eastern))}
}

// AddOpenJob registers run to fire at each market open.
func (s *Scheduler) AddOpenJob(run func()) error {
	_, err := s.cron.AddFunc(OpenJobSchedule, func() {
		log.Info().Str("schedule", OpenJobSchedule).Msg("Scheduled open job firing")
		run()
	})
	if err != nil {
		return err
	}
	log.Info().Str("schedule", OpenJobSchedule).Msg("Open job registered")
	return nil
}

// Start begins the schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("Scheduler started")
}

// Stop waits for any in-flight job before returning.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}
