package jobs

import (
	"sync"
	"time"

	"hospitalops/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// QualitySweep runs the offline quality checks on a fixed interval and logs
// every finding. It records the last report so the admin API can expose it
// without re-running the checks.
type QualitySweep struct {
	scheduler gocron.Scheduler
	quality   services.QualityService
	interval  time.Duration
	log       *logrus.Entry

	mu         sync.RWMutex
	lastReport *services.QualityReport
	lastRun    time.Time
}

func NewQualitySweep(quality services.QualityService, interval time.Duration) (*QualitySweep, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	s := &QualitySweep{
		scheduler: scheduler,
		quality:   quality,
		interval:  interval,
		log:       logrus.WithField("component", "quality-sweep"),
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run),
		gocron.WithName("quality-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *QualitySweep) Start() {
	s.log.WithField("interval", s.interval).Info("starting quality sweep")
	s.scheduler.Start()
}

func (s *QualitySweep) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *QualitySweep) run() {
	report := s.quality.RunOfflineChecks()
	s.mu.Lock()
	s.lastReport = report
	s.lastRun = time.Now()
	s.mu.Unlock()

	if report.Passed {
		s.log.Info("quality sweep passed")
		return
	}
	for _, finding := range report.RouteScan {
		s.log.WithFields(logrus.Fields{
			"method":  finding.Method,
			"path":    finding.Path,
			"problem": finding.Problem,
		}).Warn("route scan finding")
	}
	for _, probe := range report.CrossTenantTests {
		if !probe.Passed {
			s.log.WithFields(logrus.Fields{
				"probe":  probe.Name,
				"detail": probe.Detail,
			}).Warn("cross-tenant probe failed")
		}
	}
}

// LastReport returns the most recent sweep result, or nil before the first
// run.
func (s *QualitySweep) LastReport() (*services.QualityReport, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport, s.lastRun
}
