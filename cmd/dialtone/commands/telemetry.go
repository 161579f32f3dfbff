package commands

import (
	"sync"
	"time"

	"github.com/dialtone/dialtone/pkg/compose"
	"github.com/dialtone/dialtone/pkg/telemetry"
)

// setupTelemetry builds the process telemetry stack. When metricsListen is
// non-empty a Prometheus endpoint is served there for the lifetime of the
// command.
func setupTelemetry(metricsListen string) (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	if metricsListen != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddress = metricsListen
	}

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return nil, err
	}
	if metricsListen != "" {
		if err := tel.StartMetricsServer(); err != nil {
			return nil, err
		}
	}
	return tel, nil
}

// applySink feeds apply lifecycle events into metrics and the event stream.
type applySink struct {
	tel    *telemetry.Telemetry
	starts sync.Map
}

func newApplySink(tel *telemetry.Telemetry) *applySink {
	return &applySink{tel: tel}
}

func (s *applySink) UnitStarted(runID string, unit compose.PlanUnit) {
	s.starts.Store(unit.ID, time.Now())
}

func (s *applySink) UnitSucceeded(runID string, unit compose.PlanUnit, identity compose.Identity) {
	var duration time.Duration
	if started, ok := s.starts.LoadAndDelete(unit.ID); ok {
		duration = time.Since(started.(time.Time))
	}
	s.tel.Metrics.RecordResourceProvisioned(string(unit.Kind), duration)
	s.tel.Events.PublishResourceProvisioned(runID, unit.ID, identity.ID)
}

func (s *applySink) UnitFailed(runID string, unit compose.PlanUnit, err error) {
	s.starts.Delete(unit.ID)
	s.tel.Metrics.RecordProvisionFailure(string(unit.Kind))
	s.tel.Events.PublishResourceFailed(runID, unit.ID, err.Error())
}

func (s *applySink) UnitSkipped(runID string, unit compose.PlanUnit, reason string) {
	s.starts.Delete(unit.ID)
}
