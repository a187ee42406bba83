package metrics

import coremetrics "github.com/ecovalle/recolecta/core/metrics"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDelivery forwards the record to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordDelivery(ev coremetrics.DeliveryEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDelivery(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordTransition forwards transition events.
func (m *MultiSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTransition(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordPoints forwards wallet movements.
func (m *MultiSink) RecordPoints(ev coremetrics.PointsEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPoints(ev); err != nil {
			return err
		}
	}
	return nil
}
