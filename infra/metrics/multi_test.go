package metrics

import (
	"testing"

	coremetrics "github.com/ecovalle/recolecta/core/metrics"
)

type recordSink struct {
	count int
}

func (r *recordSink) RecordDelivery(coremetrics.DeliveryEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordTransition(coremetrics.TransitionEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordPoints(coremetrics.PointsEvent) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordDelivery(coremetrics.DeliveryEvent{}); err != nil {
		t.Fatalf("record delivery: %v", err)
	}
	if err := m.RecordTransition(coremetrics.TransitionEvent{}); err != nil {
		t.Fatalf("record transition: %v", err)
	}
	if err := m.RecordPoints(coremetrics.PointsEvent{}); err != nil {
		t.Fatalf("record points: %v", err)
	}
	if s1.count != 3 || s2.count != 3 {
		t.Fatalf("events not forwarded")
	}
}
