package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/ecovalle/recolecta/core/metrics"
)

// PromSink records delivery, transition and points events in Prometheus
// metrics.
type PromSink struct {
	deliveries  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	points      *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_deliveries_total",
		Help: "Total number of realtime notification attempts",
	}, []string{"event_type", "delivered"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solicitud_transitions_total",
		Help: "Total number of committed request transitions",
	}, []string{"from", "to"})
	points := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_points_total",
		Help: "Total points moved through wallets",
	}, []string{"material", "redeemed"})

	if err := reg.Register(deliveries); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			deliveries = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(transitions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			transitions = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(points); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			points = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{deliveries: deliveries, transitions: transitions, points: points}, nil
}

// RecordDelivery increments the delivery counter for each attempt.
func (s *PromSink) RecordDelivery(ev coremetrics.DeliveryEvent) error {
	s.deliveries.WithLabelValues(ev.EventType, strconv.FormatBool(ev.Accepted > 0)).Inc()
	return nil
}

// RecordTransition counts the committed edge.
func (s *PromSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	s.transitions.WithLabelValues(string(ev.From), string(ev.To)).Inc()
	return nil
}

// RecordPoints accumulates moved points per material.
func (s *PromSink) RecordPoints(ev coremetrics.PointsEvent) error {
	s.points.WithLabelValues(ev.Material, strconv.FormatBool(ev.Redeemed)).Add(ev.Puntos)
	return nil
}
