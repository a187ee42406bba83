// Package app wires the whole service together from the configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ecovalle/recolecta/analytics"
	"github.com/ecovalle/recolecta/api"
	"github.com/ecovalle/recolecta/auth"
	"github.com/ecovalle/recolecta/config"
	"github.com/ecovalle/recolecta/core/events"
	"github.com/ecovalle/recolecta/core/ledger"
	"github.com/ecovalle/recolecta/core/lifecycle"
	coremetrics "github.com/ecovalle/recolecta/core/metrics"
	coremon "github.com/ecovalle/recolecta/core/monitoring"
	"github.com/ecovalle/recolecta/core/orchestrator"
	"github.com/ecovalle/recolecta/infra/logger"
	"github.com/ecovalle/recolecta/infra/metrics"
	"github.com/ecovalle/recolecta/infra/monitoring"
	"github.com/ecovalle/recolecta/infra/mqtt"
	"github.com/ecovalle/recolecta/internal/eventbus"
	"github.com/ecovalle/recolecta/realtime"
	"github.com/ecovalle/recolecta/store"
)

// Service holds the wired collaborators and the HTTP listener.
type Service struct {
	Registry *realtime.Registry
	Orch     *orchestrator.Orchestrator

	cfg    *config.Config
	st     store.Store
	bus    *eventbus.Bus[events.LifecycleEvent]
	bridge *mqtt.Bridge
	mqttC  *mqtt.PahoClient
	srv    *http.Server
	log    logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink
	switch len(sinks) {
	case 0:
		sink = coremetrics.NopSink{}
	case 1:
		sink = sinks[0]
	default:
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New[events.LifecycleEvent]()
	reg := realtime.NewRegistry(logger.New("registry"))
	disp := realtime.NewDispatcher(reg, sink, logger.New("dispatcher"))
	led := ledger.New(st, logger.New("ledger"))

	orch, err := orchestrator.New(lifecycle.New(st), led, disp, st, bus, sink, logger.New("orchestrator"))
	if err != nil {
		return nil, err
	}

	svc := &Service{
		Registry: reg,
		Orch:     orch,
		cfg:      cfg,
		st:       st,
		bus:      bus,
		log:      logg,
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqttC = client
		svc.bridge = mqtt.NewBridge(client, cfg.MQTT.TopicPrefix, bus, logger.New("mqtt-bridge"))
	}

	mux := api.NewRouter(api.Deps{
		Auth:      auth.NewService(st, logger.New("auth")),
		Orch:      orch,
		Ledger:    led,
		Store:     st,
		Analytics: analytics.NewService(st, 10),
		Log:       logg,
	})
	wsServer := realtime.NewServer(reg, orch, cfg.Realtime, logger.New("ws"))
	mux.Handle("/ws/", wsServer)

	svc.srv = &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}
	return svc, nil
}

// Handler exposes the combined REST and websocket mux.
func (s *Service) Handler() http.Handler { return s.srv.Handler }

// Run starts the listeners and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.bridge != nil {
		s.bridge.Start()
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			defer coremon.Recover()
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("listening on %s", s.cfg.HTTP.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.bridge != nil {
		s.bridge.Stop()
	}
	if s.mqttC != nil {
		s.mqttC.Disconnect()
	}
	coremon.Flush(2 * time.Second)
	return s.st.Close()
}
