package mqtingestor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc"
	mqtbus "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Bus"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
)

// Service wires the dispatcher to the bus and runs the flush loop
type Service struct {
	bus             mqtbus.Client
	dispatcher      *Dispatcher
	flusher         *Flusher
	flushOnShutdown bool
	logger          *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      conc.WaitGroup
	running bool
}

func NewService(bus mqtbus.Client, dispatcher *Dispatcher, flusher *Flusher, flushOnShutdown bool, log *logger.Logger) *Service {
	return &Service{
		bus:             bus,
		dispatcher:      dispatcher,
		flusher:         flusher,
		flushOnShutdown: flushOnShutdown,
		logger:          log.WithComponent("ingestor"),
	}
}

// Start subscribes every channel topic and starts the flush loop
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("ingestion service already started")
	}

	for _, topic := range s.dispatcher.Topics() {
		if err := s.bus.Subscribe(topic, s.dispatcher.HandleMessage); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Go(func() {
		s.flusher.Run(runCtx)
	})
	s.running = true

	s.logger.Logger.Info().Strs("topics", s.dispatcher.Topics()).Msg("Ingestion service started")
	return nil
}

// Stop ends the flush loop and, if configured, persists what is still buffered.
// ctx bounds the final flush.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.running = false

	if s.flushOnShutdown {
		res := s.flusher.FlushOnce(ctx)
		s.logger.Logger.Info().Int("saved", res.Persisted).Int("failed", res.Failed).Msg("Final flush complete")
	}
	s.logger.Info("Ingestion service stopped")
}
