package service

import (
	"context"
	"log/slog"

	"siot-dashboard/internal/modules/telemetry/repository"
	"siot-dashboard/internal/modules/telemetry/types"
	"siot-dashboard/internal/mqtt"
)

// Observer receives the outcome of every ingested reading.
type Observer interface {
	ReadingIngested(source string, err error)
}

// Service is the write path into the telemetry store, shared by the HTTP
// API and MQTT ingestion.
type Service struct {
	repository repository.TelemetryRepository
	observer   Observer
	logger     *slog.Logger
}

func NewService(repository repository.TelemetryRepository, observer Observer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repository: repository, observer: observer, logger: logger}
}

// Ingest stores one reading, tagging it with source when it carries none.
func (s *Service) Ingest(ctx context.Context, source string, reading types.Reading) (types.Reading, error) {
	if reading.Source == "" {
		reading.Source = source
	}
	stored, err := s.repository.InsertReading(ctx, reading)
	if s.observer != nil {
		s.observer.ReadingIngested(source, err)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to insert reading", "source", source, "timestamp", reading.Timestamp, "error", err)
		return types.Reading{}, err
	}
	s.logger.DebugContext(ctx, "stored reading", "source", source, "id", stored.ID)
	return stored, nil
}

// Register attaches MQTT ingestion. Call before the subscriber connects.
func (s *Service) Register(subscriber mqtt.MQTTSubscriber) {
	registerMQTTHandler(subscriber, s)
}
