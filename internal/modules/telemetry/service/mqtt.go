package service

import (
	"context"

	"siot-dashboard/internal/modules/telemetry/types"
	"siot-dashboard/internal/mqtt"
)

const sourceMQTT = "mqtt"

func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, s *Service) {
	subscriber.SetMessageHandler(func(ctx context.Context, reading types.Reading) error {
		_, err := s.Ingest(ctx, sourceMQTT, reading)
		return err
	})
}
