package port

import (
	"context"

	"github.com/berfenger/goodwe2prom/internal/core/domain"
	"github.com/berfenger/goodwe2prom/internal/events"
)

type InverterScraper interface {
	Scrape(ctx context.Context) (*domain.ScrapeResponse, error)
	Identify(ctx context.Context) (*domain.IdentifyResponse, error)
}

type SensorPublisher interface {
	PublishDiscovery(ctx context.Context, sensors []events.GenericSensor) error
	PublishSensorUpdates(ctx context.Context, updates []events.SensorUpdateEvent) error
}
