package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/berfenger/goodwe2prom/internal/core/port"
	"github.com/berfenger/goodwe2prom/internal/events"

	"go.uber.org/zap"
)

var ErrNothingDecoded = errors.New("no metric set could be decoded")

// MQTTBridge turns inverter scrapes into sensor updates. Home Assistant
// discovery is published with the first usable scrape after every (re)connect.
type MQTTBridge struct {
	scraper     port.InverterScraper
	publisher   port.SensorPublisher
	host        string
	baseTopic   string
	haDiscovery bool
	logger      *zap.Logger

	discoveryPending atomic.Bool

	mu             sync.Mutex
	inverterDevice *events.Device
}

func NewMQTTBridge(scraper port.InverterScraper, publisher port.SensorPublisher, host, baseTopic string,
	haDiscovery bool, logger *zap.Logger) *MQTTBridge {
	b := &MQTTBridge{
		scraper:     scraper,
		publisher:   publisher,
		host:        host,
		baseTopic:   baseTopic,
		haDiscovery: haDiscovery,
		logger:      logger.With(zap.String("service", "mqtt_bridge")),
	}
	b.discoveryPending.Store(true)
	return b
}

// ResetDiscovery schedules discovery for the next tick. Safe to call from
// connection callbacks while a tick is running.
func (b *MQTTBridge) ResetDiscovery() {
	b.discoveryPending.Store(true)
}

// Tick scrapes once and publishes every decoded value. Ticks never overlap.
func (b *MQTTBridge) Tick(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	resp, err := b.scraper.Scrape(ctx)
	if err != nil {
		return err
	}
	for _, failed := range resp.Errors() {
		b.logger.Warn("read failed", zap.String("set", failed.Set.Name), zap.Error(failed.Error))
	}
	sets := resp.Renderable()
	if len(sets) == 0 {
		return ErrNothingDecoded
	}

	if b.haDiscovery && b.discoveryPending.Swap(false) {
		bridge := events.BridgeDevice(b.baseTopic)
		sensors := append([]events.GenericSensor{events.BridgeSensor(bridge)},
			events.MetricSensors(b.device(ctx, bridge), sets...)...)
		if err := b.publisher.PublishDiscovery(ctx, sensors); err != nil {
			b.discoveryPending.Store(true)
			return err
		}
		b.logger.Info("published discovery", zap.Int("sensors", len(sensors)))
	}

	updates := events.SensorUpdates(sets...)
	b.logger.Debug("publishing sensor updates", zap.Int("updates", len(updates)))
	return b.publisher.PublishSensorUpdates(ctx, updates)
}

func (b *MQTTBridge) device(ctx context.Context, bridge events.Device) events.Device {
	if b.inverterDevice != nil {
		return *b.inverterDevice
	}
	resp, err := b.scraper.Identify(ctx)
	if err != nil {
		// keyed by host until identification succeeds
		b.logger.Info("inverter identification unavailable", zap.Error(err))
		dev := events.InverterDevice(b.host, nil, bridge)
		return dev
	}
	dev := events.InverterDevice(b.host, resp.Info, bridge)
	b.inverterDevice = &dev
	return dev
}
