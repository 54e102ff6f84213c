package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/goodwe2prom/internal/config"
	"github.com/berfenger/goodwe2prom/internal/core/domain"
	"github.com/berfenger/goodwe2prom/internal/events"
	"github.com/berfenger/goodwe2prom/internal/mqtt"
	"github.com/berfenger/goodwe2prom/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	ACTOR_ID_MQTT   = "mqtt"
	PUBLISH_TIMEOUT = 5 * time.Second
)

type PublishSensorUpdatesRequest struct {
	domain.ActorRequestMixIn
	Updates []events.SensorUpdateEvent
}

type PublishDiscoveryRequest struct {
	domain.ActorRequestMixIn
	Sensors []events.GenericSensor
}

type PublishResponse struct {
	domain.ActorResponseMixIn
}

type MQTTConnected struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	ReplyTo *actor.PID
	Error   error
}

// MQTTActor owns the broker connection. Batches are published one at a
// time, requests arriving meanwhile are stashed.
type MQTTActor struct {
	config      *config.Config
	behavior    actor.Behavior
	stash       *actorutil.Stash
	client      *mqtt.MQTTClient
	onConnected func()
	logger      *zap.Logger

	// publish replaces the broker in tests
	publish func(msgs []mqtt.Message) error
}

func NewMQTTActor(config *config.Config, onConnected func(), logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		onConnected: onConnected,
		logger:      actorutil.ActorLogger(ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

// NewTestMQTTActor never connects; messages go to sink instead of a broker.
func NewTestMQTTActor(config *config.Config, sink func(msgs []mqtt.Message) error, logger *zap.Logger) *MQTTActor {
	act := NewMQTTActor(config, nil, logger)
	act.client = mqtt.CreateMQTTClient(config, mqtt.OptsFromConfig(config), nil, nil)
	act.publish = sink
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		self := ctx.Self()
		system := ctx.ActorSystem()
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
			system.Root.Send(self, MQTTConnected{})
		}, func(_ pahomqtt.Client, err error) {
			system.Root.Send(self, MQTTConnectionLost{Error: err})
		})
		state.publish = func(msgs []mqtt.Message) error {
			return state.client.PublishAll(msgs, 1, PUBLISH_TIMEOUT)
		}

		state.client.Connect(func(err error) {
			if err != nil {
				system.Root.Send(self, MQTTConnectionLost{Error: err})
			}
		}, 10*time.Second)
	case MQTTConnected:
		state.connected()
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// not connected yet, let the supervisor restart us
		state.logger.Error("mqtt@starting connection failed", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.ActorHealthResponse{
			Id:      ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case MQTTConnected:
		// reconnected by paho
		state.connected()
	case MQTTConnectionLost:
		// paho reconnects on its own
		state.logger.Warn("mqtt@default connection lost", zap.Error(msg.Error))
	case PublishSensorUpdatesRequest:
		state.logger.Debug("mqtt@default PublishSensorUpdatesRequest", zap.Int("updates", len(msg.Updates)))
		state.publishAsync(ctx, state.sensorUpdateMessages(msg.Updates), actorutil.ForRequest(msg).ReplyTo(ctx))
	case PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishDiscoveryRequest", zap.Int("sensors", len(msg.Sensors)))
		msgs, err := state.discoveryMessages(msg.Sensors)
		if err != nil {
			actorutil.ForRequest(msg).Respond(ctx, PublishResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			})
			return
		}
		state.publishAsync(ctx, msgs, actorutil.ForRequest(msg).ReplyTo(ctx))
	default:
		state.logger.Debug("mqtt@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MQTTActor) PublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish", zap.Error(msg.Error))
		}
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, PublishResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: msg.Error},
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) publishAsync(ctx actor.Context, msgs []mqtt.Message, replyTo *actor.PID) {
	self := ctx.Self()
	system := ctx.ActorSystem()
	publish := state.publish
	go func() {
		system.Root.Send(self, publishResult{ReplyTo: replyTo, Error: publish(msgs)})
	}()
	state.behavior.BecomeStacked(state.PublishResultReceive)
}

func (state *MQTTActor) sensorUpdateMessages(updates []events.SensorUpdateEvent) []mqtt.Message {
	msgs := make([]mqtt.Message, 0, len(updates))
	for _, u := range updates {
		msgs = append(msgs, mqtt.Message{
			Topic:   state.client.SensorStateTopic(u.Id),
			Payload: u.Value,
		})
	}
	return msgs
}

func (state *MQTTActor) discoveryMessages(sensors []events.GenericSensor) ([]mqtt.Message, error) {
	msgs := make([]mqtt.Message, 0, len(sensors))
	for i := range sensors {
		payload, err := json.Marshal(mqtt.GenericSensorToHADiscoveryMessage(state.client, sensors[i]))
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, mqtt.Message{
			Topic:   state.client.HADiscoverySensorTopic(sensors[i]),
			Payload: payload,
			Retain:  true,
		})
	}
	return msgs, nil
}

func (state *MQTTActor) connected() {
	state.logger.Info("mqtt connected")
	state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(err error) {
		if err != nil {
			state.logger.Warn("mqtt bridge state publish failed", zap.Error(err))
		}
	}, 500*time.Millisecond)
	if state.onConnected != nil {
		state.onConnected()
	}
}

func (state *MQTTActor) stop() {
	if state.client == nil {
		return
	}
	state.logger.Debug("mqtt: disconnect")
	state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
	state.client.Disconnect(500 * time.Millisecond)
}

// MQTTPublisher forwards publish requests to an MQTTActor and waits for the broker.
type MQTTPublisher struct {
	root    *actor.RootContext
	pid     *actor.PID
	timeout time.Duration
}

func NewMQTTPublisher(root *actor.RootContext, pid *actor.PID) *MQTTPublisher {
	return &MQTTPublisher{
		root:    root,
		pid:     pid,
		timeout: 2 * PUBLISH_TIMEOUT,
	}
}

func (p *MQTTPublisher) PublishDiscovery(ctx context.Context, sensors []events.GenericSensor) error {
	return p.request(ctx, PublishDiscoveryRequest{Sensors: sensors})
}

func (p *MQTTPublisher) PublishSensorUpdates(ctx context.Context, updates []events.SensorUpdateEvent) error {
	return p.request(ctx, PublishSensorUpdatesRequest{Updates: updates})
}

func (p *MQTTPublisher) request(ctx context.Context, msg any) error {
	resp, err := request[PublishResponse](ctx, p.root, p.pid, p.timeout, msg)
	if err != nil {
		return err
	}
	return resp.GetResponseError()
}
