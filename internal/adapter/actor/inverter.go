package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/goodwe2prom/internal/core/domain"
	"github.com/berfenger/goodwe2prom/internal/instrument"
	"github.com/berfenger/goodwe2prom/internal/util/actorutil"
	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	UNHEALTHY_AFTER_FAILURES = 3

	STATE_IDLE    = "idle"
	STATE_FAILING = "failing"
	STATE_CLOSED  = "closed"
)

// InverterActor owns the inverter transport. Reads are performed inline, one
// message at a time, so the device never sees concurrent requests.
type InverterActor struct {
	behavior      actor.Behavior
	stash         *actorutil.Stash
	reader        goodwe.Reader
	sets          []string
	scrapeTimeout time.Duration
	metrics       *instrument.Metrics
	logger        *zap.Logger

	opened   bool
	failures int
}

func NewInverterActor(reader goodwe.Reader, sets []string, scrapeTimeout time.Duration,
	metrics *instrument.Metrics, logger *zap.Logger) *InverterActor {
	act := &InverterActor{
		reader:        reader,
		sets:          sets,
		scrapeTimeout: scrapeTimeout,
		metrics:       metrics,
		behavior:      actor.NewBehavior(),
		stash:         &actorutil.Stash{},
		logger:        actorutil.ActorLogger(domain.ACTOR_ID_INVERTER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *InverterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *InverterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("inverter@starting started")
		if err := state.open(); err != nil {
			// retried on the next request
			state.logger.Warn("inverter@starting open failed", zap.Error(err))
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("inverter@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *InverterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ScrapeRequest:
		state.logger.Debug("inverter@default ScrapeRequest")
		actorutil.ForRequest(msg).Respond(ctx, state.scrape())
	case domain.IdentifyRequest:
		state.logger.Debug("inverter@default IdentifyRequest")
		actorutil.ForRequest(msg).Respond(ctx, state.identify())
	case domain.ActorHealthRequest:
		state.logger.Debug("inverter@default ActorHealthRequest")
		actorutil.ForRequest(msg).Respond(ctx, state.health())
	case *actor.Restarting:
		state.close()
	case *actor.Stopping:
		state.close()
	default:
		state.logger.Debug("inverter@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *InverterActor) open() error {
	if state.opened {
		return nil
	}
	if err := state.reader.Open(); err != nil {
		return err
	}
	state.opened = true
	return nil
}

func (state *InverterActor) close() {
	if !state.opened {
		return
	}
	if err := state.reader.Close(); err != nil {
		state.logger.Warn("inverter close", zap.Error(err))
	}
	state.opened = false
}

func (state *InverterActor) scrape() domain.ScrapeResponse {
	if err := state.open(); err != nil {
		state.failures++
		state.logger.Error("inverter@scrape open failed", zap.Error(err))
		return domain.ScrapeResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), state.scrapeTimeout)
	defer cancel()

	var resp domain.ScrapeResponse
	for _, name := range state.sets {
		set, ok := goodwe.NewSet(name)
		if !ok {
			resp.Results = append(resp.Results, domain.SetResult{
				Set:   goodwe.NewMetricSet(name, 0),
				Error: fmt.Errorf("unknown metric set %q", name),
			})
			continue
		}
		err := state.reader.Read(ctx, set)
		if err != nil {
			state.logger.Warn("inverter@scrape read failed", zap.String("set", name),
				zap.Int("decoded", set.Decoded()), zap.Error(err))
		}
		if state.metrics != nil {
			state.metrics.ObserveRead(set, err)
		}
		resp.Results = append(resp.Results, domain.SetResult{Set: set, Error: err})
	}

	if len(resp.Renderable()) == 0 {
		state.failures++
	} else {
		state.failures = 0
	}
	return resp
}

func (state *InverterActor) identify() domain.IdentifyResponse {
	identifier, ok := state.reader.(goodwe.Identifier)
	if !ok {
		return domain.IdentifyResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: domain.ErrIdentifyUnsupported},
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), state.scrapeTimeout)
	defer cancel()

	info, err := identifier.Identify(ctx)
	if err != nil {
		state.logger.Warn("inverter@identify failed", zap.Error(err))
		return domain.IdentifyResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		}
	}
	return domain.IdentifyResponse{Info: info}
}

func (state *InverterActor) health() domain.ActorHealthResponse {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_INVERTER,
		Healthy: state.failures < UNHEALTHY_AFTER_FAILURES,
		State:   STATE_IDLE,
	}
	switch {
	case !state.opened:
		resp.State = STATE_CLOSED
	case state.failures > 0:
		resp.State = STATE_FAILING
	}
	return resp
}

// InverterClient sends requests to an InverterActor and waits for the answer.
type InverterClient struct {
	root    *actor.RootContext
	pid     *actor.PID
	timeout time.Duration
}

func NewInverterClient(root *actor.RootContext, pid *actor.PID, timeout time.Duration) *InverterClient {
	return &InverterClient{
		root:    root,
		pid:     pid,
		timeout: timeout,
	}
}

// Scrape returns the per-set results. The error is set when the actor did not
// answer or the transport could not be opened.
func (c *InverterClient) Scrape(ctx context.Context) (*domain.ScrapeResponse, error) {
	resp, err := request[domain.ScrapeResponse](ctx, c.root, c.pid, c.timeout, domain.ScrapeRequest{})
	if err != nil {
		return nil, err
	}
	return &resp, resp.GetResponseError()
}

func (c *InverterClient) Identify(ctx context.Context) (*domain.IdentifyResponse, error) {
	resp, err := request[domain.IdentifyResponse](ctx, c.root, c.pid, c.timeout, domain.IdentifyRequest{})
	if err != nil {
		return nil, err
	}
	return &resp, resp.GetResponseError()
}

func (c *InverterClient) Health(ctx context.Context) (*domain.ActorHealthResponse, error) {
	resp, err := request[domain.ActorHealthResponse](ctx, c.root, c.pid, c.timeout, domain.ActorHealthRequest{})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
