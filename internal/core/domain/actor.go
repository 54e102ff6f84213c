package domain

import (
	"errors"

	"github.com/berfenger/goodwe2prom/pkg/aa55"
	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	"github.com/asynkron/protoactor-go/actor"
)

const (
	ACTOR_ID_INVERTER = "inverter"
)

var ErrIdentifyUnsupported = errors.New("identify is not supported by this transport")

type ActorRef actor.PID

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

// ScrapeRequest reads every configured metric set once.
type ScrapeRequest struct {
	ActorRequestMixIn
}

type SetResult struct {
	Set   *goodwe.MetricSet
	Error error
}

// Renderable reports whether the set holds values worth exposing: a clean read
// or a short payload that still decoded a prefix of the set.
func (r SetResult) Renderable() bool {
	if r.Error == nil {
		return true
	}
	return errors.Is(r.Error, goodwe.ErrOutOfBounds) && r.Set.Decoded() > 0
}

type ScrapeResponse struct {
	ActorResponseMixIn
	Results []SetResult
}

// Renderable returns the sets of the scrape that can be exposed, in read order.
func (r ScrapeResponse) Renderable() []*goodwe.MetricSet {
	var sets []*goodwe.MetricSet
	for _, res := range r.Results {
		if res.Renderable() {
			sets = append(sets, res.Set)
		}
	}
	return sets
}

// Errors returns the failed reads, partial ones included.
func (r ScrapeResponse) Errors() []SetResult {
	var failed []SetResult
	for _, res := range r.Results {
		if res.Error != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

type IdentifyRequest struct {
	ActorRequestMixIn
}

type IdentifyResponse struct {
	ActorResponseMixIn
	Info *aa55.IdentifyResponse
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
