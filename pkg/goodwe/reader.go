package goodwe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/berfenger/goodwe2prom/pkg/aa55"
)

var ErrNoResponse = errors.New("goodwe: no response received")

// Reader performs one request/response/decode cycle for a metric set.
// Implementations never retry.
type Reader interface {
	Open() error
	Read(ctx context.Context, set *MetricSet) error
	Close() error
}

// Identifier is implemented by transports able to query the inverter
// identification block.
type Identifier interface {
	Identify(ctx context.Context) (*aa55.IdentifyResponse, error)
}

// NetworkError is a transport failure: bind, dial, send, receive or timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Timeout() bool {
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(e.Err, os.ErrDeadlineExceeded) || errors.Is(e.Err, context.DeadlineExceeded)
}

type Instrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

func RecordTimer(name string, instrument []Instrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}
