package goodwe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/berfenger/goodwe2prom/pkg/aa55"

	"go.uber.org/zap"
)

const (
	DEFAULT_UDP_PORT    = 8899
	DEFAULT_TIMEOUT     = 3 * time.Second
	RECEIVE_BUFFER_SIZE = 1024
)

type UDPReaderConfig struct {
	Host    string
	Port    uint
	Address byte
	Timeout time.Duration
	Span    aa55.ChecksumSpan
}

// UDPReader talks the AA55 protocol over UDP. Every exchange uses its own
// socket, so a reader can be shared but requests are not multiplexed.
type UDPReader struct {
	target     string
	address    byte
	timeout    time.Duration
	decoder    aa55.Decoder
	logger     *zap.Logger
	instrument []Instrument
}

func CreateUDPReader(cfg UDPReaderConfig, logger *zap.Logger, instrumentation *Instrument) (*UDPReader, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("goodwe: inverter host required")
	}
	port := cfg.Port
	if port == 0 {
		port = DEFAULT_UDP_PORT
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}

	target := net.JoinHostPort(cfg.Host, strconv.FormatUint(uint64(port), 10))
	logger = logger.With(zap.String("target", target), zap.String("transport", "udp"))

	var inst []Instrument
	inst = append(inst, traceLoggerInstrumentation(logger))
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	return &UDPReader{
		target:     target,
		address:    cfg.Address,
		timeout:    timeout,
		decoder:    aa55.Decoder{Span: cfg.Span},
		logger:     logger,
		instrument: inst,
	}, nil
}

func (r *UDPReader) Read(ctx context.Context, set *MetricSet) error {
	defer RecordTimer("Read", r.instrument)()

	raw, err := r.exchange(ctx, set.ReadCommand(r.address))
	if err != nil {
		return err
	}
	payload, err := r.decoder.Decode(raw)
	if err != nil {
		r.logger.Debug("invalid frame", zap.String("set", set.Name), zap.Binary("frame", raw), zap.Error(err))
		return err
	}
	return set.Decode(payload)
}

// Identify queries serial number and firmware version.
func (r *UDPReader) Identify(ctx context.Context) (*aa55.IdentifyResponse, error) {
	defer RecordTimer("Identify", r.instrument)()

	raw, err := r.exchange(ctx, aa55.IdentifyQuery)
	if err != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) && netErr.Op == "receive" {
			return nil, fmt.Errorf("%w: %v", ErrNoResponse, netErr)
		}
		return nil, err
	}
	return aa55.DecodeIdentifyResponse(raw)
}

func (r *UDPReader) Open() error {
	return nil
}

func (r *UDPReader) Close() error {
	return nil
}

func (r *UDPReader) exchange(ctx context.Context, request []byte) ([]byte, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", r.target)
	if err != nil {
		return nil, &NetworkError{Op: "dial", Err: err}
	}
	defer conn.Close()

	deadline := time.Now().Add(r.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, &NetworkError{Op: "deadline", Err: err}
	}
	// unblock the read when the caller gives up
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write(request); err != nil {
		return nil, &NetworkError{Op: "send", Err: err}
	}

	buf := make([]byte, RECEIVE_BUFFER_SIZE)
	n, err := conn.Read(buf)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &NetworkError{Op: "receive", Err: err}
	}
	return buf[:n], nil
}

func traceLoggerInstrumentation(logger *zap.Logger) Instrument {
	return Instrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("exchange", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}
