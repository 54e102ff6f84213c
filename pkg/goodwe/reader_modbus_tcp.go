package goodwe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/berfenger/goodwe2prom/pkg/aa55"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

const DEFAULT_MODBUS_TCP_PORT = 502

// ModbusTCPReader reads the same register ranges over plain Modbus TCP,
// which newer ET firmware exposes on port 502. No AA55 framing is involved:
// the register bytes are handed to the catalog as they come off the wire.
type ModbusTCPReader struct {
	client     *modbus.ModbusClient
	logger     *zap.Logger
	instrument []Instrument
}

func CreateModbusTCPReader(host string, port uint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *Instrument) (*ModbusTCPReader, error) {
	if host == "" {
		return nil, fmt.Errorf("goodwe: inverter host required")
	}
	if port == 0 {
		port = DEFAULT_MODBUS_TCP_PORT
	}
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if unitId > 0 {
		if err := client.SetUnitId(unitId); err != nil {
			return nil, err
		}
	}

	logger = logger.With(zap.String("target", fmt.Sprintf("%s:%d", host, port)), zap.String("transport", "modbus_tcp"))
	var inst []Instrument
	inst = append(inst, traceLoggerInstrumentation(logger))
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	return &ModbusTCPReader{
		client:     client,
		logger:     logger,
		instrument: inst,
	}, nil
}

func (r *ModbusTCPReader) Open() error {
	if err := r.client.Open(); err != nil {
		return &NetworkError{Op: "dial", Err: err}
	}
	return nil
}

func (r *ModbusTCPReader) Close() error {
	return r.client.Close()
}

func (r *ModbusTCPReader) Read(ctx context.Context, set *MetricSet) error {
	defer RecordTimer("ReadRawBytes", r.instrument)()

	if err := ctx.Err(); err != nil {
		return &NetworkError{Op: "receive", Err: err}
	}
	payload, err := r.client.ReadRawBytes(set.Base, set.Count()*2, modbus.HOLDING_REGISTER)
	if err != nil {
		return modbusError(err)
	}
	return set.Decode(payload)
}

func modbusError(err error) error {
	switch {
	case errors.Is(err, modbus.ErrIllegalFunction),
		errors.Is(err, modbus.ErrIllegalDataAddress),
		errors.Is(err, modbus.ErrIllegalDataValue),
		errors.Is(err, modbus.ErrServerDeviceFailure):
		return fmt.Errorf("%w: %v", aa55.ErrCommandFailed, err)
	case errors.Is(err, modbus.ErrRequestTimedOut):
		return &NetworkError{Op: "receive", Err: fmt.Errorf("%w: %w", os.ErrDeadlineExceeded, err)}
	default:
		return &NetworkError{Op: "modbus", Err: err}
	}
}
