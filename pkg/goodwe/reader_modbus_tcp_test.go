package goodwe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/berfenger/goodwe2prom/pkg/aa55"

	"github.com/simonvetter/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// registerHandler serves holding registers out of a TestReader's register map.
type registerHandler struct {
	registers map[uint16]uint16
}

func (h *registerHandler) HandleCoils(*modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *registerHandler) HandleDiscreteInputs(*modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *registerHandler) HandleInputRegisters(*modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *registerHandler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.IsWrite {
		return nil, modbus.ErrIllegalFunction
	}
	if req.Addr < 30000 {
		return nil, modbus.ErrIllegalDataAddress
	}
	res := make([]uint16, req.Quantity)
	for i := range res {
		res[i] = h.registers[req.Addr+uint16(i)]
	}
	return res, nil
}

func freePort(t *testing.T) uint {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return uint(l.Addr().(*net.TCPAddr).Port)
}

func startModbusServer(t *testing.T) uint {
	port := freePort(t)
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://127.0.0.1:" + strconv.Itoa(int(port)),
		Timeout:    5 * time.Second,
		MaxClients: 2,
	}, &registerHandler{registers: CreateTestReader().Registers})
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(func() { server.Stop() })
	return port
}

func TestModbusTCPReaderRead(t *testing.T) {

	assert := assert.New(t)

	port := startModbusServer(t)
	reader, err := CreateModbusTCPReader("127.0.0.1", port, 1, time.Second, zap.NewNop(), nil)
	require.NoError(t, err)
	require.NoError(t, reader.Open())
	defer reader.Close()

	ms := BaseMetrics()
	assert.NoError(reader.Read(context.Background(), ms))
	assert.Equal(len(ms.Metrics), ms.Decoded())
	assert.Contains(ms.String(), `goodwe_voltage_pv_volts {mppt="pv1"} 352.1`)

	meter := MeterMetrics()
	assert.NoError(reader.Read(context.Background(), meter))
	assert.Contains(meter.String(), `goodwe_meter_energy_total_kwh {type="import"} 550.22`)
}

func TestModbusTCPReaderException(t *testing.T) {

	assert := assert.New(t)

	port := startModbusServer(t)
	reader, err := CreateModbusTCPReader("127.0.0.1", port, 1, time.Second, zap.NewNop(), nil)
	require.NoError(t, err)
	require.NoError(t, reader.Open())
	defer reader.Close()

	ms := NewMetricSet("low", 100, Power(100, "p"))
	assert.ErrorIs(reader.Read(context.Background(), ms), aa55.ErrCommandFailed)
}

func TestModbusErrorMapping(t *testing.T) {

	assert := assert.New(t)

	assert.ErrorIs(modbusError(modbus.ErrIllegalDataAddress), aa55.ErrCommandFailed)

	var netErr *NetworkError
	if assert.ErrorAs(modbusError(modbus.ErrRequestTimedOut), &netErr) {
		assert.True(netErr.Timeout())
	}
	if assert.ErrorAs(modbusError(errors.New("broken pipe")), &netErr) {
		assert.False(netErr.Timeout())
		assert.Equal("modbus", netErr.Op)
	}
}

func TestCreateModbusTCPReaderRequiresHost(t *testing.T) {

	assert := assert.New(t)

	_, err := CreateModbusTCPReader("", 0, 0, 0, zap.NewNop(), nil)
	assert.Error(err)
}
