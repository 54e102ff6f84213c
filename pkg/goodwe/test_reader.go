package goodwe

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/berfenger/goodwe2prom/pkg/aa55"
)

// TestReader is an in-memory inverter. Reads go through the real command
// builder and frame decoder, only the network is skipped.
type TestReader struct {
	Registers map[uint16]uint16
	Span      aa55.ChecksumSpan
	// MaxRegisters limits how many registers are answered, like older
	// firmware with shorter register maps. Zero means no limit.
	MaxRegisters uint16
	// Err is returned by Read instead of a response.
	Err error

	Reads int
}

func CreateTestReader() *TestReader {
	r := &TestReader{Registers: map[uint16]uint16{}}
	// base
	r.Registers[35103] = 3521 // pv1 352.1 V
	r.Registers[35104] = 54   // pv1 5.4 A
	r.SetInt32(35105, 1901)
	r.Registers[35121] = 2311 // L1 231.1 V
	r.Registers[35123] = 4998 // 49.98 Hz
	r.SetInt16(35125, -1250)
	r.Registers[35173] = 37
	r.Registers[35174] = 412
	r.SetInt32(35191, 123456)
	r.Registers[35202] = 87
	// battery
	r.Registers[37003] = 215
	r.Registers[37007] = 64
	r.Registers[37008] = 99
	// meter
	r.SetInt16(36008, -820)
	r.Registers[36013] = 98
	r.SetFloat32(36015, 2770340)
	r.SetFloat32(36017, 550220)
	return r
}

func (r *TestReader) SetInt16(register uint16, value int16) {
	r.Registers[register] = uint16(value)
}

func (r *TestReader) SetInt32(register uint16, value int32) {
	r.Registers[register] = uint16(uint32(value) >> 16)
	r.Registers[register+1] = uint16(uint32(value))
}

func (r *TestReader) SetFloat32(register uint16, value float32) {
	bits := math.Float32bits(value)
	r.Registers[register] = uint16(bits >> 16)
	r.Registers[register+1] = uint16(bits)
}

func (r *TestReader) Open() error {
	return nil
}

func (r *TestReader) Close() error {
	return nil
}

func (r *TestReader) Read(ctx context.Context, set *MetricSet) error {
	r.Reads++
	if r.Err != nil {
		return r.Err
	}
	if err := ctx.Err(); err != nil {
		return &NetworkError{Op: "receive", Err: err}
	}

	response, err := r.respond(set.ReadCommand(aa55.DEFAULT_ADDRESS))
	if err != nil {
		return err
	}
	payload, err := aa55.Decoder{Span: r.Span}.Decode(response)
	if err != nil {
		return err
	}
	return set.Decode(payload)
}

func (r *TestReader) respond(command []byte) ([]byte, error) {
	address, base, count, err := aa55.ParseReadCommand(command)
	if err != nil {
		return nil, err
	}
	if r.MaxRegisters > 0 && count > r.MaxRegisters {
		count = r.MaxRegisters
	}
	payload := make([]byte, int(count)*2)
	for i := uint16(0); i < count; i++ {
		binary.BigEndian.PutUint16(payload[i*2:], r.Registers[base+i])
	}
	return aa55.EncodeResponse(r.Span, address, aa55.FUNC_READ_MULTI, payload), nil
}
