package aa55

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReadCommandKnownFrame(t *testing.T) {

	assert := assert.New(t)

	cmd := BuildReadCommand(0x01, 0x0000, 0x0001)
	assert.Equal([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0a}, cmd)
}

func TestBuildReadCommandLayout(t *testing.T) {

	assert := assert.New(t)

	cmd := BuildReadCommand(DEFAULT_ADDRESS, 35100, 103)
	assert.Len(cmd, READ_COMMAND_LENGTH)
	assert.Equal(DEFAULT_ADDRESS, cmd[0], "address")
	assert.Equal(FUNC_READ_MULTI, cmd[1], "function")
	assert.Equal([]byte{0x89, 0x1c}, cmd[2:4], "base register big endian")
	assert.Equal([]byte{0x00, 0x67}, cmd[4:6], "count big endian")

	crc := Checksum(cmd[:6])
	assert.Equal(byte(crc&0xff), cmd[6], "crc low byte first")
	assert.Equal(byte(crc>>8), cmd[7], "crc high byte second")
}

func TestParseReadCommand(t *testing.T) {

	assert := assert.New(t)

	addr, base, count, err := ParseReadCommand(BuildReadCommand(0xf7, 36000, 58))
	assert.NoError(err)
	assert.Equal(byte(0xf7), addr)
	assert.Equal(uint16(36000), base)
	assert.Equal(uint16(58), count)

	corrupted := BuildReadCommand(0xf7, 36000, 58)
	corrupted[3] ^= 0x01
	_, _, _, err = ParseReadCommand(corrupted)
	assert.ErrorIs(err, ErrChecksumMismatch)

	_, _, _, err = ParseReadCommand([]byte{0x01})
	assert.ErrorIs(err, ErrPayloadLength)
}
