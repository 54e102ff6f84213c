package aa55

import (
	"encoding/binary"
)

const (
	DEFAULT_ADDRESS byte = 0x7f

	FUNC_READ_MULTI   byte = 0x03
	FUNC_WRITE_SINGLE byte = 0x06
	FUNC_WRITE_MULTI  byte = 0x10

	READ_COMMAND_LENGTH = 8
)

// BuildReadCommand builds a "read multiple registers" request:
// [address][0x03][base_hi][base_lo][count_hi][count_lo][crc_lo][crc_hi]
func BuildReadCommand(address byte, base uint16, count uint16) []byte {
	cmd := make([]byte, 6, READ_COMMAND_LENGTH)
	cmd[0] = address
	cmd[1] = FUNC_READ_MULTI
	binary.BigEndian.PutUint16(cmd[2:4], base)
	binary.BigEndian.PutUint16(cmd[4:6], count)
	return AppendChecksum(cmd)
}

// ParseReadCommand is the inverse of BuildReadCommand, used by fake inverters.
func ParseReadCommand(cmd []byte) (address byte, base uint16, count uint16, err error) {
	if len(cmd) != READ_COMMAND_LENGTH {
		return 0, 0, 0, ErrPayloadLength
	}
	if !VerifyChecksum(cmd) {
		return 0, 0, 0, ErrChecksumMismatch
	}
	if cmd[1] != FUNC_READ_MULTI {
		return 0, 0, 0, ErrCommandFailed
	}
	return cmd[0], binary.BigEndian.Uint16(cmd[2:4]), binary.BigEndian.Uint16(cmd[4:6]), nil
}
