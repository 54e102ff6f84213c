package aa55

import (
	"github.com/sigurn/crc16"
)

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Checksum returns the CRC-16/MODBUS of data (poly 0xA001 reflected, init 0xFFFF).
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// AppendChecksum appends the checksum of data, low byte first.
func AppendChecksum(data []byte) []byte {
	crc := Checksum(data)
	return append(data, byte(crc&0xff), byte(crc>>8))
}

// VerifyChecksum reports whether the last two bytes of data are the checksum
// of the bytes before them. Equivalent to the checksum of the whole span being zero.
func VerifyChecksum(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return Checksum(data) == 0
}
