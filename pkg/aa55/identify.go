package aa55

import (
	"fmt"
	"strings"
)

const (
	IDENTIFY_SOURCE_ADDRESS byte = 0x7f
	IDENTIFY_TARGET_ADDRESS byte = 0xc0
	IDENTIFY_CONTROL_CODE   byte = 0x01
	IDENTIFY_FUNCTION_CODE  byte = 0x82
	IDENTIFY_PAYLOAD_LENGTH      = 76

	identifySerialOffset   = 31
	identifySerialLength   = 16
	identifyFirmwareOffset = identifySerialOffset + identifySerialLength + 17
	identifyFirmwareLength = 10
)

// IdentifyQuery asks the inverter for its identification block (control 0x01, function 0x02).
var IdentifyQuery = []byte{0xaa, 0x55, 0xc0, 0x7f, 0x01, 0x02, 0x00, 0x02, 0x41}

type IdentifyResponse struct {
	SerialNumber string
	Firmware     string
}

// IdentifyError names the field of an identification response that did not match.
type IdentifyError struct {
	Field string
}

func (e *IdentifyError) Error() string {
	return fmt.Sprintf("aa55: identify response deemed invalid due to %s", e.Field)
}

// DecodeIdentifyResponse parses the answer to IdentifyQuery. Only the layout
// observed on ET series inverters (76 byte payload) is supported.
func DecodeIdentifyResponse(data []byte) (*IdentifyResponse, error) {
	if len(data) < 2 || data[0] != HEADER_0 || data[1] != HEADER_1 {
		return nil, ErrInvalidHeader
	}
	checks := []struct {
		index    int
		expected byte
		field    string
	}{
		{2, IDENTIFY_SOURCE_ADDRESS, "Source Address"},
		{3, IDENTIFY_TARGET_ADDRESS, "Target Address"},
		{4, IDENTIFY_CONTROL_CODE, "Control Code"},
		{5, IDENTIFY_FUNCTION_CODE, "Function Code"},
	}
	for _, c := range checks {
		if len(data) <= c.index || data[c.index] != c.expected {
			return nil, &IdentifyError{Field: c.field}
		}
	}

	// length byte, then payload and a 2 byte checksum
	if len(data) <= 6 || data[6] != IDENTIFY_PAYLOAD_LENGTH || len(data)-7 != IDENTIFY_PAYLOAD_LENGTH+CRC_LENGTH {
		return nil, &IdentifyError{Field: "Length"}
	}
	payload := data[7:]

	return &IdentifyResponse{
		SerialNumber: cleanString(payload[identifySerialOffset : identifySerialOffset+identifySerialLength]),
		Firmware:     cleanString(payload[identifyFirmwareOffset : identifyFirmwareOffset+identifyFirmwareLength]),
	}, nil
}

func cleanString(b []byte) string {
	return strings.TrimRight(strings.ToValidUTF8(string(b), ""), "\x00 ")
}
