package aa55

import (
	"errors"
	"fmt"
	"strings"
)

const (
	HEADER_0 byte = 0xaa
	HEADER_1 byte = 0x55

	COMMAND_FAILED_FLAG byte = 0x80

	// header(2) + address + command + length
	FRAME_PREFIX_LENGTH = 5
	CRC_LENGTH          = 2
)

var (
	ErrChecksumMismatch = errors.New("aa55: crc-16 checksum wrong, data was corrupted")
	ErrInvalidHeader    = errors.New("aa55: invalid header")
	ErrCommandFailed    = errors.New("aa55: command failed")
	ErrPayloadLength    = errors.New("aa55: indicated payload length does not match actual length")
)

// ChecksumSpan selects which bytes of a response frame are covered by the trailing CRC.
// Different firmware families disagree, so it has to be configured per device.
type ChecksumSpan int

const (
	// SpanFrame covers the whole frame, header included.
	SpanFrame ChecksumSpan = iota
	// SpanNoHeader covers everything after the 0xAA 0x55 header.
	SpanNoHeader
)

func (s ChecksumSpan) String() string {
	switch s {
	case SpanFrame:
		return "frame"
	case SpanNoHeader:
		return "no_header"
	default:
		return fmt.Sprintf("ChecksumSpan(%d)", int(s))
	}
}

func ParseChecksumSpan(s string) (ChecksumSpan, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "frame":
		return SpanFrame, nil
	case "no_header", "noheader":
		return SpanNoHeader, nil
	}
	return SpanFrame, fmt.Errorf("aa55: unknown checksum span %q", s)
}

// Decoder validates response frames
// [0xAA][0x55][address][command|flag][length][payload...][crc_lo][crc_hi]
// and extracts their payload.
type Decoder struct {
	Span ChecksumSpan
}

// DecodeFrame decodes raw with the default (whole frame) checksum span.
func DecodeFrame(raw []byte) ([]byte, error) {
	return Decoder{Span: SpanFrame}.Decode(raw)
}

// Decode checks, in order: checksum, header, command failure flag and
// declared payload length. The first failing check determines the error.
// The returned payload is a copy owned by the caller.
func (d Decoder) Decode(raw []byte) ([]byte, error) {
	if !d.verify(raw) {
		return nil, fmt.Errorf("%w (%s span, %d bytes received)", ErrChecksumMismatch, d.Span, len(raw))
	}

	if len(raw) < 2 || raw[0] != HEADER_0 || raw[1] != HEADER_1 {
		return nil, fmt.Errorf("%w: % x", ErrInvalidHeader, raw[:min(2, len(raw))])
	}

	// raw[2] is the communication address, not validated

	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: frame ends before command byte", ErrCommandFailed)
	}
	if raw[3]&COMMAND_FAILED_FLAG != 0 {
		return nil, fmt.Errorf("%w: device rejected command 0x%02x", ErrCommandFailed, raw[3]&^COMMAND_FAILED_FLAG)
	}

	if len(raw) < FRAME_PREFIX_LENGTH {
		return nil, fmt.Errorf("%w: frame ends before length byte", ErrPayloadLength)
	}
	declared := int(raw[4])
	actual := len(raw) - FRAME_PREFIX_LENGTH - CRC_LENGTH
	if declared != actual {
		return nil, fmt.Errorf("%w: declared %d, got %d", ErrPayloadLength, declared, actual)
	}

	payload := make([]byte, declared)
	copy(payload, raw[FRAME_PREFIX_LENGTH:FRAME_PREFIX_LENGTH+declared])
	return payload, nil
}

func (d Decoder) verify(raw []byte) bool {
	switch d.Span {
	case SpanNoHeader:
		if len(raw) < 2 {
			return false
		}
		return VerifyChecksum(raw[2:])
	default:
		return VerifyChecksum(raw)
	}
}

// EncodeResponse builds a response frame the way an inverter does. The
// checksum covers the given span. Payloads longer than 255 bytes are truncated.
func EncodeResponse(span ChecksumSpan, address byte, command byte, payload []byte) []byte {
	if len(payload) > 0xff {
		payload = payload[:0xff]
	}
	frame := make([]byte, 0, FRAME_PREFIX_LENGTH+len(payload)+CRC_LENGTH)
	frame = append(frame, HEADER_0, HEADER_1, address, command, byte(len(payload)))
	frame = append(frame, payload...)

	var crc uint16
	if span == SpanNoHeader {
		crc = Checksum(frame[2:])
	} else {
		crc = Checksum(frame)
	}
	return append(frame, byte(crc&0xff), byte(crc>>8))
}
