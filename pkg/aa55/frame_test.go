package aa55

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFrame(span ChecksumSpan) []byte {
	return EncodeResponse(span, DEFAULT_ADDRESS, FUNC_READ_MULTI, []byte{0x00, 0x64, 0x12, 0x34, 0xff, 0xfe})
}

func TestDecodeFrameValid(t *testing.T) {

	assert := assert.New(t)

	payload, err := DecodeFrame(validFrame(SpanFrame))
	assert.NoError(err)
	assert.Equal([]byte{0x00, 0x64, 0x12, 0x34, 0xff, 0xfe}, payload)
}

func TestDecodeFrameEmptyPayload(t *testing.T) {

	assert := assert.New(t)

	payload, err := DecodeFrame(EncodeResponse(SpanFrame, DEFAULT_ADDRESS, FUNC_READ_MULTI, nil))
	assert.NoError(err)
	assert.Empty(payload)
}

func TestDecodeFramePayloadIsCopy(t *testing.T) {

	assert := assert.New(t)

	raw := validFrame(SpanFrame)
	payload, err := DecodeFrame(raw)
	require.NoError(t, err)
	payload[0] = 0xee
	assert.Equal(byte(0x00), raw[FRAME_PREFIX_LENGTH], "raw frame untouched")
}

func TestDecodeFrameSingleByteCorruption(t *testing.T) {

	assert := assert.New(t)

	for _, span := range []ChecksumSpan{SpanFrame, SpanNoHeader} {
		frame := validFrame(span)
		start := 0
		if span == SpanNoHeader {
			// header bytes are outside the checksum span
			start = 2
		}
		for i := start; i < len(frame); i++ {
			corrupted := append([]byte{}, frame...)
			corrupted[i] ^= 0x01
			_, err := Decoder{Span: span}.Decode(corrupted)
			assert.ErrorIs(err, ErrChecksumMismatch, "span %s byte %d", span, i)
		}
	}
}

func TestDecodeFrameInvalidHeader(t *testing.T) {

	assert := assert.New(t)

	// checksum valid over the whole frame, header wrong
	frame := []byte{0xab, 0x55, DEFAULT_ADDRESS, FUNC_READ_MULTI, 0x02, 0x00, 0x01}
	frame = AppendChecksum(frame)

	_, err := DecodeFrame(frame)
	assert.ErrorIs(err, ErrInvalidHeader)
	assert.NotErrorIs(err, ErrPayloadLength)

	// header wrong and length wrong: header still wins
	frame = AppendChecksum([]byte{0x55, 0xaa, DEFAULT_ADDRESS, FUNC_READ_MULTI, 0x09, 0x00})
	_, err = DecodeFrame(frame)
	assert.ErrorIs(err, ErrInvalidHeader)
}

func TestDecodeFrameNoHeaderSpanIgnoresHeaderBytes(t *testing.T) {

	assert := assert.New(t)

	frame := validFrame(SpanNoHeader)
	frame[0] = 0x00

	_, err := Decoder{Span: SpanNoHeader}.Decode(frame)
	assert.ErrorIs(err, ErrInvalidHeader)

	_, err = Decoder{Span: SpanNoHeader}.Decode(validFrame(SpanNoHeader))
	assert.NoError(err)

	// a frame checksummed over one span does not verify under the other
	_, err = Decoder{Span: SpanFrame}.Decode(validFrame(SpanNoHeader))
	assert.ErrorIs(err, ErrChecksumMismatch)
}

func TestDecodeFrameCommandFailed(t *testing.T) {

	assert := assert.New(t)

	frame := EncodeResponse(SpanFrame, DEFAULT_ADDRESS, FUNC_READ_MULTI|COMMAND_FAILED_FLAG, []byte{0x02})
	_, err := DecodeFrame(frame)
	assert.ErrorIs(err, ErrCommandFailed)

	// wrong length field does not matter once the failure flag is set
	frame = AppendChecksum([]byte{HEADER_0, HEADER_1, DEFAULT_ADDRESS, 0x83, 0x40, 0x02})
	_, err = DecodeFrame(frame)
	assert.ErrorIs(err, ErrCommandFailed)
	assert.NotErrorIs(err, ErrPayloadLength)
}

func TestDecodeFrameTruncated(t *testing.T) {

	assert := assert.New(t)

	// frame ends after the command byte, the crc is read as the length byte
	_, err := DecodeFrame(AppendChecksum([]byte{HEADER_0, HEADER_1, DEFAULT_ADDRESS, FUNC_READ_MULTI}))
	assert.ErrorIs(err, ErrPayloadLength)

	_, err = DecodeFrame(nil)
	assert.ErrorIs(err, ErrChecksumMismatch)

	_, err = DecodeFrame([]byte{HEADER_0})
	assert.ErrorIs(err, ErrChecksumMismatch)
}

func TestDecodeFramePayloadLengthMismatch(t *testing.T) {

	assert := assert.New(t)

	frame := AppendChecksum([]byte{HEADER_0, HEADER_1, DEFAULT_ADDRESS, FUNC_READ_MULTI, 0x04, 0x00, 0x01})
	_, err := DecodeFrame(frame)
	assert.ErrorIs(err, ErrPayloadLength)
	assert.Contains(err.Error(), "declared 4, got 2")
}

func TestParseChecksumSpan(t *testing.T) {

	assert := assert.New(t)

	span, err := ParseChecksumSpan("frame")
	assert.NoError(err)
	assert.Equal(SpanFrame, span)

	span, err = ParseChecksumSpan("NO_HEADER")
	assert.NoError(err)
	assert.Equal(SpanNoHeader, span)

	span, err = ParseChecksumSpan("")
	assert.NoError(err)
	assert.Equal(SpanFrame, span)

	_, err = ParseChecksumSpan("both")
	assert.Error(err)
}
