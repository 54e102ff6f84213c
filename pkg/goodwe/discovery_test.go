package goodwe

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDiscoveryReply(t *testing.T) {

	assert := assert.New(t)

	inv, err := ParseDiscoveryReply([]byte("192.168.1.20,289C6E05A1B2,Solar-WiFi\x00\x00"))
	if assert.NoError(err) {
		assert.Equal("192.168.1.20", inv.IP)
		assert.Equal("289C6E05A1B2", inv.SerialNumber)
		assert.Equal("Solar-WiFi", inv.WifiName)
	}

	_, err = ParseDiscoveryReply([]byte("garbage"))
	assert.Error(err)

	_, err = ParseDiscoveryReply(nil)
	assert.Error(err)
}

func TestDiscoverLoopback(t *testing.T) {

	assert := assert.New(t)

	requests := make(chan string, 1)
	host, port := fakeInverter(t, func(req []byte) []byte {
		requests <- string(req)
		return []byte("10.0.0.7,5010KDSS000W0000,Solar-WiFi\x00")
	})

	found, err := discover(context.Background(), fmt.Sprintf("%s:%d", host, port), 200*time.Millisecond)
	assert.NoError(err)
	if assert.Len(found, 1) {
		assert.Equal("127.0.0.1", found[0].Address)
		assert.Equal("10.0.0.7", found[0].IP)
		assert.Equal("5010KDSS000W0000", found[0].SerialNumber)
	}
	assert.Equal(DISCOVERY_REQUEST, <-requests)
}

func TestDiscoverSkipsMalformedReplies(t *testing.T) {

	assert := assert.New(t)

	host, port := fakeInverter(t, func([]byte) []byte { return []byte("nope") })

	found, err := discover(context.Background(), fmt.Sprintf("%s:%d", host, port), 100*time.Millisecond)
	assert.NoError(err)
	assert.Empty(found)
}
