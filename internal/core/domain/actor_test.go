package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/berfenger/goodwe2prom/pkg/aa55"
	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	"github.com/stretchr/testify/assert"
)

func TestScrapeResponseRenderable(t *testing.T) {

	assert := assert.New(t)

	partial := goodwe.NewMetricSet("partial", 0, goodwe.Power(0, "a"), goodwe.Power(1, "b"))
	partialErr := partial.Decode([]byte{0x00, 0x01})

	empty := goodwe.NewMetricSet("empty", 0, goodwe.Power(0, "a"))
	emptyErr := empty.Decode(nil)

	ok := goodwe.NewMetricSet("ok", 0, goodwe.Power(0, "a"))
	failed := goodwe.NewMetricSet("failed", 0, goodwe.Power(0, "a"))

	resp := ScrapeResponse{Results: []SetResult{
		{Set: ok},
		{Set: partial, Error: partialErr},
		{Set: empty, Error: emptyErr},
		{Set: failed, Error: fmt.Errorf("read: %w", aa55.ErrChecksumMismatch)},
	}}

	assert.Equal([]*goodwe.MetricSet{ok, partial}, resp.Renderable())
	assert.Len(resp.Errors(), 3)
	assert.True(errors.Is(resp.Errors()[2].Error, aa55.ErrChecksumMismatch))
}
