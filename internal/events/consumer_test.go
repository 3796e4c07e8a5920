package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoff(t *testing.T) {
	var waits []time.Duration
	var d time.Duration
	for i := 0; i < 10; i++ {
		d = nextBackoff(d)
		waits = append(waits, d)
	}

	assert.Equal(t, minBackoff, waits[0])
	assert.Equal(t, 2*minBackoff, waits[1])
	for i := 1; i < len(waits); i++ {
		assert.GreaterOrEqual(t, waits[i], waits[i-1])
	}
	assert.Equal(t, maxBackoff, waits[len(waits)-1])
}

func TestSleepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	assert.False(t, sleep(ctx, time.Minute))
	assert.Less(t, time.Since(start), time.Second)

	assert.True(t, sleep(context.Background(), time.Millisecond))
}
