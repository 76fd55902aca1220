package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	lo, hi := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(lo, hi, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, hi)
	}
}

func TestBackoffWithJitterDefaults(t *testing.T) {
	d := backoffWithJitter(0, 0, 1)
	assert.LessOrEqual(t, d, 50*time.Millisecond)
	assert.Greater(t, d, 25*time.Millisecond-time.Nanosecond)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}
