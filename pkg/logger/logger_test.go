package logger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedEntry
}

func (p *capturePublisher) Publish(_ context.Context, topic, _ string, value []byte) error {
	var batch []AggregatedEntry
	if err := json.Unmarshal(value, &batch); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, batch)
	return nil
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestCollectorDeduplicatesWarnings(t *testing.T) {
	pub := &capturePublisher{}
	c := NewCollector(CollectorConfig{Interval: time.Hour, CountThreshold: 50, Topic: "logs", Publisher: pub})
	l := NewNop()
	l.AttachCollector(c)

	for i := 0; i < 3; i++ {
		l.Warn("asset skipped", String("asset", "BTC"))
	}
	l.Error("save failed", Error(errors.New("disk")))
	l.Info("not collected")
	c.Close()

	require.Len(t, pub.batches, 1)
	assert.Equal(t, "logs", pub.topic)
	batch := pub.batches[0]
	require.Len(t, batch, 2)
	counts := map[string]int{}
	for _, e := range batch {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, 3, counts["asset skipped"])
	assert.Equal(t, 1, counts["save failed"])
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewCollector(CollectorConfig{Interval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	c.Add("warn", "a", nil, "x")
	c.Add("warn", "b", nil, "x")
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 2)
}

func TestWithAddsFields(t *testing.T) {
	l := NewNop().With(String("component", "engine"))
	assert.NotNil(t, l)
	l.Info("ok")
}
