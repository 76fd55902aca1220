package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Publisher ships an encoded batch of aggregated entries.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

type CollectorConfig struct {
	Interval       time.Duration // flush interval
	CountThreshold int           // unique entries that force a flush
	Topic          string
	Source         string // message key, e.g. the service name
	Publisher      Publisher
}

// AggregatedEntry is one distinct log line with its repeat count.
type AggregatedEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields"`
	Caller    string         `json:"caller"`
	Count     int            `json:"count"`
	FirstSeen time.Time      `json:"first_seen"`
	LastSeen  time.Time      `json:"last_seen"`
}

// Collector deduplicates warn/error entries and publishes them in batches.
type Collector struct {
	cfg     CollectorConfig
	mu      sync.Mutex
	entries map[string]*AggregatedEntry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewCollector(cfg CollectorConfig) *Collector {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Collector{cfg: cfg, entries: make(map[string]*AggregatedEntry), cancel: cancel}
	c.wg.Add(1)
	go c.loop(ctx)
	return c
}

func (c *Collector) Add(level, message string, fields map[string]any, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedEntry{
			Level: level, Message: message, Fields: fields, Caller: caller,
			Count: 1, FirstSeen: now, LastSeen: now,
		}
	}
	var batch []AggregatedEntry
	if len(c.entries) >= c.cfg.CountThreshold {
		batch = c.drainLocked()
	}
	c.mu.Unlock()

	if batch != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.publish(batch)
		}()
	}
}

// Close flushes what is pending and stops the background loop.
func (c *Collector) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Collector) loop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-ctx.Done():
			c.flush()
			return
		}
	}
}

func (c *Collector) flush() {
	c.mu.Lock()
	batch := c.drainLocked()
	c.mu.Unlock()
	c.publish(batch)
}

func (c *Collector) drainLocked() []AggregatedEntry {
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]AggregatedEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.entries = make(map[string]*AggregatedEntry)
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out
}

func (c *Collector) publish(batch []AggregatedEntry) {
	if len(batch) == 0 || c.cfg.Publisher == nil {
		return
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = c.cfg.Publisher.Publish(ctx, c.cfg.Topic, c.cfg.Source, payload)
}

func entryKey(level, message string, fields map[string]any, caller string) string {
	b, _ := json.Marshal(struct {
		L string         `json:"l"`
		M string         `json:"m"`
		F map[string]any `json:"f"`
		C string         `json:"c"`
	}{level, message, fields, caller})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
