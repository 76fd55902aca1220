package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	drepo "github.com/antonbeski0/Predflux/internal/domain/repository"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
)

const DefaultURL = "wss://ws.finnhub.io"

// Config configures the Finnhub trade stream.
type Config struct {
	APIKey         string
	WebsocketURL   string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	BufferSize     int
}

// Client implements a MarketStream backed by Finnhub WebSocket.
type Client struct {
	cfg    Config
	l      *applogger.Logger
	dialer *websocket.Dialer

	wmu       sync.Mutex // gorilla allows one concurrent writer
	conn      *websocket.Conn
	connected atomic.Bool
}

var _ drepo.MarketStream = (*Client)(nil)

// New creates a new Finnhub MarketStream.
func New(cfg Config, l *applogger.Logger) *Client {
	if cfg.WebsocketURL == "" {
		cfg.WebsocketURL = DefaultURL
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Client{cfg: cfg, l: l.With(applogger.String("component", "finnhub")), dialer: websocket.DefaultDialer}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.cfg.WebsocketURL)
	if err != nil {
		return fmt.Errorf("finnhub url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.cfg.APIKey)
	u.RawQuery = q.Encode()

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	c.wmu.Lock()
	c.conn = conn
	c.wmu.Unlock()
	c.connected.Store(true)
	c.l.Info("connected", applogger.String("url", c.cfg.WebsocketURL))
	return nil
}

// Subscribe subscribes to configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.conn == nil || !c.connected.Load() {
		return errors.New("finnhub not connected")
	}
	for _, s := range c.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.l.Info("subscribed", applogger.Strings("symbols", c.cfg.Symbols))
	return nil
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// Read streams trades until the connection fails or ctx ends. Trades are
// dropped when the consumer falls behind.
func (c *Client) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, c.cfg.BufferSize)
	errs := make(chan error, 1)

	c.wmu.Lock()
	conn := c.conn
	c.wmu.Unlock()
	if conn == nil {
		errs <- errors.New("finnhub conn nil")
		close(trades)
		close(errs)
		return trades, errs
	}

	done := make(chan struct{})
	go c.pingLoop(ctx, conn, done)

	go func() {
		defer close(trades)
		defer close(errs)
		defer close(done)
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					c.connected.Store(false)
					errs <- fmt.Errorf("finnhub read: %w", err)
				}
				return
			}
			var m fhMessage
			if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
				continue
			}
			for _, d := range m.Data {
				trade := &models.Trade{Symbol: d.S, Timestamp: d.T / 1000, Price: d.P, Volume: d.V}
				select {
				case trades <- trade:
				default:
				}
			}
		}
	}()

	return trades, errs
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			c.wmu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.wmu.Unlock()
			if err != nil {
				c.l.Warn("ping failed", applogger.Error(err))
			}
		}
	}
}

// Reconnect closes, waits ReconnectDelay, then connects and resubscribes.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	t := time.NewTimer(c.cfg.ReconnectDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected.Store(false)
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected.Load() }
