package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SigDerive/internal/domain/models"
	drepo "SigDerive/internal/domain/repository"
	applogger "SigDerive/pkg/logger"
)

// Client implements SampleStream over a data-router websocket feed.
type Client struct {
	url            string
	channels       []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

var _ drepo.SampleStream = (*Client)(nil)

func New(url string, channels []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		url:            url,
		channels:       channels,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            l,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("stream connected", applogger.String("url", c.url))
	return nil
}

type subscribeMessage struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

// Subscribe sends one subscribe frame for all configured channels.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("stream not connected")
	}
	if err := c.conn.WriteJSON(subscribeMessage{Type: "subscribe", Channels: c.channels}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.log.Info("stream subscribed", applogger.Strings("channels", c.channels))
	return nil
}

// Read streams decoded samples until ctx is done or the connection fails. The error
// channel receives at most one error and both channels are closed when reading stops.
func (c *Client) Read(ctx context.Context) (<-chan *models.ChannelSample, <-chan error) {
	samples := make(chan *models.ChannelSample, 1024)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		errs <- fmt.Errorf("stream conn nil")
		close(samples)
		close(errs)
		return samples, errs
	}

	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				c.mu.Unlock()
			}
		}
	}()

	go func() {
		defer close(samples)
		defer close(errs)
		defer close(done)
		for {
			if ctx.Err() != nil {
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("stream read: %w", err)
				}
				return
			}
			batch, skipped, err := DecodeSamples(b)
			if err != nil {
				c.log.Debug("stream frame ignored", applogger.Error(err))
				continue
			}
			if skipped > 0 {
				c.log.Warn("stream samples rejected", applogger.Int("count", skipped))
			}
			for _, s := range batch {
				select {
				case samples <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return samples, errs
}

// Reconnect closes the connection, waits reconnectDelay and connects and subscribes again.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
